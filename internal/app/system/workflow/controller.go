// Package workflow runs every state-changing request through the same
// gates: CSRF, group resolution, validation, authorization, the store
// write, a one-shot flash, and a redirect to the canonical GET page.
package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/activegroup"
	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/flash"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Redirect targets.
const (
	BudgetsPath  = "/budgets"
	ExpensesPath = "/expenses"
	GroupsPath   = "/groups"
)

// Session is what the controller needs from the browser session.
// *auth.SessionContext implements it.
type Session interface {
	activegroup.Session
	CSRFSecret() (string, error)
	SetFlash(m flash.Message)
}

// Result tells the handler where to send the browser. Stage is Redirected
// on success and Rejected otherwise.
type Result struct {
	Redirect string
	Flash    flash.Message
	Stage    Stage
}

// Controller owns the mutation entry points.
type Controller struct {
	stores   store.Stores
	resolver *activegroup.Resolver
	policy   *grouppolicy.Policy
	log      *zap.Logger
	outcomes *prometheus.CounterVec

	// hashCost is the bcrypt cost for new group secrets.
	hashCost int
}

// New builds a Controller. reg may be nil to skip metrics registration.
func New(stores store.Stores, log *zap.Logger, reg prometheus.Registerer) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintrack",
		Name:      "mutations_total",
		Help:      "Mutation requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	if reg != nil {
		if err := reg.Register(outcomes); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				outcomes = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				log.Warn("register mutation counter", zap.Error(err))
			}
		}
	}
	return &Controller{
		stores:   stores,
		resolver: activegroup.New(stores.Groups, stores.Memberships, log),
		policy:   grouppolicy.New(stores.Groups, stores.Memberships),
		log:      log,
		outcomes: outcomes,
		hashCost: bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost used for group secrets.
func (c *Controller) SetHashCost(cost int) { c.hashCost = cost }

// Outcomes exposes the counter for tests.
func (c *Controller) Outcomes() *prometheus.CounterVec { return c.outcomes }

// Resolver returns the active-group resolver the controller uses, so read
// handlers resolve the group the same way mutations do.
func (c *Controller) Resolver() *activegroup.Resolver { return c.resolver }

// Policy returns the authorization policy.
func (c *Controller) Policy() *grouppolicy.Policy { return c.policy }

// flow tracks one request through the stages.
type flow struct {
	c        *Controller
	op       string
	redirect string
	sess     Session
	userID   primitive.ObjectID
	stage    Stage
}

func (f *flow) advance(s Stage) {
	if s > f.stage {
		f.stage = s
	}
}

// run executes body after the CSRF gate. body returns the success text.
func (c *Controller) run(op, redirect string, sess Session, token string, body func(f *flow) (string, error)) (Result, error) {
	f := &flow{c: c, op: op, redirect: redirect, sess: sess, stage: Received}

	secret, err := sess.CSRFSecret()
	if err != nil || csrf.Validate(secret, token) != nil {
		c.outcomes.WithLabelValues(op, outcome(ErrCSRF)).Inc()
		c.log.Info("mutation rejected: csrf", zap.String("op", op))
		return Result{Stage: Rejected}, ErrCSRF
	}
	f.advance(CSRFValidated)

	uid, ok := sess.UserID()
	if !ok {
		return c.reject(f, ErrForbidden)
	}
	f.userID = uid

	msg, err := body(f)
	if err != nil {
		return c.reject(f, err)
	}
	f.advance(Applied)

	m := flash.Success(msg)
	sess.SetFlash(m)
	f.advance(FlashSet)
	c.outcomes.WithLabelValues(op, outcome(nil)).Inc()
	return Result{Redirect: redirect, Flash: m, Stage: Redirected}, nil
}

func (c *Controller) reject(f *flow, err error) (Result, error) {
	fields := []zap.Field{
		zap.String("op", f.op),
		zap.Stringer("stage", f.stage),
		zap.String("user_id", f.userID.Hex()),
		zap.Error(err),
	}
	var te *TransactionError
	if errors.As(err, &te) {
		c.log.Error("mutation failed", fields...)
	} else {
		c.log.Debug("mutation rejected", fields...)
	}

	m := flash.Error(Message(err))
	f.sess.SetFlash(m)
	c.outcomes.WithLabelValues(f.op, outcome(err)).Inc()
	return Result{Redirect: f.redirect, Flash: m, Stage: Rejected}, nil
}

// activeGroup resolves the session's group. No group is a permission
// failure for mutations.
func (f *flow) activeGroup(ctx context.Context) (activegroup.GroupContext, error) {
	g, err := f.c.resolver.Resolve(ctx, f.sess)
	if err != nil {
		return activegroup.GroupContext{}, storeErr("resolve group", err)
	}
	if g == nil {
		return activegroup.GroupContext{}, ErrForbidden
	}
	f.advance(GroupResolved)
	return *g, nil
}

// namedGroup loads a group the form names and proves the caller belongs
// to it. A group the caller is not in is reported as forbidden whether or
// not it exists.
func (f *flow) namedGroup(ctx context.Context, rawID string) (activegroup.GroupContext, error) {
	gid, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if err != nil {
		return activegroup.GroupContext{}, ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	member, err := f.c.policy.IsMember(ctx, f.userID, gid)
	if err != nil {
		return activegroup.GroupContext{}, storeErr("check membership", err)
	}
	if !member {
		return activegroup.GroupContext{}, ErrForbidden
	}
	g, err := f.c.stores.Groups.GetByID(ctx, gid)
	if errors.Is(err, store.ErrNotFound) {
		return activegroup.GroupContext{}, ErrNotFound
	}
	if err != nil {
		return activegroup.GroupContext{}, storeErr("load group", err)
	}
	f.advance(GroupResolved)
	return activegroup.GroupContext{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}, nil
}

// validate runs struct tags and returns the first failure.
func validate(in any) error {
	if res := inputval.Validate(in); res.HasErrors() {
		return invalid(res.First())
	}
	return nil
}

// parseID turns a path or form id into an ObjectID. Garbage ids are not
// found rather than invalid, so probing ids learns nothing.
func parseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}
