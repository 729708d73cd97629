package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.uber.org/zap"
)

// BudgetInput is the add-budget form.
type BudgetInput struct {
	Name      string `validate:"required,max=100" label:"Budget name"`
	StartDate string `validate:"omitempty,isodate" label:"Start date"`
	EndDate   string `validate:"omitempty,isodate" label:"End date"`
}

func (in *BudgetInput) normalize() {
	in.Name = normalize.Name(in.Name)
	in.StartDate = normalize.Text(in.StartDate)
	in.EndDate = normalize.Text(in.EndDate)
}

// AddBudget creates a budget in the caller's active group.
func (c *Controller) AddBudget(ctx context.Context, sess Session, token string, in BudgetInput) (Result, error) {
	return c.run("add_budget", BudgetsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.activeGroup(ctx)
		if err != nil {
			return "", err
		}

		in.normalize()
		if err := validate(in); err != nil {
			return "", err
		}
		b := models.Budget{GroupID: g.ID, Name: in.Name, CreatedBy: f.userID}
		if in.StartDate != "" {
			d, _ := inputval.ParseDate(in.StartDate)
			b.StartDate = &d
		}
		if in.EndDate != "" {
			d, _ := inputval.ParseDate(in.EndDate)
			b.EndDate = &d
		}
		if b.StartDate != nil && b.EndDate != nil && b.StartDate.After(*b.EndDate) {
			return "", invalid("Start date cannot be after end date.")
		}
		// Membership was proven by the resolver; any member may add.
		f.advance(Authorized)

		wctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()
		created, err := c.stores.Budgets.Create(wctx, b)
		if err != nil {
			return "", storeErr("insert budget", err)
		}
		c.log.Info("budget created",
			zap.String("group_id", g.ID.Hex()),
			zap.String("budget_id", created.ID.Hex()),
			zap.String("user_id", f.userID.Hex()))
		return "Budget created.", nil
	})
}

// DeleteBudget deletes a budget in the active group if the caller created
// it or owns the group. Expenses filed under it are kept and unlinked.
func (c *Controller) DeleteBudget(ctx context.Context, sess Session, token, rawID string) (Result, error) {
	return c.run("delete_budget", BudgetsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.activeGroup(ctx)
		if err != nil {
			return "", err
		}
		id, err := parseID(rawID)
		if err != nil {
			return "", err
		}

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()

		b, err := c.stores.Budgets.GetInGroup(ctx, g.ID, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", storeErr("load budget", err)
		}
		if !grouppolicy.CanMutateResource(f.userID, grouppolicy.Resource{GroupID: b.GroupID, CreatedBy: b.CreatedBy}, g) {
			return "", ErrForbidden
		}
		f.advance(Authorized)

		n, err := c.stores.Budgets.DeleteInGroup(ctx, g.ID, id)
		if err != nil {
			return "", storeErr("delete budget", err)
		}
		if n == 0 {
			c.log.Debug("budget already deleted", zap.String("budget_id", id.Hex()))
		}
		return "Budget deleted.", nil
	})
}
