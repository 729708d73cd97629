package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts documents straight into a MongoDB test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user. The password hash is a placeholder; use the
// user store when a test needs to log in.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group without any membership rows.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, ownerID primitive.ObjectID) models.Group {
	f.t.Helper()
	return f.CreateGroupAt(ctx, name, ownerID, time.Now().UTC())
}

// CreateGroupAt inserts a group with an explicit creation time.
func (f *Fixtures) CreateGroupAt(ctx context.Context, name string, ownerID primitive.ObjectID, at time.Time) models.Group {
	f.t.Helper()

	g := models.Group{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		PasswordHash: "x",
		OwnerID:      ownerID,
		CreatedAt:    at,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateGroupMembership links a user to a group.
func (f *Fixtures) CreateGroupMembership(ctx context.Context, groupID, userID primitive.ObjectID) models.GroupMembership {
	f.t.Helper()
	return f.CreateGroupMembershipAt(ctx, groupID, userID, time.Now().UTC())
}

// CreateGroupMembershipAt links a user to a group with an explicit join time.
func (f *Fixtures) CreateGroupMembershipAt(ctx context.Context, groupID, userID primitive.ObjectID, at time.Time) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: at,
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test group membership: %v", err)
	}
	return m
}

// CreateBudget inserts an open-ended budget.
func (f *Fixtures) CreateBudget(ctx context.Context, groupID, createdBy primitive.ObjectID, name string) models.Budget {
	f.t.Helper()

	b := models.Budget{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("budgets").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test budget: %v", err)
	}
	return b
}

// CreateExpense inserts an expense dated today.
func (f *Fixtures) CreateExpense(ctx context.Context, groupID primitive.ObjectID, budgetID *primitive.ObjectID, createdBy primitive.ObjectID, cents int64) models.Expense {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Expense{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		BudgetID:    budgetID,
		AmountCents: cents,
		ExpenseDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("expenses").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test expense: %v", err)
	}
	return e
}
