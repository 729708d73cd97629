package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallCounter counts every store method invocation made through a
// CountingStores bundle.
type CallCounter struct {
	n atomic.Int64
}

// Calls returns the number of store calls since the last Reset.
func (c *CallCounter) Calls() int64 { return c.n.Load() }

// Reset zeroes the counter.
func (c *CallCounter) Reset() { c.n.Store(0) }

func (c *CallCounter) hit() { c.n.Add(1) }

// CountingStores wraps every store in inner so each call bumps the counter.
func CountingStores(inner store.Stores) (store.Stores, *CallCounter) {
	c := &CallCounter{}
	return store.Stores{
		Users:       countingUsers{inner.Users, c},
		Groups:      countingGroups{inner.Groups, c},
		Memberships: countingMemberships{inner.Memberships, c},
		Budgets:     countingBudgets{inner.Budgets, c},
		Expenses:    countingExpenses{inner.Expenses, c},
		Sessions:    countingSessions{inner.Sessions, c},
		Health:      inner.Health,
	}, c
}

type countingUsers struct {
	store.UserStore
	c *CallCounter
}

func (s countingUsers) Create(ctx context.Context, u models.User) (models.User, error) {
	s.c.hit()
	return s.UserStore.Create(ctx, u)
}

func (s countingUsers) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	s.c.hit()
	return s.UserStore.GetByID(ctx, id)
}

func (s countingUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.c.hit()
	return s.UserStore.GetByEmail(ctx, email)
}

func (s countingUsers) DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	s.c.hit()
	return s.UserStore.DisplayNames(ctx, ids)
}

type countingGroups struct {
	store.GroupStore
	c *CallCounter
}

func (s countingGroups) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	s.c.hit()
	return s.GroupStore.GetByID(ctx, id)
}

func (s countingGroups) GetByName(ctx context.Context, name string) (models.Group, error) {
	s.c.hit()
	return s.GroupStore.GetByName(ctx, name)
}

func (s countingGroups) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	s.c.hit()
	return s.GroupStore.ListForUser(ctx, userID)
}

func (s countingGroups) LatestForUser(ctx context.Context, userID primitive.ObjectID) (models.Group, error) {
	s.c.hit()
	return s.GroupStore.LatestForUser(ctx, userID)
}

func (s countingGroups) CreateWithOwner(ctx context.Context, g models.Group) (models.Group, error) {
	s.c.hit()
	return s.GroupStore.CreateWithOwner(ctx, g)
}

func (s countingGroups) DeleteCascade(ctx context.Context, id primitive.ObjectID) (int64, error) {
	s.c.hit()
	return s.GroupStore.DeleteCascade(ctx, id)
}

type countingMemberships struct {
	store.MembershipStore
	c *CallCounter
}

func (s countingMemberships) Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	s.c.hit()
	return s.MembershipStore.Exists(ctx, groupID, userID)
}

func (s countingMemberships) Add(ctx context.Context, groupID, userID primitive.ObjectID) error {
	s.c.hit()
	return s.MembershipStore.Add(ctx, groupID, userID)
}

func (s countingMemberships) Remove(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error) {
	s.c.hit()
	return s.MembershipStore.Remove(ctx, groupID, userID)
}

func (s countingMemberships) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	s.c.hit()
	return s.MembershipStore.ListByGroup(ctx, groupID)
}

func (s countingMemberships) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	s.c.hit()
	return s.MembershipStore.ListByUser(ctx, userID)
}

type countingBudgets struct {
	store.BudgetStore
	c *CallCounter
}

func (s countingBudgets) Create(ctx context.Context, b models.Budget) (models.Budget, error) {
	s.c.hit()
	return s.BudgetStore.Create(ctx, b)
}

func (s countingBudgets) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Budget, error) {
	s.c.hit()
	return s.BudgetStore.GetInGroup(ctx, groupID, id)
}

func (s countingBudgets) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	s.c.hit()
	return s.BudgetStore.DeleteInGroup(ctx, groupID, id)
}

func (s countingBudgets) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Budget, error) {
	s.c.hit()
	return s.BudgetStore.ListByGroup(ctx, groupID, limit)
}

type countingExpenses struct {
	store.ExpenseStore
	c *CallCounter
}

func (s countingExpenses) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	s.c.hit()
	return s.ExpenseStore.Create(ctx, e)
}

func (s countingExpenses) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Expense, error) {
	s.c.hit()
	return s.ExpenseStore.GetInGroup(ctx, groupID, id)
}

func (s countingExpenses) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	s.c.hit()
	return s.ExpenseStore.DeleteInGroup(ctx, groupID, id)
}

func (s countingExpenses) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Expense, error) {
	s.c.hit()
	return s.ExpenseStore.ListByGroup(ctx, groupID, limit)
}

func (s countingExpenses) Totals(ctx context.Context, groupID primitive.ObjectID, from, to time.Time) (models.ExpenseTotals, error) {
	s.c.hit()
	return s.ExpenseStore.Totals(ctx, groupID, from, to)
}

type countingSessions struct {
	store.SessionStore
	c *CallCounter
}

func (s countingSessions) Create(ctx context.Context, sess models.LoginSession) (models.LoginSession, error) {
	s.c.hit()
	return s.SessionStore.Create(ctx, sess)
}

func (s countingSessions) Close(ctx context.Context, sessionID, reason string) error {
	s.c.hit()
	return s.SessionStore.Close(ctx, sessionID, reason)
}

func (s countingSessions) Touch(ctx context.Context, sessionID string, at time.Time) error {
	s.c.hit()
	return s.SessionStore.Touch(ctx, sessionID, at)
}

func (s countingSessions) CloseInactive(ctx context.Context, before time.Time) (int64, error) {
	s.c.hit()
	return s.SessionStore.CloseInactive(ctx, before)
}
