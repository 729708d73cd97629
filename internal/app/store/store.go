// internal/app/store/store.go

// Package store defines the persistence contracts shared by the MongoDB
// and SQLite backends. Every read or delete that touches group-owned data
// takes the group id and filters on it inside the query, so callers never
// receive rows from another group and then filter them in Go.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("a user with this email already exists")

	// ErrDuplicateGroupName is returned when the folded group name is already taken.
	ErrDuplicateGroupName = errors.New("a group with this name already exists")

	// ErrDuplicateMembership is returned when the user already belongs to the group.
	ErrDuplicateMembership = errors.New("user is already a member of this group")
)

// UserStore persists registered accounts.
type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// DisplayNames maps user ids to full names. Unknown ids are omitted.
	DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// GroupStore persists groups. Creating and deleting a group are
// multi-write operations and each backend runs them atomically.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	// GetByName looks a group up by its folded name.
	GetByName(ctx context.Context, name string) (models.Group, error)
	// ListForUser returns the user's groups, newest first, ties by id ascending.
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error)
	// LatestForUser returns the first group ListForUser would return.
	LatestForUser(ctx context.Context, userID primitive.ObjectID) (models.Group, error)
	// CreateWithOwner inserts the group and the owner's membership together.
	// If either write fails neither is kept.
	CreateWithOwner(ctx context.Context, g models.Group) (models.Group, error)
	// DeleteCascade removes the group with its memberships, budgets and
	// expenses. Returns the number of group rows deleted (0 or 1).
	DeleteCascade(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// MembershipStore persists (group, user) pairs.
type MembershipStore interface {
	Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
	Add(ctx context.Context, groupID, userID primitive.ObjectID) error
	// Remove returns the number of memberships deleted (0 or 1).
	Remove(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error)
	// ListByGroup returns memberships ordered by joined_at ascending.
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	Create(ctx context.Context, b models.Budget) (models.Budget, error)
	GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Budget, error)
	// DeleteInGroup deletes the budget only if it belongs to groupID and
	// clears the budget reference on that group's expenses.
	DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error)
	// ListByGroup returns budgets newest first. A limit of 0 means no limit.
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Budget, error)
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	Create(ctx context.Context, e models.Expense) (models.Expense, error)
	GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Expense, error)
	DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error)
	// ListByGroup returns expenses ordered by expense date then creation time, newest first.
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Expense, error)
	// Totals sums expenses dated in [from, to).
	Totals(ctx context.Context, groupID primitive.ObjectID, from, to time.Time) (models.ExpenseTotals, error)
}

// SessionStore records authenticated browser sessions.
type SessionStore interface {
	Create(ctx context.Context, s models.LoginSession) (models.LoginSession, error)
	// Close ends the open session with the given cookie session id.
	Close(ctx context.Context, sessionID, reason string) error
	// Touch moves last_active_at forward on an open session.
	Touch(ctx context.Context, sessionID string, at time.Time) error
	// CloseInactive ends open sessions idle since before the threshold and
	// returns how many were closed.
	CloseInactive(ctx context.Context, before time.Time) (int64, error)
}

// Pinger reports backend reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores bundles one implementation of every store.
type Stores struct {
	Users       UserStore
	Groups      GroupStore
	Memberships MembershipStore
	Budgets     BudgetStore
	Expenses    ExpenseStore
	Sessions    SessionStore
	Health      Pinger
}
