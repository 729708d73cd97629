package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/store/sqlite"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the password every seeded user and group is created with.
const TestPassword = "password123"

// NewSQLiteStores opens a migrated SQLite database in a temp dir.
func NewSQLiteStores(t *testing.T) store.Stores {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "fintrack.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db.Stores()
}

// Seed creates rows through the store interfaces, so it works against
// either backend.
type Seed struct {
	t *testing.T
	s store.Stores
}

func NewSeed(t *testing.T, s store.Stores) *Seed {
	t.Helper()
	return &Seed{t: t, s: s}
}

// HashPassword bcrypts pw at the minimum cost to keep tests fast.
func HashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

// User registers a user whose password is TestPassword.
func (s *Seed) User(ctx context.Context, fullName, email string) models.User {
	s.t.Helper()
	u, err := s.s.Users.Create(ctx, models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: HashPassword(s.t, TestPassword),
	})
	if err != nil {
		s.t.Fatalf("seed user: %v", err)
	}
	return u
}

// Group creates a group owned by ownerID with the given join secret.
func (s *Seed) Group(ctx context.Context, name, secret string, ownerID primitive.ObjectID) models.Group {
	s.t.Helper()
	g, err := s.s.Groups.CreateWithOwner(ctx, models.Group{
		Name:         name,
		PasswordHash: HashPassword(s.t, secret),
		OwnerID:      ownerID,
	})
	if err != nil {
		s.t.Fatalf("seed group: %v", err)
	}
	return g
}

// Join adds userID to groupID.
func (s *Seed) Join(ctx context.Context, groupID, userID primitive.ObjectID) {
	s.t.Helper()
	if err := s.s.Memberships.Add(ctx, groupID, userID); err != nil {
		s.t.Fatalf("seed membership: %v", err)
	}
}

// Budget creates an open-ended budget.
func (s *Seed) Budget(ctx context.Context, groupID, createdBy primitive.ObjectID, name string) models.Budget {
	s.t.Helper()
	b, err := s.s.Budgets.Create(ctx, models.Budget{GroupID: groupID, Name: name, CreatedBy: createdBy})
	if err != nil {
		s.t.Fatalf("seed budget: %v", err)
	}
	return b
}

// Expense creates an expense dated today.
func (s *Seed) Expense(ctx context.Context, groupID, createdBy primitive.ObjectID, cents int64) models.Expense {
	s.t.Helper()
	now := time.Now().UTC()
	e, err := s.s.Expenses.Create(ctx, models.Expense{
		GroupID:     groupID,
		AmountCents: cents,
		ExpenseDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		CreatedBy:   createdBy,
	})
	if err != nil {
		s.t.Fatalf("seed expense: %v", err)
	}
	return e
}
