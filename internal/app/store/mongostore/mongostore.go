// Package mongostore assembles the MongoDB implementation of every store.
package mongostore

import (
	"context"

	"github.com/dalemusser/fintrack/internal/app/store"
	budgetstore "github.com/dalemusser/fintrack/internal/app/store/budgets"
	expensestore "github.com/dalemusser/fintrack/internal/app/store/expenses"
	groupstore "github.com/dalemusser/fintrack/internal/app/store/groups"
	membershipstore "github.com/dalemusser/fintrack/internal/app/store/memberships"
	"github.com/dalemusser/fintrack/internal/app/store/sessions"
	userstore "github.com/dalemusser/fintrack/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// New returns the stores backed by db.
func New(db *mongo.Database, log *zap.Logger) store.Stores {
	if log == nil {
		log = zap.NewNop()
	}
	return store.Stores{
		Users:       userstore.New(db),
		Groups:      groupstore.New(db, log),
		Memberships: membershipstore.New(db),
		Budgets:     budgetstore.New(db, log),
		Expenses:    expensestore.New(db),
		Sessions:    sessions.New(db),
		Health:      pinger{db.Client()},
	}
}

type pinger struct {
	client *mongo.Client
}

// Ping checks the primary is reachable.
func (p pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}
