// internal/app/store/budgets/budgetstore.go
package budgetstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/txn"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Store struct {
	db       *mongo.Database
	c        *mongo.Collection
	expenses *mongo.Collection
	log      *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:       db,
		c:        db.Collection("budgets"),
		expenses: db.Collection("expenses"),
		log:      log,
	}
}

func (s *Store) Create(ctx context.Context, b models.Budget) (models.Budget, error) {
	b.ID = primitive.NewObjectID()
	b.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Budget{}, err
	}
	return b, nil
}

// GetInGroup loads a budget only if it belongs to groupID.
func (s *Store) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Budget, error) {
	var b models.Budget
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "group_id": groupID}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Budget{}, store.ErrNotFound
		}
		return models.Budget{}, err
	}
	return b, nil
}

// DeleteInGroup removes the budget and clears budget_id on the group's
// expenses that pointed at it. Returns the number of budgets deleted.
func (s *Store) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	var deleted int64
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "group_id": groupID})
		if err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		deleted = res.DeletedCount
		if deleted == 0 {
			return nil
		}
		_, err = s.expenses.UpdateMany(ctx,
			bson.M{"group_id": groupID, "budget_id": id},
			bson.M{
				"$unset": bson.M{"budget_id": ""},
				"$set":   bson.M{"updated_at": time.Now().UTC()},
			},
		)
		if err != nil {
			return fmt.Errorf("unlink expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListByGroup returns up to limit budgets, newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Budget, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Budget
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
