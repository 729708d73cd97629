// internal/app/store/expenses/expensestore.go
package expensestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("expenses")}
}

func (s *Store) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// GetInGroup loads an expense only if it belongs to groupID.
func (s *Store) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Expense, error) {
	var e models.Expense
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "group_id": groupID}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Expense{}, store.ErrNotFound
		}
		return models.Expense{}, err
	}
	return e, nil
}

// DeleteInGroup removes the expense if it belongs to groupID.
func (s *Store) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByGroup returns up to limit expenses, latest expense date first and
// then latest entry first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Expense, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "expense_date", Value: -1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Expense
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Totals sums amount_cents over expenses dated in [from, to).
func (s *Store) Totals(ctx context.Context, groupID primitive.ObjectID, from, to time.Time) (models.ExpenseTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"group_id":     groupID,
			"expense_date": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"total_cents": bson.M{"$sum": "$amount_cents"},
			"count":       bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.ExpenseTotals{}, err
	}
	defer cur.Close(ctx)

	var t models.ExpenseTotals
	if cur.Next(ctx) {
		if err := cur.Decode(&t); err != nil {
			return models.ExpenseTotals{}, err
		}
	}
	return t, cur.Err()
}
