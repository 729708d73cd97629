// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/txn"
	"github.com/dalemusser/fintrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Store struct {
	db          *mongo.Database
	c           *mongo.Collection
	memberships *mongo.Collection
	budgets     *mongo.Collection
	expenses    *mongo.Collection
	log         *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:          db,
		c:           db.Collection("groups"),
		memberships: db.Collection("group_memberships"),
		budgets:     db.Collection("budgets"),
		expenses:    db.Collection("expenses"),
		log:         log,
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, store.ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// GetByName matches on the folded name so lookups agree with the unique index.
func (s *Store) GetByName(ctx context.Context, name string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(normalize.Name(name))}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, store.ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// ListForUser returns every group the user belongs to, newest first with
// ties broken by id ascending.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	return s.findForUser(ctx, userID, 0)
}

// LatestForUser returns the user's most recently created group.
func (s *Store) LatestForUser(ctx context.Context, userID primitive.ObjectID) (models.Group, error) {
	groups, err := s.findForUser(ctx, userID, 1)
	if err != nil {
		return models.Group{}, err
	}
	if len(groups) == 0 {
		return models.Group{}, store.ErrNotFound
	}
	return groups[0], nil
}

func (s *Store) findForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Group, error) {
	ids, err := s.groupIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) groupIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	proj := options.Find().SetProjection(bson.M{"group_id": 1})
	cur, err := s.memberships.Find(ctx, bson.M{"user_id": userID}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			GroupID primitive.ObjectID `bson:"group_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.GroupID)
	}
	return ids, cur.Err()
}

// CreateWithOwner inserts the group and the owner's membership in one
// transaction. A duplicate folded name surfaces as store.ErrDuplicateGroupName.
func (s *Store) CreateWithOwner(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.Name = normalize.Name(g.Name)
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now

	owner := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  g.ID,
		UserID:   g.OwnerID,
		JoinedAt: now,
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, g); err != nil {
			if wafflemongo.IsDup(err) {
				return store.ErrDuplicateGroupName
			}
			return fmt.Errorf("insert group: %w", err)
		}
		if _, err := s.memberships.InsertOne(ctx, owner); err != nil {
			// Outside a transaction the group row is already visible.
			if mongo.SessionFromContext(ctx) == nil {
				if _, derr := s.c.DeleteOne(ctx, bson.M{"_id": g.ID}); derr != nil {
					s.log.Error("rollback of group insert failed",
						zap.String("group_id", g.ID.Hex()), zap.Error(derr))
				}
			}
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// DeleteCascade removes the group's expenses, budgets and memberships and
// then the group itself. Returns the number of group documents deleted.
func (s *Store) DeleteCascade(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var deleted int64
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		filter := bson.M{"group_id": id}
		if _, err := s.expenses.DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("delete expenses: %w", err)
		}
		if _, err := s.budgets.DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("delete budgets: %w", err)
		}
		if _, err := s.memberships.DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
