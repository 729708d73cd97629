// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store records authenticated browser sessions.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// Create opens a session record. LoginAt and LastActiveAt default to now.
func (s *Store) Create(ctx context.Context, sess models.LoginSession) (models.LoginSession, error) {
	now := time.Now().UTC()
	sess.ID = primitive.NewObjectID()
	if sess.LoginAt.IsZero() {
		sess.LoginAt = now
	}
	if sess.LastActiveAt.IsZero() {
		sess.LastActiveAt = sess.LoginAt
	}
	sess.LogoutAt = nil
	sess.EndReason = ""

	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.LoginSession{}, err
	}
	return sess, nil
}

// Close ends the open session carrying the given cookie session id and
// records its duration. Closing an unknown or already closed session is a no-op.
func (s *Store) Close(ctx context.Context, sessionID, reason string) error {
	now := time.Now().UTC()

	var sess models.LoginSession
	err := s.c.FindOne(ctx, bson.M{"session_id": sessionID, "logout_at": nil}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": sess.ID, "logout_at": nil}, bson.M{
		"$set": bson.M{
			"logout_at":     now,
			"end_reason":    reason,
			"duration_secs": int64(now.Sub(sess.LoginAt).Seconds()),
		},
	})
	return err
}

// Touch records activity on the open session with the given id.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "logout_at": nil},
		bson.M{"$max": bson.M{"last_active_at": at.UTC()}},
	)
	return err
}

// CloseInactive closes open sessions whose last activity is before the
// cutoff. Duration is computed server-side with a pipeline update.
func (s *Store) CloseInactive(ctx context.Context, before time.Time) (int64, error) {
	now := time.Now().UTC()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"logout_at":  now,
			"end_reason": models.EndReasonInactive,
			"duration_secs": bson.M{"$toLong": bson.M{
				"$divide": bson.A{bson.M{"$subtract": bson.A{now, "$login_at"}}, 1000},
			}},
		}}},
	}

	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"logout_at":      nil,
			"last_active_at": bson.M{"$lt": before},
		},
		update,
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
