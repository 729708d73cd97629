package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionStore struct {
	db *sql.DB
}

func (s *sessionStore) Create(ctx context.Context, sess models.LoginSession) (models.LoginSession, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	sess.ID = primitive.NewObjectID()
	if sess.LoginAt.IsZero() {
		sess.LoginAt = now
	}
	if sess.LastActiveAt.IsZero() {
		sess.LastActiveAt = sess.LoginAt
	}
	sess.LogoutAt = nil
	sess.EndReason = ""

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, session_id, user_id, login_at, last_active_at, ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.Hex(), sess.SessionID, sess.UserID.Hex(),
		toMillis(sess.LoginAt), toMillis(sess.LastActiveAt), sess.IP, sess.UserAgent)
	if err != nil {
		return models.LoginSession{}, err
	}
	return sess, nil
}

func (s *sessionStore) Close(ctx context.Context, sessionID, reason string) error {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET logout_at = ?, end_reason = ?, duration_secs = (? - login_at) / 1000
		WHERE session_id = ? AND logout_at IS NULL`,
		now, reason, now, sessionID)
	return err
}

func (s *sessionStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_active_at = MAX(last_active_at, ?)
		WHERE session_id = ? AND logout_at IS NULL`,
		toMillis(at), sessionID)
	return err
}

func (s *sessionStore) CloseInactive(ctx context.Context, before time.Time) (int64, error) {
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET logout_at = ?, end_reason = ?, duration_secs = (? - login_at) / 1000
		WHERE logout_at IS NULL AND last_active_at < ?`,
		now, models.EndReasonInactive, now, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
