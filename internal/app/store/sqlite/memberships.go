package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type membershipStore struct {
	db *sql.DB
}

func (s *membershipStore) Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM group_memberships WHERE group_id = ? AND user_id = ?`,
		groupID.Hex(), userID.Hex()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *membershipStore) Add(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_memberships (id, group_id, user_id, joined_at) VALUES (?, ?, ?, ?)`,
		primitive.NewObjectID().Hex(), groupID.Hex(), userID.Hex(), toMillis(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateMembership
		}
		return err
	}
	return nil
}

func (s *membershipStore) Remove(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = ? AND user_id = ?`,
		groupID.Hex(), userID.Hex())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *membershipStore) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.list(ctx, `WHERE group_id = ?`, groupID.Hex())
}

func (s *membershipStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.list(ctx, `WHERE user_id = ?`, userID.Hex())
}

func (s *membershipStore) list(ctx context.Context, where string, arg string) ([]models.GroupMembership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, joined_at FROM group_memberships `+where+` ORDER BY joined_at ASC, id ASC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GroupMembership
	for rows.Next() {
		var (
			id, gid, uid string
			joined       int64
			m            models.GroupMembership
		)
		if err := rows.Scan(&id, &gid, &uid, &joined); err != nil {
			return nil, err
		}
		if m.ID, err = parseID(id); err != nil {
			return nil, err
		}
		if m.GroupID, err = parseID(gid); err != nil {
			return nil, err
		}
		if m.UserID, err = parseID(uid); err != nil {
			return nil, err
		}
		m.JoinedAt = fromMillis(joined)
		out = append(out, m)
	}
	return out, rows.Err()
}
