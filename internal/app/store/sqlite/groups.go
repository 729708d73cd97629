package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type groupStore struct {
	db *sql.DB
}

const groupColumns = "g.id, g.name, g.name_ci, g.password_hash, g.owner_id, g.created_at"

func scanGroup(row interface{ Scan(...any) error }) (models.Group, error) {
	var (
		g           models.Group
		id, ownerID string
		createdAt   int64
	)
	if err := row.Scan(&id, &g.Name, &g.NameCI, &g.PasswordHash, &ownerID, &createdAt); err != nil {
		return models.Group{}, notFound(err)
	}
	var err error
	if g.ID, err = parseID(id); err != nil {
		return models.Group{}, err
	}
	if g.OwnerID, err = parseID(ownerID); err != nil {
		return models.Group{}, err
	}
	g.CreatedAt = fromMillis(createdAt)
	return g, nil
}

func (s *groupStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	return scanGroup(s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM shared_groups g WHERE g.id = ?`, id.Hex()))
}

func (s *groupStore) GetByName(ctx context.Context, name string) (models.Group, error) {
	return scanGroup(s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM shared_groups g WHERE g.name_ci = ?`, text.Fold(normalize.Name(name))))
}

func (s *groupStore) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	return s.listForUser(ctx, userID, -1)
}

func (s *groupStore) LatestForUser(ctx context.Context, userID primitive.ObjectID) (models.Group, error) {
	groups, err := s.listForUser(ctx, userID, 1)
	if err != nil {
		return models.Group{}, err
	}
	if len(groups) == 0 {
		return models.Group{}, store.ErrNotFound
	}
	return groups[0], nil
}

func (s *groupStore) listForUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+groupColumns+`
		FROM shared_groups g
		JOIN group_memberships m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at DESC, g.id ASC
		LIMIT ?`, userID.Hex(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *groupStore) CreateWithOwner(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	g.ID = primitive.NewObjectID()
	g.Name = normalize.Name(g.Name)
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shared_groups (id, name, name_ci, password_hash, owner_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID.Hex(), g.Name, g.NameCI, g.PasswordHash, g.OwnerID.Hex(), toMillis(now))
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicateGroupName
			}
			return fmt.Errorf("insert group: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_memberships (id, group_id, user_id, joined_at)
			VALUES (?, ?, ?, ?)`,
			primitive.NewObjectID().Hex(), g.ID.Hex(), g.OwnerID.Hex(), toMillis(now))
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// DeleteCascade relies on ON DELETE CASCADE for memberships, budgets and
// expenses; the explicit deletes keep the behavior identical when foreign
// keys are off.
func (s *groupStore) DeleteCascade(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var deleted int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM expenses WHERE group_id = ?`,
			`DELETE FROM budgets WHERE group_id = ?`,
			`DELETE FROM group_memberships WHERE group_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id.Hex()); err != nil {
				return fmt.Errorf("cascade delete: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM shared_groups WHERE id = ?`, id.Hex())
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
