package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type budgetStore struct {
	db *sql.DB
}

const budgetColumns = "id, group_id, name, start_date, end_date, created_by, created_at"

func scanBudget(row interface{ Scan(...any) error }) (models.Budget, error) {
	var (
		b                  models.Budget
		id, gid, createdBy string
		startDate, endDate sql.NullString
		createdAt          int64
	)
	if err := row.Scan(&id, &gid, &b.Name, &startDate, &endDate, &createdBy, &createdAt); err != nil {
		return models.Budget{}, notFound(err)
	}
	var err error
	if b.ID, err = parseID(id); err != nil {
		return models.Budget{}, err
	}
	if b.GroupID, err = parseID(gid); err != nil {
		return models.Budget{}, err
	}
	if b.CreatedBy, err = parseID(createdBy); err != nil {
		return models.Budget{}, err
	}
	if b.StartDate, err = parseNullDate(startDate); err != nil {
		return models.Budget{}, err
	}
	if b.EndDate, err = parseNullDate(endDate); err != nil {
		return models.Budget{}, err
	}
	b.CreatedAt = fromMillis(createdAt)
	return b, nil
}

func (s *budgetStore) Create(ctx context.Context, b models.Budget) (models.Budget, error) {
	b.ID = primitive.NewObjectID()
	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID.Hex(), b.GroupID.Hex(), b.Name, nullDate(b.StartDate), nullDate(b.EndDate),
		b.CreatedBy.Hex(), toMillis(b.CreatedAt))
	if err != nil {
		return models.Budget{}, err
	}
	return b, nil
}

func (s *budgetStore) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Budget, error) {
	return scanBudget(s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND group_id = ?`, id.Hex(), groupID.Hex()))
}

func (s *budgetStore) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	var deleted int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM budgets WHERE id = ? AND group_id = ?`, id.Hex(), groupID.Hex())
		if err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		if deleted, err = res.RowsAffected(); err != nil || deleted == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE expenses SET budget_id = NULL, updated_at = ? WHERE group_id = ? AND budget_id = ?`,
			toMillis(time.Now()), groupID.Hex(), id.Hex())
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

func (s *budgetStore) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE group_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		groupID.Hex(), sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
