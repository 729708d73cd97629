package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type expenseStore struct {
	db *sql.DB
}

const expenseColumns = "id, group_id, budget_id, amount_cents, category, description, expense_date, created_by, created_at, updated_at"

func scanExpense(row interface{ Scan(...any) error }) (models.Expense, error) {
	var (
		e                        models.Expense
		id, gid, createdBy, date string
		budgetID                 sql.NullString
		createdAt, updatedAt     int64
	)
	err := row.Scan(&id, &gid, &budgetID, &e.AmountCents, &e.Category, &e.Description,
		&date, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		return models.Expense{}, notFound(err)
	}
	if e.ID, err = parseID(id); err != nil {
		return models.Expense{}, err
	}
	if e.GroupID, err = parseID(gid); err != nil {
		return models.Expense{}, err
	}
	if e.CreatedBy, err = parseID(createdBy); err != nil {
		return models.Expense{}, err
	}
	if budgetID.Valid {
		bid, err := parseID(budgetID.String)
		if err != nil {
			return models.Expense{}, err
		}
		e.BudgetID = &bid
	}
	if e.ExpenseDate, err = time.Parse(dateLayout, date); err != nil {
		return models.Expense{}, err
	}
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

func (s *expenseStore) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now

	var budgetID sql.NullString
	if e.BudgetID != nil {
		budgetID = sql.NullString{String: e.BudgetID.Hex(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.Hex(), e.GroupID.Hex(), budgetID, e.AmountCents, e.Category, e.Description,
		e.ExpenseDate.UTC().Format(dateLayout), e.CreatedBy.Hex(), toMillis(now), toMillis(now))
	if err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

func (s *expenseStore) GetInGroup(ctx context.Context, groupID, id primitive.ObjectID) (models.Expense, error) {
	return scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND group_id = ?`, id.Hex(), groupID.Hex()))
}

func (s *expenseStore) DeleteInGroup(ctx context.Context, groupID, id primitive.ObjectID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND group_id = ?`, id.Hex(), groupID.Hex())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *expenseStore) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE group_id = ?
		 ORDER BY expense_date DESC, created_at DESC, id DESC LIMIT ?`,
		groupID.Hex(), sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Totals compares dates as YYYY-MM-DD strings, which sort chronologically.
func (s *expenseStore) Totals(ctx context.Context, groupID primitive.ObjectID, from, to time.Time) (models.ExpenseTotals, error) {
	var t models.ExpenseTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM expenses
		WHERE group_id = ? AND expense_date >= ? AND expense_date < ?`,
		groupID.Hex(), from.UTC().Format(dateLayout), to.UTC().Format(dateLayout),
	).Scan(&t.TotalCents, &t.Count)
	if err != nil {
		return models.ExpenseTotals{}, err
	}
	return t, nil
}
