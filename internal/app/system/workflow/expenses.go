package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/money"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExpenseInput is the add-expense form. Amount is parsed separately.
type ExpenseInput struct {
	Amount      string `label:"Amount"`
	ExpenseDate string `validate:"omitempty,isodate" label:"Expense date"`
	Category    string `validate:"max=50" label:"Category"`
	Description string `validate:"max=255" label:"Description"`
	BudgetID    string `validate:"omitempty,objectid" label:"Budget"`
}

func (in *ExpenseInput) normalize() {
	in.Amount = normalize.Text(in.Amount)
	in.ExpenseDate = normalize.Text(in.ExpenseDate)
	in.Category = normalize.Name(in.Category)
	in.Description = normalize.Text(in.Description)
	in.BudgetID = normalize.Text(in.BudgetID)
}

func amountMessage(err error) string {
	switch {
	case errors.Is(err, money.ErrNotPositive):
		return "Amount must be greater than 0."
	case errors.Is(err, money.ErrTooLarge):
		return "Amount is too large (max 99,999,999.99)."
	default:
		return "Please enter a valid amount."
	}
}

// AddExpense records an expense in the caller's active group. A selected
// budget must belong to that same group.
func (c *Controller) AddExpense(ctx context.Context, sess Session, token string, in ExpenseInput) (Result, error) {
	return c.run("add_expense", ExpensesPath, sess, token, func(f *flow) (string, error) {
		g, err := f.activeGroup(ctx)
		if err != nil {
			return "", err
		}

		in.normalize()
		cents, err := money.ParseCents(in.Amount)
		if err != nil {
			return "", invalid(amountMessage(err))
		}
		if in.ExpenseDate == "" {
			return "", invalid("Please select an expense date.")
		}
		if err := validate(in); err != nil {
			return "", err
		}
		date, _ := inputval.ParseDate(in.ExpenseDate)

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()

		e := models.Expense{
			GroupID:     g.ID,
			AmountCents: cents,
			Category:    in.Category,
			Description: in.Description,
			ExpenseDate: date,
			CreatedBy:   f.userID,
		}
		if in.BudgetID != "" {
			bid, _ := primitive.ObjectIDFromHex(in.BudgetID)
			if _, err := c.stores.Budgets.GetInGroup(ctx, g.ID, bid); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return "", invalid("Invalid budget selection.")
				}
				return "", storeErr("load budget", err)
			}
			e.BudgetID = &bid
		}
		f.advance(Authorized)

		created, err := c.stores.Expenses.Create(ctx, e)
		if err != nil {
			return "", storeErr("insert expense", err)
		}
		c.log.Info("expense added",
			zap.String("group_id", g.ID.Hex()),
			zap.String("expense_id", created.ID.Hex()),
			zap.Int64("amount_cents", cents))
		return "Expense added.", nil
	})
}

// DeleteExpense deletes an expense in the active group if the caller
// created it or owns the group.
func (c *Controller) DeleteExpense(ctx context.Context, sess Session, token, rawID string) (Result, error) {
	return c.run("delete_expense", ExpensesPath, sess, token, func(f *flow) (string, error) {
		g, err := f.activeGroup(ctx)
		if err != nil {
			return "", err
		}
		id, err := parseID(rawID)
		if err != nil {
			return "", err
		}

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()

		e, err := c.stores.Expenses.GetInGroup(ctx, g.ID, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", storeErr("load expense", err)
		}
		if !grouppolicy.CanMutateResource(f.userID, grouppolicy.Resource{GroupID: e.GroupID, CreatedBy: e.CreatedBy}, g) {
			return "", ErrForbidden
		}
		f.advance(Authorized)

		if _, err := c.stores.Expenses.DeleteInGroup(ctx, g.ID, id); err != nil {
			return "", storeErr("delete expense", err)
		}
		return "Expense deleted.", nil
	})
}
