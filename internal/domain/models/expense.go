// internal/domain/models/expense.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense is a single spend recorded against a group, optionally filed
// under one of the same group's budgets.
type Expense struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID  `bson:"group_id" json:"group_id"`
	BudgetID    *primitive.ObjectID `bson:"budget_id,omitempty" json:"budget_id,omitempty"`
	AmountCents int64               `bson:"amount_cents" json:"amount_cents"`
	Category    string              `bson:"category,omitempty" json:"category,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	ExpenseDate time.Time           `bson:"expense_date" json:"expense_date"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ExpenseTotals summarizes expenses over a date window.
type ExpenseTotals struct {
	TotalCents int64 `bson:"total_cents" json:"total_cents"`
	Count      int64 `bson:"count" json:"count"`
}
