// internal/domain/models/budget.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Budget is a named spending window inside one group. Budgets are created
// and deleted, never edited.
type Budget struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	Name      string             `bson:"name" json:"name"`
	StartDate *time.Time         `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
