// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a household or shared wallet that budgets and expenses belong to.
//
// NOTE:
//   - Members are not embedded on Group.
//     All membership is stored in the group_memberships collection.
//   - NameCI carries the unique index; two groups may not differ only by case.
//   - PasswordHash is the bcrypt hash of the shared join secret.
type Group struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"name_ci"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	OwnerID      primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
