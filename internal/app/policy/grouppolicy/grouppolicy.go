// internal/app/policy/grouppolicy/grouppolicy.go

// Package grouppolicy answers who may do what inside a group. Membership
// and ownership are always read from the store; nothing here trusts a role
// or group id claimed by the client.
package grouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/activegroup"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Resource is anything owned by a group and attributed to its creator.
// Budgets and expenses share one deletion rule through it.
type Resource struct {
	GroupID   primitive.ObjectID
	CreatedBy primitive.ObjectID
}

// Policy checks membership and ownership against the store.
type Policy struct {
	groups      store.GroupStore
	memberships store.MembershipStore
}

func New(groups store.GroupStore, memberships store.MembershipStore) *Policy {
	return &Policy{groups: groups, memberships: memberships}
}

// IsMember reports whether a membership row exists for (groupID, userID).
// Returns an error if the store check fails, so callers can tell
// "not a member" (false, nil) from "could not check" (false, err).
func (p *Policy) IsMember(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error) {
	return p.memberships.Exists(ctx, groupID, userID)
}

// IsOwner reports whether the group exists and userID owns it.
func (p *Policy) IsOwner(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error) {
	g, err := p.groups.GetByID(ctx, groupID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.OwnerID == userID, nil
}

// CanMutateResource is true when res belongs to g and the user either
// created it or owns g.
func CanMutateResource(userID primitive.ObjectID, res Resource, g activegroup.GroupContext) bool {
	if res.GroupID != g.ID {
		return false
	}
	return res.CreatedBy == userID || g.OwnerID == userID
}

// CanLeave is true for any member except the owner. The caller must
// already have proven membership.
func CanLeave(userID primitive.ObjectID, g activegroup.GroupContext) bool {
	return g.OwnerID != userID
}

// CanRemoveMember lets the owner remove anyone but themself.
func CanRemoveMember(actorID, targetID primitive.ObjectID, g activegroup.GroupContext) bool {
	return g.OwnerID == actorID && targetID != g.OwnerID
}

// CanDeleteGroup is owner only.
func CanDeleteGroup(actorID primitive.ObjectID, g activegroup.GroupContext) bool {
	return g.OwnerID == actorID
}

// dummyHash is compared against when the group being joined does not
// exist, so a miss costs the same as a wrong secret.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fintrack-no-such-group"), bcrypt.DefaultCost)

// VerifySecret compares a submitted join secret against the group's hash.
// Pass an empty hash for a group that was not found.
func VerifySecret(hash, secret string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
