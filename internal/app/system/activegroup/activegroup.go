// Package activegroup decides which group a signed-in user's actions apply
// to. The session holds a pointer to the last selected group; the resolver
// checks it against memberships on every request and heals it when the
// membership or the group has gone away.
package activegroup

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupContext identifies the group a request operates on.
type GroupContext struct {
	ID      primitive.ObjectID
	Name    string
	OwnerID primitive.ObjectID
}

// IsOwner reports whether userID owns the group.
func (g GroupContext) IsOwner(userID primitive.ObjectID) bool {
	return g.OwnerID == userID
}

// Session is the part of the session the resolver reads and writes.
type Session interface {
	UserID() (primitive.ObjectID, bool)
	ActiveGroupID() (primitive.ObjectID, bool)
	SetActiveGroup(id primitive.ObjectID)
	ClearActiveGroup()
}

// Resolver resolves and repairs the active group pointer.
type Resolver struct {
	groups      store.GroupStore
	memberships store.MembershipStore
	log         *zap.Logger
}

func New(groups store.GroupStore, memberships store.MembershipStore, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{groups: groups, memberships: memberships, log: log}
}

// Resolve returns the caller's active group, or nil when the user belongs
// to no group (or is not signed in). A store error leaves the pointer
// untouched and is returned to the caller.
func (r *Resolver) Resolve(ctx context.Context, sess Session) (*GroupContext, error) {
	userID, ok := sess.UserID()
	if !ok {
		return nil, nil
	}

	if gid, ok := sess.ActiveGroupID(); ok {
		g, err := r.verify(ctx, gid, userID)
		if err != nil {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
		r.log.Debug("active group pointer is stale; clearing",
			zap.String("user_id", userID.Hex()),
			zap.String("group_id", gid.Hex()))
		sess.ClearActiveGroup()
	}

	lctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	latest, err := r.groups.LatestForUser(lctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest group for user: %w", err)
	}

	sess.SetActiveGroup(latest.ID)
	return &GroupContext{ID: latest.ID, Name: latest.Name, OwnerID: latest.OwnerID}, nil
}

// verify returns the group when userID is still a member of it and it
// still exists, nil when either check fails.
func (r *Resolver) verify(ctx context.Context, groupID, userID primitive.ObjectID) (*GroupContext, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	member, err := r.memberships.Exists(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, nil
	}

	g, err := r.groups.GetByID(ctx, groupID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &GroupContext{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}, nil
}
