package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateGroupInput is the create-group form. Secret is the shared join
// password; bcrypt only reads the first 72 bytes.
type CreateGroupInput struct {
	Name   string `validate:"required,max=100" label:"Group name"`
	Secret string `validate:"required,maxbytes=72" label:"Group password"`
}

// JoinGroupInput is the join-group form.
type JoinGroupInput struct {
	Name   string
	Secret string
}

// CreateGroup creates a group owned by the caller, adds them as its first
// member and makes it their active group.
func (c *Controller) CreateGroup(ctx context.Context, sess Session, token string, in CreateGroupInput) (Result, error) {
	return c.run("create_group", GroupsPath, sess, token, func(f *flow) (string, error) {
		in.Name = normalize.Name(in.Name)
		if err := validate(in); err != nil {
			return "", err
		}
		f.advance(Authorized)

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Secret), c.hashCost)
		if err != nil {
			return "", storeErr("hash group secret", err)
		}

		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), c.log, "create group")
		defer cancel()
		g, err := c.stores.Groups.CreateWithOwner(ctx, models.Group{
			Name:         in.Name,
			PasswordHash: string(hash),
			OwnerID:      f.userID,
		})
		if errors.Is(err, store.ErrDuplicateGroupName) {
			return "", invalid("A group with that name already exists. Please choose a different name.")
		}
		if err != nil {
			return "", storeErr("create group", err)
		}

		f.sess.SetActiveGroup(g.ID)
		c.log.Info("group created",
			zap.String("group_id", g.ID.Hex()),
			zap.String("owner_id", f.userID.Hex()))
		return "Group created.", nil
	})
}

// JoinGroup adds the caller to the named group when the secret matches.
// An unknown name and a wrong secret give the same answer.
func (c *Controller) JoinGroup(ctx context.Context, sess Session, token string, in JoinGroupInput) (Result, error) {
	return c.run("join_group", GroupsPath, sess, token, func(f *flow) (string, error) {
		name := normalize.Name(in.Name)
		if name == "" || in.Secret == "" {
			return "", invalid("Please provide both group name and password.")
		}

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()

		g, err := c.stores.Groups.GetByName(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			grouppolicy.VerifySecret("", in.Secret)
			return "", invalid("Group name or password is incorrect.")
		case err != nil:
			return "", storeErr("find group", err)
		}
		if !grouppolicy.VerifySecret(g.PasswordHash, in.Secret) {
			return "", invalid("Group name or password is incorrect.")
		}
		f.advance(Authorized)

		// The unique (group_id, user_id) index decides a race between two
		// joins for the same user.
		if err := c.stores.Memberships.Add(ctx, g.ID, f.userID); err != nil {
			if errors.Is(err, store.ErrDuplicateMembership) {
				return "", invalid("You are already a member of that group.")
			}
			return "", storeErr("add membership", err)
		}

		f.sess.SetActiveGroup(g.ID)
		c.log.Info("group joined",
			zap.String("group_id", g.ID.Hex()),
			zap.String("user_id", f.userID.Hex()))
		return "Joined " + g.Name + ".", nil
	})
}

// SetActiveGroup points the session at another of the caller's groups.
func (c *Controller) SetActiveGroup(ctx context.Context, sess Session, token, rawGroupID string) (Result, error) {
	return c.run("set_active_group", GroupsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.namedGroup(ctx, rawGroupID)
		if err != nil {
			return "", err
		}
		f.advance(Authorized)
		f.sess.SetActiveGroup(g.ID)
		return "Active group updated.", nil
	})
}

// LeaveGroup removes the caller's own membership. Owners cannot leave;
// they delete the group instead.
func (c *Controller) LeaveGroup(ctx context.Context, sess Session, token, rawGroupID string) (Result, error) {
	return c.run("leave_group", GroupsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.namedGroup(ctx, rawGroupID)
		if err != nil {
			return "", err
		}
		if !grouppolicy.CanLeave(f.userID, g) {
			return "", invalid("Group owners can't leave. Delete the group instead.")
		}
		f.advance(Authorized)

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()
		if _, err := c.stores.Memberships.Remove(ctx, g.ID, f.userID); err != nil {
			return "", storeErr("remove membership", err)
		}
		f.clearIfActive(g.ID)
		return "You have left the group.", nil
	})
}

// RemoveMember lets the owner remove another member.
func (c *Controller) RemoveMember(ctx context.Context, sess Session, token, rawGroupID, rawUserID string) (Result, error) {
	return c.run("remove_member", GroupsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.namedGroup(ctx, rawGroupID)
		if err != nil {
			return "", err
		}
		if !g.IsOwner(f.userID) {
			return "", ErrForbidden
		}
		target, err := parseID(rawUserID)
		if err != nil {
			return "", err
		}
		if !grouppolicy.CanRemoveMember(f.userID, target, g) {
			return "", invalid("You can't remove yourself.")
		}
		f.advance(Authorized)

		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()
		n, err := c.stores.Memberships.Remove(ctx, g.ID, target)
		if err != nil {
			return "", storeErr("remove membership", err)
		}
		c.log.Info("member removed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("member_id", target.Hex()),
			zap.Int64("removed", n))
		return "Member removed.", nil
	})
}

// DeleteGroup deletes the group and everything in it. Owner only.
func (c *Controller) DeleteGroup(ctx context.Context, sess Session, token, rawGroupID string) (Result, error) {
	return c.run("delete_group", GroupsPath, sess, token, func(f *flow) (string, error) {
		g, err := f.namedGroup(ctx, rawGroupID)
		if err != nil {
			return "", err
		}
		if !grouppolicy.CanDeleteGroup(f.userID, g) {
			return "", ErrForbidden
		}
		f.advance(Authorized)

		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), c.log, "delete group cascade")
		defer cancel()
		if _, err := c.stores.Groups.DeleteCascade(ctx, g.ID); err != nil {
			return "", storeErr("delete group", err)
		}
		f.clearIfActive(g.ID)
		c.log.Info("group deleted",
			zap.String("group_id", g.ID.Hex()),
			zap.String("owner_id", f.userID.Hex()))
		return "Group deleted.", nil
	})
}

func (f *flow) clearIfActive(gid primitive.ObjectID) {
	if cur, ok := f.sess.ActiveGroupID(); ok && cur == gid {
		f.sess.ClearActiveGroup()
	}
}
