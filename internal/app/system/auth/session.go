package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/flash"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SessionContext is the per-request view of the signed cookie session. It
// is the only place that reads or writes session values.
type SessionContext struct {
	r    *http.Request
	sess *sessions.Session
}

// Context returns the session bound to r. A cookie that fails to decode
// (rotated key, tampering) yields an empty session.
func (m *SessionManager) Context(r *http.Request) *SessionContext {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			m.log.Warn("session store error, using fresh session", zap.Error(err))
		}
	}
	return &SessionContext{r: r, sess: sess}
}

// UserID returns the signed-in user's id.
func (c *SessionContext) UserID() (primitive.ObjectID, bool) {
	return c.objectID(userIDKey)
}

// DisplayName returns the cached full name of the signed-in user.
func (c *SessionContext) DisplayName() string {
	return c.getString(userNameKey)
}

// SessionID returns the login-session identifier minted at sign in.
func (c *SessionContext) SessionID() string {
	return c.getString(sidKey)
}

// ActiveGroupID returns the active group pointer. It may be stale; the
// active-group resolver verifies it against memberships.
func (c *SessionContext) ActiveGroupID() (primitive.ObjectID, bool) {
	return c.objectID(activeGroupKey)
}

func (c *SessionContext) SetActiveGroup(id primitive.ObjectID) {
	c.sess.Values[activeGroupKey] = id.Hex()
}

func (c *SessionContext) ClearActiveGroup() {
	delete(c.sess.Values, activeGroupKey)
}

// CSRFSecret returns the session's CSRF secret, creating it on first use.
func (c *SessionContext) CSRFSecret() (string, error) {
	if s := c.getString(csrfSecretKey); s != "" {
		return s, nil
	}
	s, err := newSecret()
	if err != nil {
		return "", err
	}
	c.sess.Values[csrfSecretKey] = s
	return s, nil
}

// SetFlash queues the outcome message for the next page load.
func (c *SessionContext) SetFlash(m flash.Message) {
	c.sess.AddFlash(m)
}

// Flash pops the pending message. Only the most recent one is returned.
func (c *SessionContext) Flash() (flash.Message, bool) {
	var (
		out   flash.Message
		found bool
	)
	for _, v := range c.sess.Flashes() {
		if m, ok := v.(flash.Message); ok {
			out, found = m, true
		}
	}
	return out, found
}

// BeginAuthenticated replaces whatever the session held with a fresh
// identity, a new session id and a new CSRF secret. It returns the session id.
func (c *SessionContext) BeginAuthenticated(u SessionUser) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	sid := uuid.NewString()

	for k := range c.sess.Values {
		delete(c.sess.Values, k)
	}
	c.sess.Values[userIDKey] = u.ID
	c.sess.Values[userNameKey] = u.Name
	c.sess.Values[userEmailKey] = u.Email
	c.sess.Values[csrfSecretKey] = secret
	c.sess.Values[sidKey] = sid
	return sid, nil
}

// Destroy drops every value and expires the cookie.
func (c *SessionContext) Destroy(w http.ResponseWriter) error {
	for k := range c.sess.Values {
		delete(c.sess.Values, k)
	}
	opts := *c.sess.Options
	opts.MaxAge = -1
	c.sess.Options = &opts
	return c.sess.Save(c.r, w)
}

// Save writes the session cookie.
func (c *SessionContext) Save(w http.ResponseWriter) error {
	return c.sess.Save(c.r, w)
}

func (c *SessionContext) getString(key string) string {
	if v, ok := c.sess.Values[key].(string); ok {
		return v
	}
	return ""
}

func (c *SessionContext) objectID(key string) (primitive.ObjectID, bool) {
	s := c.getString(key)
	if s == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
