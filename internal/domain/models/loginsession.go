// internal/domain/models/loginsession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Login session end reasons.
const (
	EndReasonLogout   = "logout"
	EndReasonInactive = "inactive"
)

// LoginSession is the server-side record of one authenticated browser
// session. SessionID matches the "sid" value carried in the session cookie.
type LoginSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	UserID    primitive.ObjectID `bson:"user_id"`

	LoginAt      time.Time  `bson:"login_at"`
	LastActiveAt time.Time  `bson:"last_active_at"`
	LogoutAt     *time.Time `bson:"logout_at,omitempty"`
	EndReason    string     `bson:"end_reason,omitempty"` // "logout", "inactive", ""

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	DurationSecs int64 `bson:"duration_secs,omitempty"`
}
