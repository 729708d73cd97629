// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends selectable with store_backend.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, logging and
// request limits live in WAFFLE's CoreConfig.
type AppConfig struct {
	// Store backend: "mongo" or "sqlite"
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// SQLite database file (only used if StoreBackend is "sqlite")
	SQLitePath string

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: fintrack-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime; also the login-session inactivity threshold

	// How often idle login sessions are closed
	SessionCleanupInterval time.Duration

	// Credential attempt throttling (login and group join)
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is believed.
	// Blank means client addresses come from the TCP peer only.
	TrustedProxies string
}
