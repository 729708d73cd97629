// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/store/sqlite"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. Exactly one of
// the Mongo pair or SQLite is set, matching the configured backend.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	SQLite        *sqlite.DB

	// Stores is the backend-neutral view every feature uses.
	Stores store.Stores

	// Runtime carries the long-lived pieces Startup and BuildHandler create
	// and Shutdown stops. DBDeps is passed by value, so it is a pointer.
	Runtime *Runtime
}

// Runtime holds background workers and limiters owned by the app.
type Runtime struct {
	Cleanup    *workers.SessionCleanup
	LoginLimit *ratelimit.AttemptLimiter
	JoinLimit  *ratelimit.AttemptLimiter
}
