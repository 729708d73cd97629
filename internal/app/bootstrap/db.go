// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/fintrack/internal/app/store/mongostore"
	"github.com/dalemusser/fintrack/internal/app/store/sqlite"
	"github.com/dalemusser/fintrack/internal/app/system/indexes"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured store backend and builds the store bundle.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Runtime: &Runtime{}}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	switch appCfg.StoreBackend {
	case BackendSQLite:
		db, err := sqlite.Open(ctx, appCfg.SQLitePath, logger)
		if err != nil {
			return DBDeps{}, fmt.Errorf("open sqlite store: %w", err)
		}
		deps.SQLite = db
		deps.Stores = db.Stores()
		return deps, nil

	case BackendMongo:
		opts := options.Client().
			ApplyURI(appCfg.MongoURI).
			SetMaxPoolSize(appCfg.MongoMaxPoolSize).
			SetMinPoolSize(appCfg.MongoMinPoolSize)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
		}
		db := client.Database(appCfg.MongoDatabase)
		logger.Info("connected to MongoDB",
			zap.String("database", appCfg.MongoDatabase),
			zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Stores = mongostore.New(db, logger)
		return deps, nil

	default:
		return DBDeps{}, fmt.Errorf("unknown store_backend %q", appCfg.StoreBackend)
	}
}

// EnsureSchema creates the MongoDB indexes. The SQLite backend migrates
// itself when it is opened.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Schema())
	defer cancel()
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
