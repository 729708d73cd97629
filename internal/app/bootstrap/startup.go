// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// FinTrack applies timeout overrides from the environment and starts the
// worker that closes login sessions idle for longer than the cookie lifetime.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}

	if deps.Runtime != nil && deps.Stores.Sessions != nil && appCfg.SessionCleanupInterval > 0 {
		w := workers.NewSessionCleanup(deps.Stores.Sessions, logger, appCfg.SessionCleanupInterval, appCfg.SessionMaxAge)
		w.Start()
		deps.Runtime.Cleanup = w
	}
	return nil
}
