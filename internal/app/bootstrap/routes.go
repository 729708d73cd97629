// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	budgetsfeature "github.com/dalemusser/fintrack/internal/app/features/budgets"
	dashboardfeature "github.com/dalemusser/fintrack/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/fintrack/internal/app/features/errors"
	expensesfeature "github.com/dalemusser/fintrack/internal/app/features/expenses"
	groupsfeature "github.com/dalemusser/fintrack/internal/app/features/groups"
	healthfeature "github.com/dalemusser/fintrack/internal/app/features/health"
	homefeature "github.com/dalemusser/fintrack/internal/app/features/home"
	loginfeature "github.com/dalemusser/fintrack/internal/app/features/login"
	logoutfeature "github.com/dalemusser/fintrack/internal/app/features/logout"
	registerfeature "github.com/dalemusser/fintrack/internal/app/features/register"
	_ "github.com/dalemusser/fintrack/internal/app/features/shared/views"
	userstore "github.com/dalemusser/fintrack/internal/app/store/users"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/limits"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	msgLoginLimited = "Too many login attempts. Please wait a few minutes and try again."
	msgJoinLimited  = "Too many join attempts. Please wait a few minutes and try again."
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// FinTrack initializes the template engine, applies session middleware,
// and mounts the public pages, the auth pages, and the four signed-in areas:
// dashboard, groups, budgets, and expenses.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	stores := deps.Stores

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Re-read the user on each request so a deleted account is signed out
	// immediately, and keep login sessions' last-active time current.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(stores.Users))
	sessionMgr.SetActivityTracker(stores.Sessions)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	wf := workflow.New(stores, logger, reg)

	rt := deps.Runtime
	if rt == nil {
		rt = &Runtime{}
	}
	rt.LoginLimit = ratelimit.NewAttemptLimiter(appCfg.LoginRateLimit*5, appCfg.LoginRateLimit, appCfg.LoginRateWindow, msgLoginLimited)
	rt.JoinLimit = ratelimit.NewAttemptLimiter(appCfg.LoginRateLimit*5, appCfg.LoginRateLimit, appCfg.LoginRateWindow, msgJoinLimited)

	proxies, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted_proxies: %w", err)
	}

	r := chi.NewRouter()
	// Client address for rate limits and login-session records.
	r.Use(proxies.RealIP)
	r.Use(limits.FormBody(limits.MaxFormSize))

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(stores.Health, appCfg.StoreBackend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Workflow outcome counters plus Go runtime metrics
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	homeHandler := homefeature.NewHandler(sessionMgr, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	registerHandler := registerfeature.NewHandler(stores.Users, stores.Sessions, sessionMgr, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	loginHandler := loginfeature.NewHandler(stores.Users, stores.Sessions, sessionMgr, rt.LoginLimit, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, stores.Sessions, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Signed-in areas
	dashboardHandler := dashboardfeature.NewHandler(stores, sessionMgr, wf, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	groupsHandler := groupsfeature.NewHandler(stores, sessionMgr, wf, rt.JoinLimit, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	budgetsHandler := budgetsfeature.NewHandler(stores, sessionMgr, wf, logger)
	r.Mount("/budgets", budgetsfeature.Routes(budgetsHandler, sessionMgr))

	expensesHandler := expensesfeature.NewHandler(stores, sessionMgr, wf, logger)
	r.Mount("/expenses", expensesfeature.Routes(expensesHandler, sessionMgr))

	return r, nil
}
