// Package timeouts holds the deadlines applied to store calls and other
// blocking I/O. Handlers and the workflow controller pick a class by the
// shape of the call:
//   - Ping: store reachability checks
//   - Short: point reads and single-row writes
//   - Medium: listings, totals, the active-group fallback lookup
//   - Long: group creation and cascade deletes, connecting to the backend
//   - Schema: index builds at startup
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure or ConfigureFromEnv overrides them.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultSchema = 60 * time.Second
)

// Config is a set of overrides. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Schema time.Duration
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Schema: DefaultSchema,
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Schema() time.Duration { return get(func(c Config) time.Duration { return c.Schema }) }

// fields pairs each class with its environment key and its slot in c.
func fields(c *Config) []struct {
	env string
	dst *time.Duration
} {
	return []struct {
		env string
		dst *time.Duration
	}{
		{"FINTRACK_TIMEOUT_PING", &c.Ping},
		{"FINTRACK_TIMEOUT_SHORT", &c.Short},
		{"FINTRACK_TIMEOUT_MEDIUM", &c.Medium},
		{"FINTRACK_TIMEOUT_LONG", &c.Long},
		{"FINTRACK_TIMEOUT_SCHEMA", &c.Schema},
	}
}

// Configure applies the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	src := fields(&cfg)
	for i, f := range fields(&cur) {
		if v := *src[i].dst; v > 0 {
			*f.dst = v
		}
	}
}

// ConfigureFromEnv reads FINTRACK_TIMEOUT_{PING,SHORT,MEDIUM,LONG,SCHEMA}
// as Go durations ("500ms", "2m"). Unset, unparsable and non-positive
// values are ignored. Returns how many classes were overridden.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, f := range fields(&cfg) {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*f.dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// Current returns the values in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning
// naming the operation when the deadline was what ended it.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
