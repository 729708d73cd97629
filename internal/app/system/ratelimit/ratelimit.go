// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a rate limiter allowing limit requests per key in each
// window of duration. Call Close to stop its sweeper.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.sweep(duration * 2)
	return l
}

// Allow reports whether one more request from key fits in its window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests are left for key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	if rem := l.limit - w.count; rem > 0 {
		return rem
	}
	return 0
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// never read here; TrustedProxies.RealIP rewrites RemoteAddr for requests
// that arrive through a configured proxy.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AttemptLimiter guards credential checks (login, group join). It limits
// both the client IP and the subject being guessed at, so neither one
// address nor many addresses can hammer a single account or group.
type AttemptLimiter struct {
	ip      *Limiter
	subject *Limiter
	msg     string
}

// NewAttemptLimiter builds a limiter with ipLimit attempts per IP and
// subjectLimit attempts per subject in each window. msg is shown when an
// attempt is refused.
func NewAttemptLimiter(ipLimit, subjectLimit int, window time.Duration, msg string) *AttemptLimiter {
	return &AttemptLimiter{
		ip:      New(ipLimit, window),
		subject: New(subjectLimit, window),
		msg:     msg,
	}
}

// Check reports whether an attempt from r against subject may proceed.
// When it may not, the returned string is the user-facing reason.
func (a *AttemptLimiter) Check(r *http.Request, subject string) (bool, string) {
	if !a.ip.Allow(ClientIP(r)) {
		return false, a.msg
	}
	if key := strings.ToLower(strings.TrimSpace(subject)); key != "" {
		if !a.subject.Allow(key) {
			return false, a.msg
		}
	}
	return true, ""
}

// Succeeded forgets failed attempts against subject.
func (a *AttemptLimiter) Succeeded(subject string) {
	if key := strings.ToLower(strings.TrimSpace(subject)); key != "" {
		a.subject.Reset(key)
	}
}

// Close stops both sweepers.
func (a *AttemptLimiter) Close() {
	a.ip.Close()
	a.subject.Close()
}
