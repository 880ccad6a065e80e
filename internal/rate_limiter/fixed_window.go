package ratelimiter

import (
	"sync"
	"time"

	"github.com/SeakMengs/CertGate/internal/config"
	"go.uber.org/zap"
)

// FixedWindowRateLimiter counts requests per client in fixed time windows.
// A client's counter is dropped one window after its first request, so the
// cap applies per window, not as a sliding average.
type FixedWindowRateLimiter struct {
	sync.RWMutex
	clients map[string]int
	limit   int
	window  time.Duration
	enabled bool
	logger  *zap.SugaredLogger
}

func NewFixedWindowLimiter(cfg config.RateLimiterConfig, logger *zap.SugaredLogger) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]int),
		limit:   cfg.RequestsPerTimeFrame,
		window:  cfg.TimeFrame,
		enabled: cfg.Enabled,
		logger:  logger,
	}
}

func (rl *FixedWindowRateLimiter) Enabled() bool {
	return rl.enabled
}

// Allow reports whether the client may proceed, and when not, how long until
// the current window resets.
func (rl *FixedWindowRateLimiter) Allow(clientId string) (bool, time.Duration) {
	if !rl.enabled {
		return true, 0
	}

	rl.Lock()
	defer rl.Unlock()

	count, exists := rl.clients[clientId]
	if count >= rl.limit {
		rl.logger.Debugf("Rate limit exceeded for client: %s", clientId)
		return false, rl.window
	}

	if !exists {
		go rl.resetCount(clientId)
	}
	rl.clients[clientId] = count + 1

	return true, 0
}

func (rl *FixedWindowRateLimiter) resetCount(clientId string) {
	time.Sleep(rl.window)

	rl.Lock()
	delete(rl.clients, clientId)
	rl.Unlock()
}
