package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a token bucket keyed by user (falling back to client IP)
// with per-route costs: a pipeline question consumes more budget than a
// template lookup, since it fans out to the graph and possibly an LLM.
type RateLimiter struct {
	mu            sync.RWMutex
	buckets       map[string]*bucket
	burst         float64
	refillPerSec  float64
	costs         map[string]int
	logger        *zap.Logger
	cleanupTicker *time.Ticker
}

type Config struct {
	// TokensPerMinute is the sustained budget; Burst the bucket capacity.
	TokensPerMinute int
	Burst           int
	// Costs maps a path prefix to its token cost. Unlisted paths cost 1.
	Costs  map[string]int
	Logger *zap.Logger
}

func New(cfg Config) *RateLimiter {
	if cfg.TokensPerMinute == 0 {
		cfg.TokensPerMinute = 120
	}
	if cfg.Burst == 0 {
		cfg.Burst = 30
	}
	if cfg.Costs == nil {
		cfg.Costs = map[string]int{
			"/api/v1/question":  5,
			"/api/v1/templates": 2,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	rl := &RateLimiter{
		buckets:       make(map[string]*bucket),
		burst:         float64(cfg.Burst),
		refillPerSec:  float64(cfg.TokensPerMinute) / 60.0,
		costs:         cfg.Costs,
		logger:        cfg.Logger,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if userID := c.Get("X-User-ID"); userID != "" {
			key = userID
		}

		cost := rl.costFor(c.Path())

		if !rl.allow(key, cost) {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Path()),
				zap.Int("cost", cost),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return c.Next()
	}
}

func (rl *RateLimiter) costFor(path string) int {
	for prefix, cost := range rl.costs {
		if strings.HasPrefix(path, prefix) {
			return cost
		}
	}
	return 1
}

func (rl *RateLimiter) allow(key string, cost int) bool {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		b, exists = rl.buckets[key]
		if !exists {
			b = &bucket{
				tokens:     rl.burst,
				lastRefill: time.Now(),
			}
			rl.buckets[key] = b
		}
		rl.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * rl.refillPerSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastRefill = now

	if b.tokens >= float64(cost) {
		b.tokens -= float64(cost)
		return true
	}

	return false
}

func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			b.mu.Lock()
			stale := now.Sub(b.lastRefill) > 10*time.Minute
			b.mu.Unlock()
			if stale {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}
