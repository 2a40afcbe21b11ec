package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiterConfig holds the per-client limits.
type RateLimiterConfig struct {
	QuestionsPerMinute int
	UploadsPerHour     int
	BurstSize          int
	CleanupInterval    time.Duration
}

// TokenBucket implements a token bucket rate limiter.
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	return int(min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate)))
}

// ClientRateLimiter manages rate limits per client address.
type ClientRateLimiter struct {
	config         RateLimiterConfig
	questionLimits map[string]*TokenBucket
	uploadLimits   map[string]*TokenBucket
	mu             sync.RWMutex
	logger         *zap.Logger
	stopCleanup    chan struct{}
}

func NewClientRateLimiter(config RateLimiterConfig, logger *zap.Logger) *ClientRateLimiter {
	limiter := &ClientRateLimiter{
		config:         config,
		questionLimits: make(map[string]*TokenBucket),
		uploadLimits:   make(map[string]*TokenBucket),
		logger:         logger,
		stopCleanup:    make(chan struct{}),
	}
	go limiter.cleanupRoutine()
	return limiter
}

func (crl *ClientRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(crl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			crl.cleanup()
		case <-crl.stopCleanup:
			return
		}
	}
}

// cleanup drops all buckets once the maps grow large. Clients simply start
// from a full bucket again.
func (crl *ClientRateLimiter) cleanup() {
	crl.mu.Lock()
	defer crl.mu.Unlock()

	if len(crl.questionLimits) > 1000 {
		crl.logger.Info("Cleaning up rate limiter cache", zap.Int("question_limiters", len(crl.questionLimits)))
		crl.questionLimits = make(map[string]*TokenBucket)
		crl.uploadLimits = make(map[string]*TokenBucket)
	}
}

func (crl *ClientRateLimiter) Stop() {
	close(crl.stopCleanup)
}

// AllowQuestion checks if a chat request can proceed for the client.
func (crl *ClientRateLimiter) AllowQuestion(client string) bool {
	crl.mu.Lock()
	bucket, exists := crl.questionLimits[client]
	if !exists {
		refillRate := float64(crl.config.QuestionsPerMinute) / 60.0
		bucket = NewTokenBucket(float64(crl.config.BurstSize), refillRate)
		crl.questionLimits[client] = bucket
	}
	crl.mu.Unlock()

	return bucket.Allow()
}

// AllowUpload checks if a document upload can proceed for the client.
func (crl *ClientRateLimiter) AllowUpload(client string) bool {
	crl.mu.Lock()
	bucket, exists := crl.uploadLimits[client]
	if !exists {
		refillRate := float64(crl.config.UploadsPerHour) / 3600.0
		bucket = NewTokenBucket(float64(crl.config.UploadsPerHour), refillRate)
		crl.uploadLimits[client] = bucket
	}
	crl.mu.Unlock()

	return bucket.Allow()
}

// QuestionLimit returns remaining question tokens for a client.
func (crl *ClientRateLimiter) QuestionLimit(client string) (remaining int, limit int) {
	crl.mu.RLock()
	bucket, exists := crl.questionLimits[client]
	crl.mu.RUnlock()

	if !exists {
		return crl.config.BurstSize, crl.config.BurstSize
	}
	return bucket.Remaining(), crl.config.BurstSize
}

// RateLimitMiddleware enforces the named limit ("question" or "upload") per
// client IP.
func RateLimitMiddleware(limiter *ClientRateLimiter, limitType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()

		var allowed bool
		var remaining, limit int
		switch limitType {
		case "question":
			allowed = limiter.AllowQuestion(client)
			remaining, limit = limiter.QuestionLimit(client)
		case "upload":
			allowed = limiter.AllowUpload(client)
			remaining, limit = limiter.config.UploadsPerHour, limiter.config.UploadsPerHour
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown limit type"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			limiter.logger.Warn("Rate limit exceeded",
				zap.String("client", client),
				zap.String("limit_type", limitType),
				zap.Int("limit", limit))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
