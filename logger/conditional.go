package logger

import (
	"sync"

	"golang.org/x/time/rate"
)

// ConditionalLogger drops messages once a key exceeds its rate, so a single
// misconfigured account cannot flood the log on every auction.
type ConditionalLogger struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   Logger
}

// NewConditionalLogger allows burst messages per key and then limit messages per second.
func NewConditionalLogger(limit rate.Limit, burst int, l Logger) *ConditionalLogger {
	if l == nil {
		l = logger
	}
	return &ConditionalLogger{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		logger:   l,
	}
}

func (cl *ConditionalLogger) limiter(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	limiter, ok := cl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(cl.limit, cl.burst)
		cl.limiters[key] = limiter
	}
	return limiter
}

// Warnf logs msg as a warning unless key is over its rate. It reports whether the message was written.
func (cl *ConditionalLogger) Warnf(key string, msg string, args ...any) bool {
	if !cl.limiter(key).Allow() {
		return false
	}
	cl.logger.Warnf(msg, args...)
	return true
}

// Errorf logs msg as an error unless key is over its rate. It reports whether the message was written.
func (cl *ConditionalLogger) Errorf(key string, msg string, args ...any) bool {
	if !cl.limiter(key).Allow() {
		return false
	}
	cl.logger.Errorf(msg, args...)
	return true
}
