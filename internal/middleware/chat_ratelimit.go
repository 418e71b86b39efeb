package middleware

import (
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
)

const (
	sendRatePerSecond = 1
	sendBurst         = 5
)

// SendLimiter throttles chat messages per user across HTTP and WebSocket
// sends: one message per second sustained, bursts of five.
type SendLimiter struct {
	set *limiterSet
}

func NewSendLimiter() *SendLimiter {
	return &SendLimiter{set: newLimiterSet(rate.Limit(sendRatePerSecond), sendBurst)}
}

// Allow consumes one send token for uid.
func (l *SendLimiter) Allow(uid string) bool {
	if l.set.Allow(uid) {
		return true
	}
	metrics.RateLimited.WithLabelValues("send").Inc()
	metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
	return false
}
