package middleware

import (
	"fmt"
	"net/http"

	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware applies the fixed-window limiter per client ip. The
// public redemption endpoints sit behind this so a script cannot brute force
// access code secrets.
func (m Middleware) RateLimitMiddleware(ctx *gin.Context) {
	if m.rateLimiter == nil || !m.rateLimiter.Enabled() {
		ctx.Next()
		return
	}

	allowed, retryAfter := m.rateLimiter.Allow(ctx.ClientIP())
	if !allowed {
		ctx.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
		util.ResponseFailed(ctx, http.StatusTooManyRequests, "Too many requests", nil, nil)
		ctx.Abort()
		return
	}

	ctx.Next()
}
