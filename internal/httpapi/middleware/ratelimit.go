package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimit limits authenticated callers per user. Limiter failures let the request through.
func RateLimit(l ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UserID(c)
		if !ok || l == nil {
			c.Next()
			return
		}
		allowed, err := l.Allow(c.Request.Context(), "user:"+strconv.FormatUint(uid, 10))
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Uint64("user_id", uid), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			common.FailErr(c, common.RateLimited("too many requests, slow down"))
			return
		}
		c.Next()
	}
}
