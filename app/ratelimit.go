package app

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows perMin requests per client IP and route in fixed one-minute
// windows counted in redis. A nil client or perMin <= 0 disables it. Redis
// errors let the request through.
func RateLimit(rdb *redis.Client, route string, perMin int) gin.HandlerFunc {
	if rdb == nil || perMin <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("kiosk:rl:%s:%s:%d", route, c.ClientIP(), window)

		pipe := rdb.TxPipeline()
		incr := pipe.Incr(c, key)
		pipe.Expire(c, key, time.Minute)
		if _, err := pipe.Exec(c); err != nil {
			c.Next()
			return
		}
		if incr.Val() > int64(perMin) {
			retry := 60 - time.Now().Unix()%60
			c.Header("Retry-After", strconv.FormatInt(retry, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"kind": "rate_limited", "message": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}
