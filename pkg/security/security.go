package security

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// OriginWhitelist 可热更新的 CORS 白名单
type OriginWhitelist struct {
	mu      sync.RWMutex
	origins map[string]bool
}

func NewOriginWhitelist(origins []string) *OriginWhitelist {
	w := &OriginWhitelist{}
	w.Set(origins)
	return w
}

func (w *OriginWhitelist) Set(origins []string) {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		set[o] = true
	}
	w.mu.Lock()
	w.origins = set
	w.mu.Unlock()
}

func (w *OriginWhitelist) Allowed(origin string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.origins[origin] || w.origins["*"]
}

// CORS 中间件 仅允许白名单中的Origin，支持Credentials
func CORS(whitelist *OriginWhitelist) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && whitelist.Allowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 中间件
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按IP令牌桶限流，ctx 结束时停止过期条目清理
func RateLimiter(ctx context.Context, maxRequests int, window time.Duration) gin.HandlerFunc {
	store := make(map[string]*visitor)
	var mu sync.Mutex

	go func() {
		expiry := window * 3
		if expiry < time.Minute {
			expiry = time.Minute
		}
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range store {
					if time.Since(v.lastSeen) > expiry {
						delete(store, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	r := rate.Every(window / time.Duration(maxRequests))

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		v, exists := store[key]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(r, maxRequests)}
			store[key] = v
		}
		v.lastSeen = time.Now()
		mu.Unlock()

		if !v.limiter.Allow() {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
