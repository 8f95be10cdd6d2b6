package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QuotaLimiter caps how many searches one user (or IP) can run per window.
// Every search fans out to dozens of upstream calls, so the quota protects
// the TMDB and OMDb keys rather than this server.
type QuotaLimiter struct {
	redis       *redis.Client
	maxRequests int
	window      time.Duration
	trustProxy  bool
	logger      *log.Logger
}

// NewQuotaLimiter creates a limiter; maxRequests <= 0 disables it.
// X-Forwarded-For is only honoured when trustProxy is set.
func NewQuotaLimiter(client *redis.Client, maxRequests int, window time.Duration, trustProxy bool, logger *log.Logger) *QuotaLimiter {
	return &QuotaLimiter{
		redis:       client,
		maxRequests: maxRequests,
		window:      window,
		trustProxy:  trustProxy,
		logger:      logger,
	}
}

// Limit returns a middleware that rejects searches over quota with 429.
// Requests without a q parameter never reach upstream and are not counted.
func (q *QuotaLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.URL.Query().Get("q")) == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := q.Allow(r.Context(), q.identifier(r))
		if err != nil {
			// Redis trouble should not take search down with it.
			q.logger.Printf("Search quota check failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(q.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many searches. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identifier keys the quota by user when signed in, by client IP otherwise
func (q *QuotaLimiter) identifier(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}

	var ip string
	if q.trustProxy {
		ip = strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return "ip:" + ip
}

// Allow records one request for identifier and reports whether it fits in
// the sliding window.
func (q *QuotaLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if q.maxRequests <= 0 {
		return true, nil
	}

	key := "search_quota:" + identifier
	now := time.Now()
	windowStart := now.Add(-q.window).UnixNano()

	pipe := q.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, q.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("search quota pipeline: %w", err)
	}

	return countCmd.Val() < int64(q.maxRequests), nil
}
