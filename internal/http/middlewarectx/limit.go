package middlewarectx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
)

var limiter = rate.NewLimiter(50, 100)

// Counter описывает счётчик запросов со скользящим окном в кеше.
type Counter interface {
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitMiddleware ограничивает частоту запросов: общий лимит процесса
// плюс счётчик на пользователя в кеше. Недоступный счётчик запрос не
// блокирует, иначе отказ Redis превращался бы в отказ всего API.
func RateLimitMiddleware(counter Counter, maxRequests int64, window time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Error("too many requests")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}

			key := "rate_limit:" + r.RemoteAddr
			if userID, ok := UserIDFromContext(r.Context()); ok {
				key = fmt.Sprintf("rate_limit:%d", userID)
			}

			count, err := counter.IncrementAndGet(r.Context(), key, window)
			if err != nil {
				log.Warn("rate limit counter unavailable", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if count > maxRequests {
				log.Info("rate limit exceeded", slog.String("key", key))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
