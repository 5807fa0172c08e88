// Package middlewarectx содержит HTTP middleware проверки токена доступа
// и ограничения частоты запросов.
//
// AuthMiddleware проверяет токен из заголовка Authorization через движок:
// токен должен иметь верную подпись и живую связку в кеше. При успехе
// идентификатор пользователя кладётся в контекст запроса.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserID — ключ для идентификатора пользователя в контексте.
const UserID Key = "user_id"

// TokenResolver описывает интерфейс проверки токена доступа.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (int64, error)
}

// AuthMiddleware возвращает HTTP middleware, проверяющий токен доступа.
//
// Если токен жив, добавляет идентификатор пользователя в контекст запроса,
// иначе возвращает 401 Unauthorized. Недоступность кеша отдаётся как 503:
// клиенту есть смысл повторить запрос, а не входить заново.
func AuthMiddleware(resolver TokenResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AuthMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := resolver.ResolveToken(r.Context(), tokenStr)
			if err != nil {
				if errors.Is(err, errs.ErrCacheUnavailable) {
					log.Error("token cache unavailable", sl.Err(err))
					render.Status(r, http.StatusServiceUnavailable)
					render.JSON(w, r, response.Error("service temporarily unavailable"))
					return
				}
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext достаёт идентификатор пользователя, положенный AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserID).(int64)
	return userID, ok
}
