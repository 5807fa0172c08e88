// Package subscriptionaccess собирает приложение: хранилище, кеш, движок,
// маршруты HTTP и фоновые службы.
package subscriptionaccess

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mishkagorka/subscription-access/internal/cache"
	"github.com/mishkagorka/subscription-access/internal/config"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/auth/telegramlogin"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/payment/paymentwebhook"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/purchase/purchaselist"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/subscription/autorenewal"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/subscription/promoapply"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/subscription/status"
	"github.com/mishkagorka/subscription-access/internal/http/handlers/subscription/trial"
	"github.com/mishkagorka/subscription-access/internal/http/middlewarectx"
	"github.com/mishkagorka/subscription-access/internal/services/engine"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, eng *engine.Engine, cacheRedis *cache.Cache, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/telegram", telegramlogin.New(logger, eng).ServeHTTP)

		// Группа с проверкой токена доступа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AuthMiddleware(eng, logger))
			r.Use(middlewarectx.RateLimitMiddleware(cacheRedis,
				int64(cfg.RateLimit.MaxRequests), cfg.RateLimit.Window, logger))
			r.Get("/subscription", status.New(logger, eng).ServeHTTP)
			r.Post("/subscription/trial", trial.New(logger, eng).ServeHTTP)
			r.Post("/subscription/promo", promoapply.New(logger, eng, cacheRedis,
				int64(cfg.RateLimit.PromoAttempts), cfg.RateLimit.PromoCooldown).ServeHTTP)
			r.Delete("/subscription/auto-renewal", autorenewal.New(logger, eng).ServeHTTP)
			r.Get("/purchases", purchaselist.New(logger, eng).ServeHTTP)
		})

		// Вебхук платёжного провайдера (авторизуется общим секретом)
		r.Post("/payments/webhook", paymentwebhook.New(logger, eng, cfg.Payment.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
