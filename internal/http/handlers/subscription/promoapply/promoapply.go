// Package promoapply реализует HTTP-обработчик активации промокода.
//
// Перед обращением к бизнес-логике проверяется счётчик попыток в кеше:
// перебор кодов ограничивается независимо от общего лимита запросов.
package promoapply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/middlewarectx"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// Handler обрабатывает запросы активации промокодов.
type Handler struct {
	log      *slog.Logger
	service  Service
	counter  Counter
	validate *validator.Validate

	maxAttempts int64
	cooldown    time.Duration
}

// Service описывает интерфейс бизнес-логики промокодов.
type Service interface {
	ApplyPromo(ctx context.Context, userID int64, code string) (*models.PromoResult, error)
}

// Counter описывает счётчик попыток со скользящим окном.
type Counter interface {
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error)
}

// New создает новый Handler с переданными зависимостями.
func New(log *slog.Logger, service Service, counter Counter, maxAttempts int64, cooldown time.Duration) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		counter:     counter,
		validate:    validator.New(),
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
	}
}

// ServeHTTP godoc
// @Summary Активировать промокод
// @Description Добавляет дни промокода к подписке текущего пользователя. Каждый код активируется не более одного раза.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyPromoApply true "Промокод"
// @Success 200 {object} map[string]any "Добавленные дни и новая дата окончания"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Промокод или подписка не найдены"
// @Failure 409 {object} response.ErrorResponse "Промокод уже использован"
// @Failure 410 {object} response.ErrorResponse "Промокод просрочен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription/promo [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.promoapply"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.DummyPromoApply
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	key := fmt.Sprintf("promo_cooldown:%d", userID)
	attempts, err := h.counter.IncrementAndGet(r.Context(), key, h.cooldown)
	if err != nil {
		log.Warn("promo attempt counter unavailable", sl.Err(err))
	} else if attempts > h.maxAttempts {
		log.Info("promo attempts exceeded", slog.Int64("user_id", userID))
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("too many promo attempts, try again later"))
		return
	}

	result, err := h.service.ApplyPromo(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrPromoNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("promo code not found"))
		case errors.Is(err, errs.ErrPromoExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, response.Error("promo code expired"))
		case errors.Is(err, errs.ErrPromoAlreadyUsed):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("promo code already used"))
		case errors.Is(err, errs.ErrNoSubscription):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("no subscription"))
		default:
			log.Error("failed to apply promo", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not apply promo code"))
		}
		return
	}

	log.Info("promo applied", slog.Int64("user_id", userID), slog.Int("days_added", result.DaysAdded))
	render.JSON(w, r, response.StatusOKWithData(result))
}
