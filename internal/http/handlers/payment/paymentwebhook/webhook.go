// Package paymentwebhook реализует HTTP-обработчик уведомлений платёжного
// провайдера об успешной оплате.
//
// Запрос авторизуется общим секретом в заголовке X-Webhook-Secret,
// пользовательский токен не используется. Сверка секрета выполняется
// за постоянное время.
package paymentwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// Handler обрабатывает уведомления платёжного провайдера.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	secret   string
}

// Service описывает интерфейс бизнес-логики активации подписки.
type Service interface {
	Activate(ctx context.Context, req models.DummyActivate) (*models.AuthResult, error)
}

// New создает новый Handler с переданными зависимостями.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		secret:   secret,
	}
}

// ServeHTTP godoc
// @Summary Вебхук оплаты
// @Description Принимает подтверждение оплаты и активирует либо продлевает подписку.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param X-Webhook-Secret header string true "Общий секрет провайдера"
// @Param request body models.DummyActivate true "Данные оплаты"
// @Success 200 {object} map[string]any "Обновлённая подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paymentwebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		log.Error("invalid webhook secret")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.DummyActivate
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

	result, err := h.service.Activate(r.Context(), req)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidSubscriptionType) {
			log.Error("unknown subscription type", slog.String("subtype", req.Subtype))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown subscription type"))
			return
		}
		log.Error("failed to activate subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not activate subscription"))
		return
	}

	log.Info("payment processed",
		slog.Int64("user_id", req.UserID),
		slog.String("subtype", req.Subtype),
		slog.Bool("is_renewal", req.IsRenewal))
	render.JSON(w, r, response.StatusOKWithData(result))
}
