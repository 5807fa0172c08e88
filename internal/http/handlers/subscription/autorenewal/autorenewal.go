// Package autorenewal реализует HTTP-обработчик отключения автопродления.
// Доступ сохраняется до конца оплаченного периода.
package autorenewal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/middlewarectx"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
)

// Handler обрабатывает запросы отключения автопродления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики автопродления.
type Service interface {
	DisableAutoRenewal(ctx context.Context, userID int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отключить автопродление
// @Description Выключает автопродление подписки текущего пользователя. Повторный вызов безвреден.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Автопродление отключено"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписки нет"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription/auto-renewal [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.autorenewal"
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

	if err := h.service.DisableAutoRenewal(r.Context(), userID); err != nil {
		if errors.Is(err, errs.ErrNoSubscription) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("no subscription"))
			return
		}
		log.Error("failed to disable auto renewal", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not disable auto renewal"))
		return
	}

	log.Info("auto renewal disabled", slog.Int64("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
