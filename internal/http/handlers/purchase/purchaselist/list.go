// Package purchaselist реализует HTTP-обработчик получения истории покупок
// текущего пользователя.
package purchaselist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/mishkagorka/subscription-access/internal/http/middlewarectx"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// Handler обрабатывает запросы истории покупок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики истории покупок.
type Service interface {
	Purchases(ctx context.Context, userID int64) ([]models.Purchase, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История покупок
// @Description Возвращает журнал покупок текущего пользователя, новые первыми.
// @Tags Purchases
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список покупок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchases [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.purchaselist"
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

	purchases, err := h.service.Purchases(r.Context(), userID)
	if err != nil {
		log.Error("failed to list purchases", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list purchases"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"purchases": purchases,
	}))
}
