// Package telegramlogin реализует HTTP-обработчик входа через Telegram.
//
// Handler принимает JSON с полями виджета входа, проверяет подпись через
// движок и возвращает токен доступа вместе с состоянием подписки.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package telegramlogin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/response"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// Handler обрабатывает запросы входа через Telegram Login Widget.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики аутентификации
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Authenticate(ctx context.Context, fields map[string]string) (*models.AuthResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вход через Telegram
// @Description Проверяет подпись данных Telegram Login Widget и выдаёт токен доступа.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body map[string]string true "Поля виджета входа, включая hash"
// @Success 200 {object} map[string]any "Токен и состояние подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Подпись неверна или устарела"
// @Failure 503 {object} response.ErrorResponse "Кеш токенов недоступен"
// @Router /auth/telegram [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.telegramlogin"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	fields, err := decodeFields(r)
	if err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	result, err := h.service.Authenticate(r.Context(), fields)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrAuthenticationFailed):
			// Причина отказа намеренно не раскрывается.
			log.Info("authentication rejected")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("authentication failed"))
		case errors.Is(err, errs.ErrCacheUnavailable):
			log.Error("token cache unavailable", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("service temporarily unavailable"))
		default:
			log.Error("failed to authenticate", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not authenticate"))
		}
		return
	}

	log.Info("user logged in", slog.Int64("user_id", result.UserID))
	render.JSON(w, r, response.StatusOKWithData(result))
}

// decodeFields разбирает тело запроса в плоскую мапу строк: подпись
// считается от строковых представлений полей, числа не должны терять вид.
func decodeFields(r *http.Request) (map[string]string, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		default:
			return nil, errors.New("unsupported field type")
		}
	}
	return fields, nil
}
