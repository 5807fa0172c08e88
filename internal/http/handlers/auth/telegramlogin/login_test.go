package telegramlogin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// MockService реализует интерфейс telegramlogin.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Authenticate(ctx context.Context, fields map[string]string) (*models.AuthResult, error) {
	args := m.Called(ctx, fields)
	if res := args.Get(0); res != nil {
		return res.(*models.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestTelegramLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный вход",
			body: `{"id":42,"first_name":"Ivan","auth_date":1700000000,"hash":"abc"}`,
			setupMock: func(m *MockService) {
				expected := map[string]string{
					"id":         "42",
					"first_name": "Ivan",
					"auth_date":  "1700000000",
					"hash":       "abc",
				}
				m.On("Authenticate", mock.Anything, expected).
					Return(&models.AuthResult{Token: "tok-abc", UserID: 42}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"tok-abc"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{broken`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name: "подпись не прошла проверку",
			body: `{"id":42,"auth_date":1700000000,"hash":"bad"}`,
			setupMock: func(m *MockService) {
				m.On("Authenticate", mock.Anything, mock.Anything).
					Return(nil, errs.ErrAuthenticationFailed)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"authentication failed"`,
		},
		{
			name: "кеш токенов недоступен",
			body: `{"id":42,"auth_date":1700000000,"hash":"abc"}`,
			setupMock: func(m *MockService) {
				m.On("Authenticate", mock.Anything, mock.Anything).
					Return(nil, errs.ErrCacheUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"error":"service temporarily unavailable"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/auth/telegram", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
