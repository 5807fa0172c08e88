package promoapply

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/http/middlewarectx"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// MockService реализует интерфейс promoapply.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ApplyPromo(ctx context.Context, userID int64, code string) (*models.PromoResult, error) {
	args := m.Called(ctx, userID, code)
	if res := args.Get(0); res != nil {
		return res.(*models.PromoResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCounter реализует интерфейс promoapply.Counter
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func TestPromoApplyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		withUser       bool
		setupMocks     func(*MockService, *MockCounter)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешная активация",
			body:     `{"code":"PLUS10"}`,
			withUser: true,
			setupMocks: func(s *MockService, c *MockCounter) {
				c.On("IncrementAndGet", mock.Anything, "promo_cooldown:42", 5*time.Minute).
					Return(int64(1), nil)
				s.On("ApplyPromo", mock.Anything, int64(42), "PLUS10").
					Return(&models.PromoResult{DaysAdded: 10, NewEndDate: time.Now().AddDate(0, 0, 10)}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"days_added":10`,
		},
		{
			name:           "нет пользователя в контексте",
			body:           `{"code":"PLUS10"}`,
			withUser:       false,
			setupMocks:     func(_ *MockService, _ *MockCounter) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:           "ошибка валидации",
			body:           `{"code":""}`,
			withUser:       true,
			setupMocks:     func(_ *MockService, _ *MockCounter) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Code is a required field`,
		},
		{
			name:     "превышен лимит попыток",
			body:     `{"code":"PLUS10"}`,
			withUser: true,
			setupMocks: func(_ *MockService, c *MockCounter) {
				c.On("IncrementAndGet", mock.Anything, "promo_cooldown:42", 5*time.Minute).
					Return(int64(6), nil)
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `too many promo attempts`,
		},
		{
			name:     "код уже использован",
			body:     `{"code":"PLUS10"}`,
			withUser: true,
			setupMocks: func(s *MockService, c *MockCounter) {
				c.On("IncrementAndGet", mock.Anything, "promo_cooldown:42", 5*time.Minute).
					Return(int64(2), nil)
				s.On("ApplyPromo", mock.Anything, int64(42), "PLUS10").
					Return(nil, errs.ErrPromoAlreadyUsed)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"promo code already used"`,
		},
		{
			name:     "код просрочен",
			body:     `{"code":"PLUS10"}`,
			withUser: true,
			setupMocks: func(s *MockService, c *MockCounter) {
				c.On("IncrementAndGet", mock.Anything, "promo_cooldown:42", 5*time.Minute).
					Return(int64(2), nil)
				s.On("ApplyPromo", mock.Anything, int64(42), "PLUS10").
					Return(nil, errs.ErrPromoExpired)
			},
			expectedStatus: http.StatusGone,
			expectedBody:   `"error":"promo code expired"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockCounter := new(MockCounter)
			tt.setupMocks(mockService, mockCounter)

			handler := New(logger, mockService, mockCounter, 5, 5*time.Minute)

			req := httptest.NewRequest(http.MethodPost, "/subscription/promo", strings.NewReader(tt.body))
			if tt.withUser {
				ctx := context.WithValue(req.Context(), middlewarectx.UserID, int64(42))
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
			mockCounter.AssertExpectations(t)
		})
	}
}
