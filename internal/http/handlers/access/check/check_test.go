package check

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CheckAccess(ctx context.Context, userID int64) (access.Decision, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(access.Decision), args.Error(1)
}

func TestCheckHandler(t *testing.T) {
	expires := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "активный доступ",
			userID: "42",
			setupMock: func(m *MockService) {
				m.On("CheckAccess", mock.Anything, int64(42)).
					Return(access.Decision{Active: true, Reason: access.ReasonActive, ExpiresAt: &expires}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"decision":{"active":true,"reason":"ACTIVE","expires_at":"2025-04-01T00:00:00Z"}`,
		},
		{
			name:   "нет записи",
			userID: "7",
			setupMock: func(m *MockService) {
				m.On("CheckAccess", mock.Anything, int64(7)).
					Return(access.Decision{Reason: access.ReasonNoRecord}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"reason":"NO_RECORD"`,
		},
		{
			name:           "некорректный id",
			userID:         "me",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `failed to decode user id from url`,
		},
		{
			name:   "ошибка хранилища",
			userID: "8",
			setupMock: func(m *MockService) {
				m.On("CheckAccess", mock.Anything, int64(8)).Return(access.Decision{}, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not check access`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/access/"+tt.userID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userID", tt.userID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(sl.Discard(), mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
