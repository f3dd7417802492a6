package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMITPYT/trekPlanner/internal/middleware"
	"github.com/AMITPYT/trekPlanner/models"
)

const testJWTSecret = "test-secret-key"

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		expectedID int64
		expectedOK bool
	}{
		{
			name:       "Контекст с UserID",
			ctx:        context.WithValue(context.Background(), middleware.UserIDKey, int64(123)),
			expectedID: 123,
			expectedOK: true,
		},
		{
			name:       "Пустой контекст",
			ctx:        context.Background(),
			expectedID: 0,
			expectedOK: false,
		},
		{
			name:       "Контекст с UserID неверного типа",
			ctx:        context.WithValue(context.Background(), middleware.UserIDKey, "not-an-int64"),
			expectedID: 0,
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok := middleware.GetUserIDFromContext(tt.ctx)
			assert.Equal(t, tt.expectedID, userID)
			assert.Equal(t, tt.expectedOK, ok)
		})
	}
}

// Вспомогательная функция для генерации JWT токена.
// Использует тот же тип claims, что и выдающая сторона.
func generateTestToken(t *testing.T, userID int64, secretKey string, expiresAt time.Time) string {
	t.Helper()
	claims := models.AuthClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secretKey))
	require.NoError(t, err)
	return signed
}

func TestAuthenticator(t *testing.T) {
	testUserID := int64(42)

	tests := []struct {
		name           string
		tokenHeader    func(t *testing.T) string // Пустая строка - заголовок не ставим
		expectedStatus int
		expectHandler  bool // Должен ли запрос дойти до обработчика
	}{
		{
			name:           "Валидный токен",
			tokenHeader:    func(t *testing.T) string { return generateTestToken(t, testUserID, testJWTSecret, time.Now().Add(time.Hour)) },
			expectedStatus: http.StatusOK,
			expectHandler:  true,
		},
		{
			name:           "Заголовок отсутствует",
			tokenHeader:    func(_ *testing.T) string { return "" },
			expectedStatus: http.StatusUnauthorized,
			expectHandler:  false,
		},
		{
			name:           "Мусор вместо токена",
			tokenHeader:    func(_ *testing.T) string { return "not-a-jwt-token" },
			expectedStatus: http.StatusUnauthorized,
			expectHandler:  false,
		},
		{
			name:           "Токен подписан другим секретом",
			tokenHeader:    func(t *testing.T) string { return generateTestToken(t, testUserID, "wrong-secret", time.Now().Add(time.Hour)) },
			expectedStatus: http.StatusUnauthorized,
			expectHandler:  false,
		},
		{
			name:           "Истекший токен",
			tokenHeader:    func(t *testing.T) string { return generateTestToken(t, testUserID, testJWTSecret, time.Now().Add(-time.Hour)) },
			expectedStatus: http.StatusUnauthorized,
			expectHandler:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			var gotUserID int64

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				userID, ok := middleware.GetUserIDFromContext(r.Context())
				require.True(t, ok)
				gotUserID = userID
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/treks", nil)
			if token := tt.tokenHeader(t); token != "" {
				req.Header.Set(middleware.AuthTokenHeader, token)
			}
			rr := httptest.NewRecorder()

			middleware.Authenticator(testJWTSecret)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectHandler, handlerCalled)
			if tt.expectHandler {
				assert.Equal(t, testUserID, gotUserID)
			}
		})
	}
}

// Токен с алгоритмом, отличным от HMAC, должен отклоняться.
func TestAuthenticator_WrongSigningMethod(t *testing.T) {
	// "alg":"none" не пройдет проверку метода подписи
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, models.AuthClaims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/treks", nil)
	req.Header.Set(middleware.AuthTokenHeader, noneToken)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("обработчик не должен вызываться")
	})
	middleware.Authenticator(testJWTSecret)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Token is not valid")
}

// Проверяем формат тела ответа при отсутствии токена.
func TestAuthenticator_MissingTokenBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/treks", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {})
	middleware.Authenticator(testJWTSecret)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"msg":%q}`, "No token, authorization denied"), rr.Body.String())
}
