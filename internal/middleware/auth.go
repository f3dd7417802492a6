package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AMITPYT/trekPlanner/models"
)

// Тип для ключа контекста.
type contextKey string

// Ключ для хранения ID пользователя в контексте.
const UserIDKey contextKey = "userID"

// AuthTokenHeader - заголовок, в котором клиент передает токен (без префикса Bearer).
// Имя заголовка - контракт с существующим фронтендом, менять нельзя.
const AuthTokenHeader = "X-Auth-Token"

// Authenticator возвращает middleware, проверяющий JWT токен аутентификации.
// Секретный ключ приходит из конфигурации сервера.
// До обработчика запрос доходит только в состоянии "аутентифицирован":
// ID пользователя кладется в контекст запроса, глобального состояния нет.
func Authenticator(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем токен из заголовка X-Auth-Token
			tokenString := r.Header.Get(AuthTokenHeader)
			if tokenString == "" {
				log.Printf("[AuthMiddleware] Заголовок %s отсутствует", AuthTokenHeader)
				writeUnauthorized(w, "No token, authorization denied")
				return
			}

			// Парсим и валидируем токен
			claims := &models.AuthClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				// Убеждаемся, что метод подписи - HS256
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
				}
				return secret, nil
			})

			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка парсинга/валидации токена: %v", err)
				writeUnauthorized(w, "Token is not valid")
				return
			}

			// Проверяем валидность токена (включая время жизни)
			if !token.Valid {
				log.Println("[AuthMiddleware] Предоставлен невалидный токен (возможно, истек)")
				writeUnauthorized(w, "Token is not valid")
				return
			}

			// Добавляем UserID в контекст запроса
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)

			log.Printf("[AuthMiddleware] Пользователь %d успешно аутентифицирован", claims.UserID)

			// Передаем управление следующему обработчику с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе 0 и false.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// writeUnauthorized отправляет 401 с телом вида {"msg": ...} - формат ответа
// совпадает с остальным API.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"msg": msg}); err != nil {
		log.Printf("[AuthMiddleware] Ошибка кодирования ответа: %v", err)
	}
}
