package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/AMITPYT/trekPlanner/internal/services"
	"github.com/AMITPYT/trekPlanner/models"
)

// AuthService определяет интерфейс для сервиса аутентификации.
// Это позволит нам легко подменять реализацию (например, для тестов).
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service AuthService // Зависимость от интерфейса, а не конкретной реализации
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Signup обрабатывает запрос на регистрацию нового пользователя.
// При успехе сразу возвращает токен: регистрация подразумевает вход.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса регистрации: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log.Printf("[AuthHandler] Попытка регистрации пользователя: %s", req.Email)

	token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationError(w, verr)
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			log.Printf("[AuthHandler] Внутренняя ошибка при регистрации '%s': %v", req.Email, err)
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
	log.Printf("[AuthHandler] Успешная регистрация для: %s", req.Email)
}

// Login обрабатывает запрос на вход пользователя.
// Неизвестный email и неверный пароль дают одинаковый ответ.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса входа: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log.Printf("[AuthHandler] Попытка входа пользователя: %s", req.Email)

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "Invalid credentials")
		} else {
			log.Printf("[AuthHandler] Внутренняя ошибка при входе '%s': %v", req.Email, err)
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
	log.Printf("[AuthHandler] Успешный вход для: %s", req.Email)
}
