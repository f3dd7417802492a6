package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/AMITPYT/trekPlanner/models"
)

// errorResponse представляет тело ответа с ошибкой.
// Errors заполняется только для ошибок валидации.
type errorResponse struct {
	Msg    string              `json:"msg"`
	Errors []models.FieldError `json:"errors,omitempty"`
}

// writeJSON кодирует v в тело ответа со статусом status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования ответа: %v", err)
	}
}

// writeError отправляет ошибку в формате {"msg": ...}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Msg: msg})
}

// writeValidationError отправляет 400 с перечнем всех невалидных полей.
func writeValidationError(w http.ResponseWriter, verr *models.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Msg: "Validation failed", Errors: verr.Fields})
}
