package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AMITPYT/trekPlanner/internal/middleware"
	"github.com/AMITPYT/trekPlanner/internal/services"
	"github.com/AMITPYT/trekPlanner/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// TrekHandler обрабатывает HTTP-запросы, связанные с треками.
type TrekHandler struct {
	trekService services.TrekService
}

// NewTrekHandler создает новый экземпляр TrekHandler.
func NewTrekHandler(ts services.TrekService) *TrekHandler {
	return &TrekHandler{trekService: ts}
}

// List обрабатывает GET запрос на получение списка треков с пагинацией.
// Список общий для всех аутентифицированных пользователей, без фильтра по владельцу.
func (h *TrekHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[TrekHandler:List] Не удалось получить userID из контекста")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	// Параметры пагинации: невалидные значения заменяются значениями по умолчанию
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	log.Printf("[TrekHandler:List] Запрос списка треков от пользователя %d (page=%d, limit=%d)", userID, page, limit)

	resp, err := h.trekService.ListTreks(r.Context(), page, limit)
	if err != nil {
		log.Printf("[TrekHandler:List] Внутренняя ошибка при получении списка треков: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get обрабатывает GET запрос на получение трека по id.
// Проверки владельца нет: читать может любой аутентифицированный пользователь.
func (h *TrekHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := trekIDFromURL(w, r)
	if !ok {
		return
	}

	trek, err := h.trekService.GetTrek(r.Context(), id)
	if err != nil {
		h.respondTrekError(w, "Get", id, err)
		return
	}

	writeJSON(w, http.StatusOK, trek)
}

// Create обрабатывает POST запрос на создание трека.
// Владельцем записи становится вызывающий пользователь.
func (h *TrekHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[TrekHandler:Create] Не удалось получить userID из контекста")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	var req models.TrekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[TrekHandler:Create] Ошибка декодирования запроса: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trek, err := h.trekService.CreateTrek(r.Context(), userID, &req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		log.Printf("[TrekHandler:Create] Внутренняя ошибка при создании трека: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, trek)
	log.Printf("[TrekHandler:Create] Пользователь %d создал трек %d", userID, trek.ID)
}

// Update обрабатывает PUT запрос на изменение трека. Только для владельца.
func (h *TrekHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[TrekHandler:Update] Не удалось получить userID из контекста")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	id, ok := trekIDFromURL(w, r)
	if !ok {
		return
	}

	var req models.TrekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[TrekHandler:Update] Ошибка декодирования запроса: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trek, err := h.trekService.UpdateTrek(r.Context(), userID, id, &req)
	if err != nil {
		h.respondTrekError(w, "Update", id, err)
		return
	}

	writeJSON(w, http.StatusOK, trek)
	log.Printf("[TrekHandler:Update] Пользователь %d обновил трек %d", userID, id)
}

// Delete обрабатывает DELETE запрос на удаление трека. Только для владельца.
func (h *TrekHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[TrekHandler:Delete] Не удалось получить userID из контекста")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	id, ok := trekIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.trekService.DeleteTrek(r.Context(), userID, id); err != nil {
		h.respondTrekError(w, "Delete", id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"msg": "Trek removed"})
	log.Printf("[TrekHandler:Delete] Пользователь %d удалил трек %d", userID, id)
}

// UploadImage обрабатывает POST запрос на загрузку изображения трека.
// Тело запроса - бинарное содержимое файла, размер берется из Content-Length.
func (h *TrekHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[TrekHandler:UploadImage] Не удалось получить userID из контекста")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	id, ok := trekIDFromURL(w, r)
	if !ok {
		return
	}

	// Размер файла берем из поля запроса: для тел неизвестной длины
	// (chunked) сервер выставляет -1
	size := r.ContentLength
	if size <= 0 {
		log.Printf("[TrekHandler:UploadImage] Неверный или отсутствующий Content-Length: %d", size)
		writeError(w, http.StatusBadRequest, "Invalid or missing Content-Length header")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		// По умолчанию считаем бинарным потоком
		contentType = "application/octet-stream"
	}

	trek, err := h.trekService.AttachImage(r.Context(), userID, id, r.Body, size, contentType)
	if err != nil {
		h.respondTrekError(w, "UploadImage", id, err)
		return
	}

	writeJSON(w, http.StatusOK, trek)
	log.Printf("[TrekHandler:UploadImage] Пользователь %d добавил изображение к треку %d", userID, id)
}

// DownloadImage обрабатывает GET запрос на скачивание изображения трека.
// Проверки владельца нет: читать изображения может любой аутентифицированный пользователь.
func (h *TrekHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := trekIDFromURL(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	rc, err := h.trekService.DownloadImage(r.Context(), id, name)
	if err != nil {
		h.respondTrekError(w, "DownloadImage", id, err)
		return
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			log.Printf("[TrekHandler:DownloadImage] Ошибка закрытия потока изображения: %v", closeErr)
		}
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err = io.Copy(w, rc); err != nil {
		// Заголовки уже ушли: остается только залогировать обрыв
		log.Printf("[TrekHandler:DownloadImage] Ошибка отдачи изображения трека %d: %v", id, err)
	}
}

// respondTrekError переводит ошибки сервиса треков в HTTP-ответы.
// Несуществующая запись дает 404 раньше, чем проверка владельца даст 403.
func (h *TrekHandler) respondTrekError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, services.ErrTrekNotFound):
		writeError(w, http.StatusNotFound, "Trek not found")
	case errors.Is(err, services.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "Not authorized")
	default:
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		log.Printf("[TrekHandler:%s] Внутренняя ошибка для трека %d: %v", op, id, err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// trekIDFromURL разбирает параметр {id} маршрута.
// Нечисловой id означает несуществующую запись - отвечаем 404.
func trekIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		log.Printf("[TrekHandler] Невалидный id трека в URL: %q", idStr)
		writeError(w, http.StatusNotFound, "Trek not found")
		return 0, false
	}
	return id, true
}
