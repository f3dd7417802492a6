package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AMITPYT/trekPlanner/internal/repository"
	"github.com/AMITPYT/trekPlanner/internal/storage"
	"github.com/AMITPYT/trekPlanner/models"
)

// TrekService определяет интерфейс для сервиса работы с треками.
type TrekService interface {
	// ListTreks возвращает страницу треков и общее количество записей.
	ListTreks(ctx context.Context, page, limit int) (*models.TrekListResponse, error)
	// GetTrek возвращает трек по id. Проверки владельца нет: читать может любой.
	GetTrek(ctx context.Context, id int64) (*models.Trek, error)
	// CreateTrek валидирует поля и создает трек с владельцем userID.
	CreateTrek(ctx context.Context, userID int64, req *models.TrekRequest) (*models.Trek, error)
	// UpdateTrek изменяет переданные поля трека. Только для владельца.
	UpdateTrek(ctx context.Context, userID, id int64, req *models.TrekRequest) (*models.Trek, error)
	// DeleteTrek удаляет трек. Только для владельца.
	DeleteTrek(ctx context.Context, userID, id int64) error
	// AttachImage загружает изображение в объектное хранилище и добавляет
	// его URL в конец списка изображений трека. Только для владельца.
	AttachImage(ctx context.Context, userID, trekID int64, data io.Reader, size int64, contentType string) (*models.Trek, error)
	// DownloadImage возвращает содержимое изображения трека.
	// Отдаются только изображения, привязанные к треку; владение не проверяется.
	DownloadImage(ctx context.Context, trekID int64, objectName string) (io.ReadCloser, error)
}

// Загрузка файла в объектное хранилище может идти заметно дольше запроса к БД,
// поэтому у нее свой, более широкий таймаут.
const uploadTimeout = time.Minute

// Убедимся, что trekService удовлетворяет интерфейсу TrekService.
var _ TrekService = (*trekService)(nil)

type trekService struct {
	trekRepo    repository.TrekRepository
	fileStorage storage.FileStorage
}

// NewTrekService создает новый экземпляр сервиса треков.
func NewTrekService(trekRepo repository.TrekRepository, fileStorage storage.FileStorage) TrekService {
	return &trekService{trekRepo: trekRepo, fileStorage: fileStorage}
}

// isOwner - предикат владения записью. Не зависит от транспорта.
func isOwner(trek *models.Trek, userID int64) bool {
	return trek.UserID == userID
}

// ListTreks возвращает страницу треков в порядке создания.
func (s *trekService) ListTreks(ctx context.Context, page, limit int) (*models.TrekListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	offset := (page - 1) * limit

	treks, err := s.trekRepo.ListTreks(ctx, limit, offset)
	if err != nil {
		log.Printf("[TrekService] Ошибка репозитория при получении списка треков: %v", err)
		return nil, errInternal
	}

	total, err := s.trekRepo.CountTreks(ctx)
	if err != nil {
		log.Printf("[TrekService] Ошибка репозитория при подсчете треков: %v", err)
		return nil, errInternal
	}

	return &models.TrekListResponse{
		Treks: treks,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// GetTrek возвращает трек по id.
func (s *trekService) GetTrek(ctx context.Context, id int64) (*models.Trek, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	trek, err := s.trekRepo.GetTrekByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при получении трека %d: %v", id, err)
		return nil, errInternal
	}

	return trek, nil
}

// CreateTrek создает трек от имени userID.
func (s *trekService) CreateTrek(ctx context.Context, userID int64, req *models.TrekRequest) (*models.Trek, error) {
	// Собираем запись из запроса: отсутствующие поля остаются нулевыми
	// и отлавливаются валидацией
	trek := &models.Trek{UserID: userID, Images: []string{}}
	applyTrekRequest(trek, req)

	if verr := validateTrek(trek); verr != nil {
		log.Printf("[TrekService] Невалидные данные трека от пользователя %d: %v", userID, verr)
		return nil, verr
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	created, err := s.trekRepo.CreateTrek(ctx, trek)
	if err != nil {
		log.Printf("[TrekService] Ошибка репозитория при создании трека: %v", err)
		return nil, errInternal
	}

	log.Printf("[TrekService] Пользователь %d создал трек %d '%s'", userID, created.ID, created.Name)
	return created, nil
}

// UpdateTrek изменяет переданные поля трека после проверок существования и владения.
// Проверка существования идет строго раньше проверки владельца:
// для несуществующего id любой вызывающий получает ErrTrekNotFound.
func (s *trekService) UpdateTrek(ctx context.Context, userID, id int64, req *models.TrekRequest) (*models.Trek, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	trek, err := s.trekRepo.GetTrekByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при получении трека %d: %v", id, err)
		return nil, errInternal
	}

	if !isOwner(trek, userID) {
		log.Printf("[TrekService] Пользователь %d не владеет треком %d (владелец %d)", userID, id, trek.UserID)
		return nil, ErrPermissionDenied
	}

	// Накладываем переданные поля и перевалидируем итоговую запись
	applyTrekRequest(trek, req)
	if verr := validateTrek(trek); verr != nil {
		log.Printf("[TrekService] Невалидные данные при обновлении трека %d: %v", id, verr)
		return nil, verr
	}

	updated, err := s.trekRepo.UpdateTrek(ctx, trek)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			// Запись могла исчезнуть между чтением и обновлением
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при обновлении трека %d: %v", id, err)
		return nil, errInternal
	}

	log.Printf("[TrekService] Пользователь %d обновил трек %d", userID, id)
	return updated, nil
}

// DeleteTrek удаляет трек после проверок существования и владения.
// Повторное удаление уже удаленного id возвращает ErrTrekNotFound.
func (s *trekService) DeleteTrek(ctx context.Context, userID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	trek, err := s.trekRepo.GetTrekByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при получении трека %d: %v", id, err)
		return errInternal
	}

	if !isOwner(trek, userID) {
		log.Printf("[TrekService] Пользователь %d не владеет треком %d (владелец %d)", userID, id, trek.UserID)
		return ErrPermissionDenied
	}

	if err = s.trekRepo.DeleteTrek(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при удалении трека %d: %v", id, err)
		return errInternal
	}

	log.Printf("[TrekService] Пользователь %d удалил трек %d", userID, id)
	return nil
}

// AttachImage сохраняет изображение в объектное хранилище и дописывает
// его URL в список изображений трека.
func (s *trekService) AttachImage(
	ctx context.Context,
	userID, trekID int64,
	data io.Reader,
	size int64,
	contentType string,
) (*models.Trek, error) {
	lookupCtx, cancelLookup := context.WithTimeout(ctx, storeTimeout)
	defer cancelLookup()

	trek, err := s.trekRepo.GetTrekByID(lookupCtx, trekID)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при получении трека %d: %v", trekID, err)
		return nil, errInternal
	}

	if !isOwner(trek, userID) {
		log.Printf("[TrekService] Пользователь %d не владеет треком %d (владелец %d)", userID, trekID, trek.UserID)
		return nil, ErrPermissionDenied
	}

	uploadCtx, cancelUpload := context.WithTimeout(ctx, uploadTimeout)
	defer cancelUpload()

	objectKey := fmt.Sprintf("treks/%d/%s", trekID, uuid.NewString())
	if err = s.fileStorage.UploadFile(uploadCtx, objectKey, data, size, contentType); err != nil {
		log.Printf("[TrekService] Ошибка загрузки изображения для трека %d: %v", trekID, err)
		return nil, errInternal
	}

	trek.Images = append(trek.Images, s.fileStorage.ObjectURL(objectKey))

	storeCtx, cancelStore := context.WithTimeout(ctx, storeTimeout)
	defer cancelStore()

	updated, err := s.trekRepo.UpdateTrek(storeCtx, trek)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при обновлении трека %d: %v", trekID, err)
		return nil, errInternal
	}

	log.Printf("[TrekService] Пользователь %d добавил изображение '%s' к треку %d", userID, objectKey, trekID)
	return updated, nil
}

// DownloadImage открывает содержимое изображения трека для отдачи клиенту.
// Изображение отдается только если его URL числится в списке изображений трека:
// по чужим ключам внутри бакета ответ такой же, как по несуществующему треку.
func (s *trekService) DownloadImage(ctx context.Context, trekID int64, objectName string) (io.ReadCloser, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	trek, err := s.trekRepo.GetTrekByID(lookupCtx, trekID)
	if err != nil {
		if errors.Is(err, repository.ErrTrekNotFound) {
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekService] Ошибка репозитория при получении трека %d: %v", trekID, err)
		return nil, errInternal
	}

	objectKey := fmt.Sprintf("treks/%d/%s", trekID, objectName)
	if !hasImage(trek, s.fileStorage.ObjectURL(objectKey)) {
		log.Printf("[TrekService] Изображение '%s' не привязано к треку %d", objectKey, trekID)
		return nil, ErrTrekNotFound
	}

	// Поток читается обработчиком уже после возврата, поэтому скачивание
	// идет на контексте запроса, а не на коротком таймауте хранилища
	rc, err := s.fileStorage.DownloadFile(ctx, objectKey)
	if err != nil {
		log.Printf("[TrekService] Ошибка скачивания изображения '%s': %v", objectKey, err)
		return nil, errInternal
	}
	return rc, nil
}

// hasImage проверяет, что URL числится в списке изображений трека.
func hasImage(trek *models.Trek, url string) bool {
	for _, img := range trek.Images {
		if img == url {
			return true
		}
	}
	return false
}

// applyTrekRequest накладывает переданные (не nil) поля запроса на запись.
func applyTrekRequest(trek *models.Trek, req *models.TrekRequest) {
	if req.Name != nil {
		trek.Name = *req.Name
	}
	if req.Location != nil {
		trek.Location = *req.Location
	}
	if req.Difficulty != nil {
		trek.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		trek.Price = *req.Price
	}
	if req.Images != nil {
		trek.Images = req.Images
	}
}

// validateTrek проверяет инварианты записи и собирает ошибки по всем полям сразу.
func validateTrek(trek *models.Trek) *models.ValidationError {
	verr := &models.ValidationError{}
	if strings.TrimSpace(trek.Name) == "" {
		verr.Add("name", "Name is required")
	}
	if strings.TrimSpace(trek.Location) == "" {
		verr.Add("location", "Location is required")
	}
	if trek.Difficulty == "" {
		verr.Add("difficulty", "Difficulty is required")
	} else if !models.ValidDifficulty(trek.Difficulty) {
		verr.Add("difficulty", "Difficulty must be one of Easy, Medium, Hard")
	}
	if trek.Price < 0 {
		verr.Add("price", "Price must be positive")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Кастомные ошибки сервиса.
var (
	ErrTrekNotFound     = errors.New("трек не найден")
	ErrPermissionDenied = errors.New("доступ запрещен: не владелец записи")

	errInternal = errors.New("внутренняя ошибка сервера")
)
