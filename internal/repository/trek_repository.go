package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/AMITPYT/trekPlanner/models"
)

// TrekRepository определяет методы для работы с записями треков в хранилище.
type TrekRepository interface {
	CreateTrek(ctx context.Context, trek *models.Trek) (*models.Trek, error)
	GetTrekByID(ctx context.Context, id int64) (*models.Trek, error)
	ListTreks(ctx context.Context, limit, offset int) ([]models.Trek, error)
	CountTreks(ctx context.Context) (int64, error)
	UpdateTrek(ctx context.Context, trek *models.Trek) (*models.Trek, error)
	DeleteTrek(ctx context.Context, id int64) error
}

// postgresTrekRepository реализует TrekRepository для PostgreSQL.
type postgresTrekRepository struct {
	db *sqlx.DB
}

// NewPostgresTrekRepository создает новый экземпляр репозитория треков для PostgreSQL.
func NewPostgresTrekRepository(db *sqlx.DB) TrekRepository {
	return &postgresTrekRepository{db: db}
}

// CreateTrek создает новую запись трека.
// Возвращает запись с присвоенными сервером id и временными метками.
func (r *postgresTrekRepository) CreateTrek(ctx context.Context, trek *models.Trek) (*models.Trek, error) {
	query := `INSERT INTO treks (user_id, name, location, difficulty, price, images)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, user_id, name, location, difficulty, price, images, created_at, updated_at`
	var created models.Trek

	err := r.db.GetContext(ctx, &created, query,
		trek.UserID, trek.Name, trek.Location, trek.Difficulty, trek.Price, trek.Images)
	if err != nil {
		log.Printf("[TrekRepo] Ошибка при создании трека '%s': %v", trek.Name, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание трека: %w", err)
	}

	log.Printf("[TrekRepo] Трек '%s' успешно создан с ID %d", created.Name, created.ID)
	return &created, nil
}

// GetTrekByID находит трек по его идентификатору.
func (r *postgresTrekRepository) GetTrekByID(ctx context.Context, id int64) (*models.Trek, error) {
	query := `SELECT id, user_id, name, location, difficulty, price, images, created_at, updated_at
	          FROM treks WHERE id=$1`
	var trek models.Trek

	err := r.db.GetContext(ctx, &trek, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[TrekRepo] Трек с ID %d не найден", id)
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekRepo] Ошибка при поиске трека %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение трека: %w", err)
	}

	return &trek, nil
}

// ListTreks возвращает страницу треков в порядке создания (по id).
// Список не фильтруется по владельцу: читать может любой аутентифицированный пользователь.
func (r *postgresTrekRepository) ListTreks(ctx context.Context, limit, offset int) ([]models.Trek, error) {
	query := `SELECT id, user_id, name, location, difficulty, price, images, created_at, updated_at
	          FROM treks ORDER BY id LIMIT $1 OFFSET $2`
	treks := []models.Trek{}

	err := r.db.SelectContext(ctx, &treks, query, limit, offset)
	if err != nil {
		log.Printf("[TrekRepo] Ошибка при получении списка треков (limit=%d, offset=%d): %v", limit, offset, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка треков: %w", err)
	}

	return treks, nil
}

// CountTreks возвращает общее количество треков без учета пагинации.
func (r *postgresTrekRepository) CountTreks(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM treks`)
	if err != nil {
		log.Printf("[TrekRepo] Ошибка при подсчете треков: %v", err)
		return 0, fmt.Errorf("ошибка выполнения запроса на подсчет треков: %w", err)
	}
	return total, nil
}

// UpdateTrek сохраняет изменяемые поля трека и возвращает обновленную запись.
// updated_at обновляется на стороне БД.
func (r *postgresTrekRepository) UpdateTrek(ctx context.Context, trek *models.Trek) (*models.Trek, error) {
	query := `UPDATE treks
	          SET name=$2, location=$3, difficulty=$4, price=$5, images=$6, updated_at=now()
	          WHERE id=$1
	          RETURNING id, user_id, name, location, difficulty, price, images, created_at, updated_at`
	var updated models.Trek

	err := r.db.GetContext(ctx, &updated, query,
		trek.ID, trek.Name, trek.Location, trek.Difficulty, trek.Price, trek.Images)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[TrekRepo] Трек с ID %d не найден при обновлении", trek.ID)
			return nil, ErrTrekNotFound
		}
		log.Printf("[TrekRepo] Ошибка при обновлении трека %d: %v", trek.ID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на обновление трека: %w", err)
	}

	log.Printf("[TrekRepo] Трек %d успешно обновлен", updated.ID)
	return &updated, nil
}

// DeleteTrek удаляет трек по идентификатору.
// Возвращает ErrTrekNotFound, если запись уже отсутствует.
func (r *postgresTrekRepository) DeleteTrek(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM treks WHERE id=$1`, id)
	if err != nil {
		log.Printf("[TrekRepo] Ошибка при удалении трека %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление трека: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества удаленных строк: %w", err)
	}
	if affected == 0 {
		log.Printf("[TrekRepo] Трек с ID %d не найден при удалении", id)
		return ErrTrekNotFound
	}

	log.Printf("[TrekRepo] Трек %d успешно удален", id)
	return nil
}

// Кастомная ошибка репозитория.
var (
	ErrTrekNotFound = errors.New("трек не найден")
)
