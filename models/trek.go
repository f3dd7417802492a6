package models

import (
	"time"

	"github.com/lib/pq"
)

// Допустимые значения сложности маршрута.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// ValidDifficulty проверяет, что значение входит в перечисление сложностей.
func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Trek представляет запись о походе (трек).
// Поле UserID - идентификатор пользователя-владельца; только владелец
// может изменять и удалять запись.
type Trek struct {
	ID         int64          `db:"id" json:"id"`
	UserID     int64          `db:"user_id" json:"user_id"`
	Name       string         `db:"name" json:"name"`
	Location   string         `db:"location" json:"location"`
	Difficulty string         `db:"difficulty" json:"difficulty"`
	Price      float64        `db:"price" json:"price"`
	Images     pq.StringArray `db:"images" json:"images"` // Упорядоченный список URL изображений
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// TrekRequest представляет тело запроса на создание или изменение трека.
// Указатели позволяют отличить отсутствующее поле от нулевого значения
// при частичном обновлении.
type TrekRequest struct {
	Name       *string  `json:"name"`
	Location   *string  `json:"location"`
	Difficulty *string  `json:"difficulty"`
	Price      *float64 `json:"price"`
	Images     []string `json:"images"`
}

// TrekListResponse представляет ответ на запрос списка треков с пагинацией.
// Total - общее количество записей без учета окна пагинации.
type TrekListResponse struct {
	Treks []Trek `json:"treks"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
