package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

const (
	// Непривилегированный порт по умолчанию.
	defaultServerPort = "8080"

	defaultMinioEndpoint = "localhost:9000"
	defaultMinioBucket   = "trekplanner-images"

	// Переменные окружения.
	envServerPort  = "SERVER_PORT"
	envDatabaseDSN = "DATABASE_DSN"
	envJWTSecret   = "JWT_SECRET" //nolint:gosec // Это имя переменной окружения
	envMinioHost   = "MINIO_ENDPOINT"
	envMinioUser   = "MINIO_USER"
	envMinioPass   = "MINIO_PASSWORD"
	envMinioBucket = "MINIO_BUCKET"
)

// config хранит конфигурацию сервера.
type config struct {
	Port        string
	DatabaseDSN string
	JWTSecret   string

	MinioEndpoint string
	MinioUser     string
	MinioPassword string
	MinioBucket   string
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаг имеет приоритет над переменной окружения.
func parseFlags() (*config, error) {
	cfg := &config{}

	// Определяем флаги
	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска HTTP-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секретный ключ для подписи токенов (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.MinioEndpoint, "minio-endpoint", "",
		fmt.Sprintf("Адрес MinIO (env: %s, default: %s)", envMinioHost, defaultMinioEndpoint))
	flag.StringVar(&cfg.MinioUser, "minio-user", "",
		fmt.Sprintf("Логин MinIO (env: %s)", envMinioUser))
	flag.StringVar(&cfg.MinioPassword, "minio-password", "",
		fmt.Sprintf("Пароль MinIO (env: %s)", envMinioPass))
	flag.StringVar(&cfg.MinioBucket, "minio-bucket", "",
		fmt.Sprintf("Имя бакета для изображений (env: %s, default: %s)", envMinioBucket, defaultMinioBucket))

	// Парсим флаги
	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	applyEnv(&cfg.Port, envServerPort, defaultServerPort)
	applyEnv(&cfg.DatabaseDSN, envDatabaseDSN, "")
	applyEnv(&cfg.JWTSecret, envJWTSecret, "")
	applyEnv(&cfg.MinioEndpoint, envMinioHost, defaultMinioEndpoint)
	applyEnv(&cfg.MinioUser, envMinioUser, "")
	applyEnv(&cfg.MinioPassword, envMinioPass, "")
	applyEnv(&cfg.MinioBucket, envMinioBucket, defaultMinioBucket)

	// Проверяем обязательные параметры
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секретный ключ токенов (--jwt-secret или " + envJWTSecret + ")")
	}

	return cfg, nil
}

// applyEnv подставляет значение переменной окружения или значение по умолчанию,
// если флаг не был задан.
func applyEnv(dst *string, envKey, fallback string) {
	if *dst != "" {
		return
	}
	if value, ok := os.LookupEnv(envKey); ok {
		*dst = value
		return
	}
	*dst = fallback
}
