package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/AMITPYT/trekPlanner/internal/repository"
	"github.com/AMITPYT/trekPlanner/models"
)

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	// Register регистрирует пользователя и сразу возвращает JWT токен (регистрация = вход).
	Register(ctx context.Context, name, email, password string) (string, error)
	// Login аутентифицирует пользователя и возвращает JWT токен.
	Login(ctx context.Context, email, password string) (string, error)
}

const (
	// Таймаут на обращение к хранилищу: операция не должна виснуть бесконечно.
	storeTimeout = 3 * time.Second

	minPasswordLen = 6

	tokenIssuer = "trekplanner-server"
)

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo  repository.UserRepository // Зависимость от репозитория пользователей
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
// Секретный ключ и время жизни токена приходят из конфигурации сервера.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register регистрирует нового пользователя и возвращает JWT токен.
func (s *authService) Register(ctx context.Context, name, email, password string) (string, error) {
	if verr := validateRegisterInput(name, email, password); verr != nil {
		log.Printf("[AuthService] Невалидные данные регистрации для '%s': %v", email, verr)
		return "", verr
	}

	// Email храним в нижнем регистре: уникальность не зависит от регистра
	email = strings.ToLower(email)

	// Хешируем пароль (bcrypt добавляет уникальную соль на запись)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AuthService] Ошибка хеширования пароля для '%s': %v", email, err)
		return "", errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	userID, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			log.Printf("[AuthService] Попытка регистрации с занятым email: %s", email)
			return "", ErrEmailTaken // Возвращаем ошибку слоя сервиса
		}
		log.Printf("[AuthService] Непредвиденная ошибка репозитория при регистрации '%s': %v", email, err)
		return "", errors.New("внутренняя ошибка сервера при создании пользователя")
	}

	// Регистрация подразумевает вход: сразу выдаем токен
	token, err := s.generateJWT(userID)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", email, err)
		return "", errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно зарегистрирован (ID: %d)", email, userID)
	return token, nil
}

// Login аутентифицирует пользователя и возвращает JWT токен.
// Несуществующий email и неверный пароль дают одну и ту же ошибку,
// чтобы не раскрывать, какие адреса зарегистрированы.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", email)
			return "", ErrInvalidCredentials
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", email, err)
		return "", errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	// Сравниваем предоставленный пароль с хешем из базы данных
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		log.Printf("[AuthService] Неверный пароль для пользователя: %s", email)
		return "", ErrInvalidCredentials
	}

	token, err := s.generateJWT(user.ID)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", email, err)
		return "", errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно аутентифицирован", email)
	return token, nil
}

// generateJWT создает и подписывает JWT токен для пользователя.
func (s *authService) generateJWT(userID int64) (string, error) {
	claims := models.AuthClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)), // Время истечения
			IssuedAt:  jwt.NewNumericDate(time.Now()),                 // Время выдачи
			NotBefore: jwt.NewNumericDate(time.Now()),                 // Время, с которого токен валиден
			Issuer:    tokenIssuer,                                    // Источник токена
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}

	return signedToken, nil
}

// validateRegisterInput проверяет поля регистрации и собирает ошибки по всем полям сразу.
func validateRegisterInput(name, email, password string) *models.ValidationError {
	verr := &models.ValidationError{}
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "Name is required")
	}
	if strings.TrimSpace(email) == "" {
		verr.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "Email is invalid")
	}
	if password == "" {
		verr.Add("password", "Password is required")
	} else if len(password) < minPasswordLen {
		verr.Add("password", "Password must be at least 6 characters")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrEmailTaken         = errors.New("email уже занят")
)
