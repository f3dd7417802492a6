package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AMITPYT/trekPlanner/internal/repository"
	"github.com/AMITPYT/trekPlanner/internal/services"
	"github.com/AMITPYT/trekPlanner/models"
)

const (
	testJWTSecret = "test-secret-key"
	testTokenTTL  = time.Hour
)

// --- Mock UserRepository --- //

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1) //nolint:errcheck // Допустимо для моков
}

// Вспомогательная функция: извлекает user_id из токена.
func parseTestToken(t *testing.T, token string) int64 {
	t.Helper()
	claims := struct {
		UserID int64 `json:"user_id"`
		jwt.RegisteredClaims
	}{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims.UserID
}

func TestNewAuthService(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockUserRepo, testJWTSecret, testTokenTTL)
	require.NotNil(t, authService)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		userName      string
		email         string
		password      string
		mockSetup     func(mockUserRepo *MockUserRepository)
		expectedError error
		checkFields   []string // Поля, которые должны фигурировать в ошибке валидации
	}{
		{
			name:     "Успешная регистрация",
			userName: "Test User",
			email:    "Test@Example.com",
			password: "password123",
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
					Run(func(args mock.Arguments) {
						user := args.Get(1).(*models.User) //nolint:errcheck // Допустимо для моков
						// Email должен быть приведен к нижнему регистру
						assert.Equal(t, "test@example.com", user.Email)
						// Пароль хранится только в виде bcrypt-хеша
						assert.NoError(t, bcrypt.CompareHashAndPassword(
							[]byte(user.PasswordHash), []byte("password123")))
					}).
					Return(int64(1), nil).Once()
			},
		},
		{
			name:          "Email занят",
			userName:      "Test User",
			email:         "taken@example.com",
			password:      "password123",
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
					Return(int64(0), repository.ErrEmailTaken).Once()
			},
			expectedError: services.ErrEmailTaken,
		},
		{
			name:          "Ошибка репозитория",
			userName:      "Test User",
			email:         "test@example.com",
			password:      "password123",
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
					Return(int64(0), errors.New("some db error")).Once()
			},
			expectedError: errors.New("внутренняя ошибка сервера при создании пользователя"),
		},
		{
			name:        "Пустые поля: ошибки по всем полям сразу",
			userName:    "",
			email:       "",
			password:    "",
			mockSetup:   func(_ *MockUserRepository) {},
			checkFields: []string{"name", "email", "password"},
		},
		{
			name:        "Невалидный email и короткий пароль",
			userName:    "Test User",
			email:       "not-an-email",
			password:    "123",
			mockSetup:   func(_ *MockUserRepository) {},
			checkFields: []string{"email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			tt.mockSetup(mockUserRepo)

			authService := services.NewAuthService(mockUserRepo, testJWTSecret, testTokenTTL)
			token, err := authService.Register(ctx, tt.userName, tt.email, tt.password)

			switch {
			case len(tt.checkFields) > 0:
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				gotFields := make([]string, 0, len(verr.Fields))
				for _, f := range verr.Fields {
					gotFields = append(gotFields, f.Field)
				}
				assert.ElementsMatch(t, tt.checkFields, gotFields)
			case tt.expectedError != nil:
				require.Error(t, err)
				require.EqualError(t, err, tt.expectedError.Error())
			default:
				require.NoError(t, err)
				// Токен должен верифицироваться в ID нового пользователя
				assert.Equal(t, int64(1), parseTestToken(t, token))
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	password := "password123"
	userID := int64(7)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	storedUser := &models.User{ID: userID, Email: email, PasswordHash: string(hash)}

	tests := []struct {
		name          string
		password      string
		mockSetup     func(mockUserRepo *MockUserRepository)
		expectedError error
	}{
		{
			name:     "Успешный вход",
			password: password,
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, email).Return(storedUser, nil).Once()
			},
		},
		{
			name:     "Несуществующий пользователь",
			password: password,
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, email).
					Return(nil, repository.ErrUserNotFound).Once()
			},
			expectedError: services.ErrInvalidCredentials,
		},
		{
			name:     "Неверный пароль",
			password: "wrongpassword",
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, email).Return(storedUser, nil).Once()
			},
			expectedError: services.ErrInvalidCredentials,
		},
		{
			name:     "Ошибка репозитория",
			password: password,
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, email).
					Return(nil, errors.New("some db error")).Once()
			},
			expectedError: errors.New("внутренняя ошибка сервера при поиске пользователя"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUserRepo := new(MockUserRepository)
			tt.mockSetup(mockUserRepo)

			authService := services.NewAuthService(mockUserRepo, testJWTSecret, testTokenTTL)
			token, err := authService.Login(ctx, email, tt.password)

			if tt.expectedError != nil {
				require.Error(t, err)
				require.EqualError(t, err, tt.expectedError.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, userID, parseTestToken(t, token))
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

// Ошибка входа не должна различать "нет пользователя" и "неверный пароль".
func TestAuthService_Login_UniformError(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetUserByEmail", mock.Anything, "known@example.com").
		Return(&models.User{ID: 1, PasswordHash: string(hash)}, nil).Once()
	mockUserRepo.On("GetUserByEmail", mock.Anything, "unknown@example.com").
		Return(nil, repository.ErrUserNotFound).Once()

	authService := services.NewAuthService(mockUserRepo, testJWTSecret, testTokenTTL)

	_, errWrongPass := authService.Login(ctx, "known@example.com", "wrong")
	_, errNoUser := authService.Login(ctx, "unknown@example.com", "wrong")

	require.Error(t, errWrongPass)
	require.Error(t, errNoUser)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

// Просроченный токен не должен проходить верификацию.
func TestAuthService_TokenExpiry(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").
		Return(&models.User{ID: 1, PasswordHash: string(hash)}, nil).Once()

	// Сервис с отрицательным TTL выдает уже истекшие токены
	authService := services.NewAuthService(mockUserRepo, testJWTSecret, -time.Minute)
	token, err := authService.Login(ctx, "test@example.com", "password123")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

// Регистрация с занятым email в другом регистре тоже должна падать:
// сервис приводит email к нижнему регистру перед сохранением.
func TestAuthService_Register_CaseInsensitiveEmail(t *testing.T) {
	ctx := context.Background()

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "taken@example.com"
	})).Return(int64(0), repository.ErrEmailTaken).Once()

	authService := services.NewAuthService(mockUserRepo, testJWTSecret, testTokenTTL)
	_, err := authService.Register(ctx, "Test User", "TAKEN@EXAMPLE.COM", "password123")

	require.ErrorIs(t, err, services.ErrEmailTaken)
	mockUserRepo.AssertExpectations(t)
}
