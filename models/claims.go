package models

import "github.com/golang-jwt/jwt/v5"

// AuthClaims - пользовательские данные в JWT.
// Единое определение для выдачи токена (services) и его проверки (middleware),
// чтобы форма claims не могла разъехаться.
type AuthClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}
