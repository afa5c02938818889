package config

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type JWTClaims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a short-lived access token. Lifetime comes from
// ACCESS_TOKEN_EXPIRE_MINUTES (default 30).
func GenerateAccessToken(userID int64, username, role string) (string, error) {
	minutes := GetEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	return generateToken(userID, username, role, TokenTypeAccess, time.Duration(minutes)*time.Minute)
}

// GenerateRefreshToken issues a refresh token. Lifetime comes from
// REFRESH_TOKEN_EXPIRE_DAYS (default 7).
func GenerateRefreshToken(userID int64, username, role string) (string, error) {
	days := GetEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	return generateToken(userID, username, role, TokenTypeRefresh, time.Duration(days)*24*time.Hour)
}

func generateToken(userID int64, username, role, tokenType string, ttl time.Duration) (string, error) {
	claims := JWTClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ValidateToken parses the token and checks its type claim. API routes expect
// access tokens, the refresh endpoint expects refresh tokens.
func ValidateToken(tokenString, expectedType string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
