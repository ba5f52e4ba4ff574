package services

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"shoplive/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims accepts tokens minted by the platform's auth service. The identity
// is user_id when present, otherwise sub.
type Claims struct {
	UserID   domain.UserID `json:"user_id,omitempty"`
	Username string        `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() domain.UserID {
	if c.UserID != "" {
		return c.UserID
	}
	return domain.UserID(c.Subject)
}

// AuthService only validates tokens; issuing them belongs to another service.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate validates the token and returns the identity it carries.
func (s *AuthService) Authenticate(tokenString string) (domain.UserID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Identity(), nil
}
