// Package auth issues and verifies credentials for the hunt's accounts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

const (
	issuer          = "snakes-hunt"
	DefaultTokenTTL = 24 * time.Hour
)

var errEmptySubject = errors.New("token has no subject")

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	TeamID   string `json:"team_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService implements app.TokenService with HS256 tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken signs claims and returns the token with its expiry as a Unix
// timestamp.
func (s *JWTService) GenerateToken(claims app.Claims) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Username: claims.Username,
		Role:     string(claims.Role),
		TeamID:   claims.TeamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.AccountID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Unix(), nil
}

func (s *JWTService) ValidateToken(tokenString string) (app.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return app.Claims{}, err
	}
	if claims.Subject == "" {
		return app.Claims{}, errEmptySubject
	}
	return app.Claims{
		AccountID: claims.Subject,
		Username:  claims.Username,
		Role:      domain.Role(claims.Role),
		TeamID:    claims.TeamID,
	}, nil
}
