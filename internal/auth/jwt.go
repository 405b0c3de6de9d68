package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	browserTokenExpiry = 365 * 24 * time.Hour // browser identity cookie
	browserIssuer      = "paydesk"
)

// BrowserClaims identifies one browser profile. The subject is the browser ID.
type BrowserClaims struct {
	jwt.RegisteredClaims
}

// JWTService signs and verifies browser identity tokens
type JWTService struct {
	secret  []byte
	nowFunc func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret:  []byte(secret),
		nowFunc: time.Now,
	}
}

// SignBrowserToken creates a token naming browserID (1-year expiry)
func (s *JWTService) SignBrowserToken(browserID uuid.UUID) (string, error) {
	if browserID == uuid.Nil {
		return "", errors.New("browser id is empty")
	}
	now := s.nowFunc()
	claims := &BrowserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   browserID.String(),
			Issuer:    browserIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(browserTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign browser token: %w", err)
	}

	return tokenString, nil
}

// VerifyBrowserToken verifies a browser token and returns the browser ID
func (s *JWTService) VerifyBrowserToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BrowserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(browserIssuer), jwt.WithTimeFunc(s.nowFunc))

	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse browser token: %w", err)
	}

	claims, ok := token.Claims.(*BrowserClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid browser token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid browser token subject")
	}
	return id, nil
}
