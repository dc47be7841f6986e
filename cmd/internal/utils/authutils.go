package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const TokenCookieName = "token"

type TokenData struct {
	UserID int64
	Exp    int64
}

// TokenSigner issues and validates the HS256 session tokens handed out on
// login and registration.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}

func (s *TokenSigner) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses AND validates the signature locally.
// It returns the data if the token is authentic and unexpired.
func (s *TokenSigner) Validate(tokenString string) (*TokenData, error) {
	clean := sanitizeToken(tokenString)
	if clean == "" {
		return nil, errors.New("empty token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(clean, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject %q: %w", claims.Subject, err)
	}

	return &TokenData{UserID: userID, Exp: claims.ExpiresAt.Unix()}, nil
}

// ParseTokenDataCtx reads the token from the session cookie first and the
// Authorization header second.
func (s *TokenSigner) ParseTokenDataCtx(ctx echo.Context) (*TokenData, error) {
	return s.Validate(TokenFromContext(ctx))
}

func TokenFromContext(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ctx.Request().Header.Get(echo.HeaderAuthorization)
}

func sanitizeToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
}
