package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrEmptySecret  = errors.New("jwt secret is empty")
)

// RoleAdmin дает доступ ко всем операциям
const RoleAdmin = "admin"

// JWTManager выпускает и проверяет токены доступа к API конвейера
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	validated  *cache.Cache
	now        func() time.Time
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

func NewJWTManager(secret string, expiration time.Duration, issuer string) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if expiration <= 0 {
		expiration = time.Hour
	}

	return &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
		issuer:     issuer,
		validated:  cache.New(5*time.Minute, 10*time.Minute),
		now:        time.Now,
	}, nil
}

func (m *JWTManager) Generate(userID string, roles []string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   userID,
		},
		UserID: userID,
		Roles:  roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(m.now)}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateToken проверяет токен и кэширует claims до истечения срока действия
func (m *JWTManager) ValidateToken(_ context.Context, tokenString string) (interface{}, error) {
	sum := sha256.Sum256([]byte(tokenString))
	key := hex.EncodeToString(sum[:])

	if cached, ok := m.validated.Get(key); ok {
		claims := cached.(*Claims)
		if claims.ExpiresAt == nil || m.now().Before(claims.ExpiresAt.Time) {
			return claims, nil
		}
		m.validated.Delete(key)
	}

	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	ttl := cache.DefaultExpiration
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Time.Sub(m.now()); left < 5*time.Minute {
			ttl = left
		}
	}
	m.validated.Set(key, claims, ttl)

	return claims, nil
}

func (m *JWTManager) HasRole(claims interface{}, role string) bool {
	c, ok := claims.(*Claims)
	if !ok {
		return false
	}
	for _, r := range c.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

func (m *JWTManager) HasAnyRole(claims interface{}, roles ...string) bool {
	for _, role := range roles {
		if m.HasRole(claims, role) {
			return true
		}
	}
	return false
}
