package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

var (
	ErrMissingToken = errors.New("missing or invalid token")
	ErrInvalidToken = errors.New("invalid token")
)

var (
	mu        sync.RWMutex
	jwtSecret []byte
	tokenTTL  = 12 * time.Hour
)

// SetSecret configures the HMAC key used to sign and verify tokens.
func SetSecret(secret string) {
	mu.Lock()
	defer mu.Unlock()
	jwtSecret = []byte(secret)
}

func secret() []byte {
	mu.RLock()
	defer mu.RUnlock()
	return jwtSecret
}

// Claims identifies the caller of a request. Username is recorded as the
// actor of every stock event the request produces.
type Claims struct {
	UserID   int64
	Username string
	Role     string
}

func (c Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func GenerateToken(user models.User) (string, error) {
	key := secret()
	if len(key) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func ParseToken(tokenStr string) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

// TokenClaims validates a "Bearer <token>" header value.
func TokenClaims(authorization string) (Claims, error) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return Claims{}, ErrMissingToken
	}

	token, err := ParseToken(strings.TrimPrefix(authorization, "Bearer "))
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	username, _ := mc["username"].(string)
	role, _ := mc["role"].(string)
	return Claims{UserID: int64(sub), Username: username, Role: role}, nil
}
