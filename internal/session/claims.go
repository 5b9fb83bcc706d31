package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT — токен непрозрачный, утверждения недоступны.
var ErrNotJWT = errors.New("access token is not a JWT")

// Claims — утверждения access-токена, прочитанные без проверки подписи.
// Ключа подписи у клиента нет; значения только для отображения и логов.
type Claims struct {
	jwt.RegisteredClaims
	UserID any    `json:"user_id,omitempty"`
	Type   string `json:"token_type,omitempty"`
}

// ExpiresIn — оставшееся время жизни; отрицательное, если токен истёк.
// ok=false, если exp отсутствует.
func (c *Claims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}

// Subject — sub или user_id.
func (c *Claims) Subject() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	if c.UserID == nil {
		return ""
	}
	switch v := c.UserID.(type) {
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// AccessClaims разбирает access-токен без проверки подписи.
func AccessClaims(token string) (*Claims, error) {
	const op = "session.AccessClaims"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotJWT)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNotJWT, err)
	}

	return claims, nil
}
