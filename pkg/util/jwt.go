package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the API needs from a verified token.
type Claims struct {
	UserID string
	Role   string
}

// GenerateJWT creates a token for a given user ID and role.
func GenerateJWT(userID, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates token and extracts the caller identity.
func ParseJWT(tokenStr, secret string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenMalformed
	}

	userID, ok := mc["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, errors.Join(jwt.ErrTokenMalformed, errors.New("user_id claim missing"))
	}
	role, _ := mc["role"].(string)

	return Claims{UserID: userID, Role: role}, nil
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the "token" query parameter used by browser WebSocket clients.
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return ""
		}
		return parts[1]
	}
	return r.URL.Query().Get("token")
}
