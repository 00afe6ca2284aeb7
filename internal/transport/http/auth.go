package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthToken 签发与校验 API 调用方的 HS256 JWT
type AuthToken struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewAuthToken 使用共享密钥创建 token 工具
func NewAuthToken(secretKey, issuer string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       24 * time.Hour,
	}
}

// WithTTL 修改签发有效期
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken 为调用方签发 token，subject 为调用方标识
func (at *AuthToken) GenerateToken(subject string) (string, error) {
	if len(at.secretKey) == 0 {
		return "", errors.New("auth token secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    at.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken 校验 token 并返回 subject
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if len(at.secretKey) == 0 {
		return "", errors.New("auth token secret is empty")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if at.issuer != "" {
		opts = append(opts, jwt.WithIssuer(at.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return at.secretKey, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// AuthMiddleware 校验 Authorization: Bearer <token>，失败时返回 HTTP Error 401 信封
func AuthMiddleware(at *AuthToken) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			RespondHTTPError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		subject, err := at.VerifyToken(strings.TrimSpace(tokenString))
		if err != nil {
			RespondHTTPError(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set("subject", subject)
		c.Next()
	}
}
