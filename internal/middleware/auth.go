package middleware

import (
	"errors"
	"net/http"
	"strings"

	"taller/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// tokenFromRequest reads the access_token cookie, falling back to the Authorization header
func tokenFromRequest(c *gin.Context) (string, string) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

var (
	errInvalidToken = errors.New("Invalid token")
	errNoSubject    = errors.New("Token has no subject")
)

// ParseToken checks an HMAC signed token and returns its subject and role claims.
func ParseToken(key []byte, tokenString string) (subject, role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return "", "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errInvalidToken
	}
	subject, _ = claims.GetSubject()
	if subject == "" {
		return "", "", errNoSubject
	}
	role, _ = claims["role"].(string)
	return subject, role, nil
}

// Authenticate validates the JWT and stores the acting user and role in the context.
// The user id recorded on ledger rows and history entries comes from here.
func Authenticate(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		subject, role, err := ParseToken(key, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		c.Set(UserIDKey, subject)
		c.Set(UserRoleKey, role)
		c.Next()
	}
}

// RequireRole must run after Authenticate
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(UserRoleKey)] {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user, or "" when the route is public.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
