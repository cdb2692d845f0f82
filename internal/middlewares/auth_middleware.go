package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"dopple-server/configs"
	"dopple-server/internal/logics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// AuthMiddleware extracts the Bearer token from the Authorization header,
// verifies its HMAC signature against the session secret, and resolves the
// sub claim to a local user. The resolved user's id is stored in the
// request context.
func AuthMiddleware(userService *logics.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header format"})
			}
			tokenStr := parts[1]

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(configs.Configs.Secrets.SessionSecret), nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unable to parse claims"})
			}
			sub, ok := claims["sub"].(string)
			if !ok || sub == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "sub claim not found in token"})
			}

			user, err := userService.GetByExternalID(c.Request().Context(), sub)
			if err != nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "couldn't find user"})
			}

			c.Set(userIDKey, user.ID)
			return next(c)
		}
	}
}

// CurrentUserID extracts the authenticated user's id stored by
// AuthMiddleware.
func CurrentUserID(c echo.Context) (int64, error) {
	uid := c.Get(userIDKey)
	if uid == nil {
		return 0, errors.New("user id not found in context")
	}
	userID, ok := uid.(int64)
	if !ok {
		return 0, errors.New("user id has invalid type")
	}
	return userID, nil
}
