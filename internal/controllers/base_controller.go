package controllers

import (
	"net/http"
	"strconv"

	"dopple-server/configs"
	"dopple-server/internal/apperrors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError maps a service error to its HTTP status. Internal errors
// are logged with their cause but never leak it to the client.
func respondError(c echo.Context, err error) error {
	status := apperrors.HTTPStatus(apperrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		configs.Logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(status, map[string]string{"error": "internal server error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// pathID parses the numeric :id route parameter.
func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// queryOptionalID parses an optional numeric query parameter; absent or
// empty yields nil.
func queryOptionalID(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
