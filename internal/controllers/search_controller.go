package controllers

import (
	"net/http"

	"dopple-server/internal/logics"
	"dopple-server/internal/middlewares"

	"github.com/labstack/echo/v4"
)

// SearchController handles quick-search requests.
type SearchController struct {
	listingService *logics.ListingService
}

func NewSearchController(listingService *logics.ListingService) *SearchController {
	return &SearchController{listingService: listingService}
}

// Search handles name search requests. Queries shorter than two
// characters return an empty result set.
// Endpoint: GET /api/search?q=
func (sc *SearchController) Search(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	items, err := sc.listingService.Search(c.Request().Context(), ownerID, c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}
