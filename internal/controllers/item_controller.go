package controllers

import (
	"encoding/json"
	"net/http"

	"dopple-server/internal/logics"
	"dopple-server/internal/middlewares"
	"dopple-server/internal/models"
	"dopple-server/internal/utils"

	"github.com/labstack/echo/v4"
)

// ItemController handles HTTP requests for the drive tree: listing,
// folder creation, item detail, rename/move, delete and breadcrumbs.
type ItemController struct {
	itemService    *logics.ItemService
	listingService *logics.ListingService
}

func NewItemController(itemService *logics.ItemService, listingService *logics.ListingService) *ItemController {
	return &ItemController{
		itemService:    itemService,
		listingService: listingService,
	}
}

// ListItems handles folder listing requests.
// Endpoint: GET /api/items?parentId=&pageSize=&pageToken=
func (ic *ItemController) ListItems(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	parentID, err := queryOptionalID(c, "parentId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid parentId"})
	}

	pagination := utils.ExtractCursorPaginationFromContext(c)
	result, err := ic.listingService.ListChildren(c.Request().Context(), ownerID, parentID, pagination)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// CreateFolder handles folder creation requests.
// Endpoint: POST /api/items
func (ic *ItemController) CreateFolder(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	folder, err := ic.itemService.CreateFolder(c.Request().Context(), ownerID, req.Name, req.ParentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, folder)
}

// GetItem handles item detail requests. Files come back with a fresh
// presigned download URL, folders with their immediate children.
// Endpoint: GET /api/items/:id
func (ic *ItemController) GetItem(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	itemID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	detail, err := ic.itemService.GetItem(c.Request().Context(), ownerID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateItem handles rename and move requests. The body is inspected for
// key presence: "parent_id": null is a move to the root, while an absent
// parent_id leaves the item where it is.
// Endpoint: PATCH /api/items/:id
func (ic *ItemController) UpdateItem(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	itemID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var item *models.Item

	if raw, ok := body["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name must be a string"})
		}
		item, err = ic.itemService.Rename(c.Request().Context(), ownerID, itemID, name)
		if err != nil {
			return respondError(c, err)
		}
	}

	if raw, ok := body["parent_id"]; ok {
		var parentID *int64
		if err := json.Unmarshal(raw, &parentID); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "parent_id must be a number or null"})
		}
		item, err = ic.itemService.Move(c.Request().Context(), ownerID, itemID, parentID)
		if err != nil {
			return respondError(c, err)
		}
	}

	if item == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nothing to update"})
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles delete requests. Folder deletes cascade to the whole
// subtree.
// Endpoint: DELETE /api/items/:id
func (ic *ItemController) DeleteItem(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	itemID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	if err := ic.itemService.Delete(c.Request().Context(), ownerID, itemID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Breadcrumb handles ancestor chain requests.
// Endpoint: GET /api/breadcrumb/:id
func (ic *ItemController) Breadcrumb(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	itemID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
	}

	crumbs, err := ic.listingService.Breadcrumb(c.Request().Context(), ownerID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"breadcrumb": crumbs})
}
