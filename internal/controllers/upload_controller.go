package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"dopple-server/internal/logics"
	"dopple-server/internal/middlewares"

	"github.com/labstack/echo/v4"
)

const presignedUploadTTL = 15 * time.Minute

// UploadController handles the two upload flows: presigned (the client
// uploads straight to the blob store and then registers the file) and
// direct (the bytes pass through the server).
type UploadController struct {
	itemService    *logics.ItemService
	storageService *logics.StorageService
}

func NewUploadController(itemService *logics.ItemService, storageService *logics.StorageService) *UploadController {
	return &UploadController{
		itemService:    itemService,
		storageService: storageService,
	}
}

type presignRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

// Presign hands out a presigned PUT URL and the object key it is bound
// to. No item row is created yet; the client registers the file with
// CompleteUpload once the bytes are stored.
// Endpoint: POST /api/uploads/presign
func (uc *UploadController) Presign(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req presignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.FileName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file_name is required"})
	}
	if req.FileType == "" {
		req.FileType = "application/octet-stream"
	}

	key, err := uc.storageService.NewPresignObjectKey(ownerID, req.FileName)
	if err != nil {
		return respondError(c, err)
	}
	signedURL, err := uc.storageService.PresignPut(c.Request().Context(), key, req.FileType, presignedUploadTTL)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"signed_url": signedURL,
		"key":        key,
	})
}

// CompleteUpload registers a file whose bytes were already uploaded with
// a presigned URL.
// Endpoint: POST /api/uploads/complete
func (uc *UploadController) CompleteUpload(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var input logics.FileCreateInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	item, err := uc.itemService.CreateFile(c.Request().Context(), ownerID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// DirectUpload streams a multipart upload through the server into the
// blob store. The optional "mode" form field selects STANDARD, COPY or
// OVERRIDE handling of same-named siblings.
// Endpoint: POST /api/file
func (uc *UploadController) DirectUpload(c echo.Context) error {
	ownerID, err := middlewares.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to get file from request"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	var parentID *int64
	if raw := c.FormValue("parent_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid parent_id"})
		}
		parentID = &id
	}

	mode := logics.UploadMode(strings.ToUpper(c.FormValue("mode")))

	item, err := uc.itemService.UploadFile(c.Request().Context(), ownerID, logics.UploadInput{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		ParentID:    parentID,
		Size:        fileHeader.Size,
		Body:        src,
		Mode:        mode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}
