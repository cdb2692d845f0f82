package utils

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/labstack/echo/v4"
)

// CursorManager encodes and decodes the opaque page tokens used by the
// listing engine. A token is base64(JSON) of the composite sort key of the
// last row of the previous page; it must round-trip exactly, and anything
// that fails to decode is treated as "no cursor" rather than an error.
type CursorManager struct{}

// CursorData is the composite sort key embedded in a page token.
// SortKey is 0 for folders, 1 for files; Name and ID are the tie-breaks.
type CursorData struct {
	SortKey int    `json:"sortKey"`
	Name    string `json:"name"`
	ID      int64  `json:"id"`
}

func NewCursorManager() *CursorManager {
	return &CursorManager{}
}

// EncodeCursor builds the page token for the last row of a page.
func (cm *CursorManager) EncodeCursor(sortKey int, name string, id int64) string {
	payload, err := json.Marshal(CursorData{SortKey: sortKey, Name: name, ID: id})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeCursor parses a page token. Malformed or type-mismatched tokens
// yield nil, which callers interpret as "start from the first page".
func (cm *CursorManager) DecodeCursor(token string) *CursorData {
	if token == "" {
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var data CursorData
	if err := json.Unmarshal(decoded, &data); err != nil {
		return nil
	}
	if data.SortKey != 0 && data.SortKey != 1 {
		return nil
	}
	return &data
}

// CursorPagination represents pagination parameters
type CursorPagination struct {
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token"`
}

// PaginationResult represents generic paginated results
type PaginationResult struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

// GetPaginationDefaults sets default values for pagination parameters
func GetPaginationDefaults(pagination *CursorPagination, defaultSize, maxSize int) {
	if pagination.PageSize <= 0 {
		pagination.PageSize = defaultSize
	} else if pagination.PageSize > maxSize {
		pagination.PageSize = maxSize
	}
}

// ExtractCursorPaginationFromContext extracts pagination parameters from Echo context
func ExtractCursorPaginationFromContext(c echo.Context) CursorPagination {
	var pagination CursorPagination

	if sizeStr := c.QueryParam("pageSize"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil {
			pagination.PageSize = size
		}
	}

	pagination.PageToken = c.QueryParam("pageToken")

	return pagination
}
