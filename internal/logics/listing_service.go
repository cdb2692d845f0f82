package logics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"dopple-server/internal/apperrors"
	"dopple-server/internal/models"
	"dopple-server/internal/utils"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	searchMinRunes  = 2
	searchResultCap = 7
)

// sortKeyExpr maps a row onto the folders-before-files ordering tier.
var sortKeyExpr = fmt.Sprintf("CASE WHEN mime_type = '%s' THEN 0 ELSE 1 END", models.FolderMimeType)

var folderFirstOrder = sortKeyExpr + " ASC"

// ListingService serves the read side of the drive: folder listings with
// cursor pagination, quick search, and breadcrumbs. It never mutates
// items.
type ListingService struct {
	db            *gorm.DB
	cursorManager *utils.CursorManager
	cache         *SearchCache
}

func NewListingService(db *gorm.DB, cursorManager *utils.CursorManager, cache *SearchCache) *ListingService {
	return &ListingService{
		db:            db,
		cursorManager: cursorManager,
		cache:         cache,
	}
}

// ItemListResult is one page of a folder listing.
type ItemListResult struct {
	Items      []models.Item          `json:"items"`
	Pagination utils.PaginationResult `json:"pagination"`
}

// BreadcrumbEntry is one hop of an ancestor chain, root first.
type BreadcrumbEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListChildren returns one page of the immediate children of parentID
// (nil = the owner's root). Ordering is total and stable: folders first,
// then name, then id, so walking pages with the returned tokens visits
// every child exactly once even while the listing shrinks or grows.
func (ls *ListingService) ListChildren(ctx context.Context, ownerID int64, parentID *int64, pagination utils.CursorPagination) (*ItemListResult, error) {
	utils.GetPaginationDefaults(&pagination, defaultPageSize, maxPageSize)

	query := parentFilter(ls.db.WithContext(ctx).Where("owner_id = ?", ownerID), parentID)

	// A token that fails to decode reads as "first page". Tokens carry no
	// position state server-side; the composite key itself is the cursor,
	// which keeps pages stable under concurrent inserts and deletes.
	if cursor := ls.cursorManager.DecodeCursor(pagination.PageToken); cursor != nil {
		query = query.Where(
			fmt.Sprintf("(%s, name, id) > (?, ?, ?)", sortKeyExpr),
			cursor.SortKey, cursor.Name, cursor.ID,
		)
	}

	// Fetch one extra row to learn whether a next page exists.
	var items []models.Item
	err := query.
		Order(folderFirstOrder).
		Order("name ASC").
		Order("id ASC").
		Limit(pagination.PageSize + 1).
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list items", err)
	}

	result := &ItemListResult{Items: items}
	if len(items) > pagination.PageSize {
		result.Items = items[:pagination.PageSize]
		last := result.Items[len(result.Items)-1]
		result.Pagination.HasMore = true
		result.Pagination.NextPageToken = ls.cursorManager.EncodeCursor(last.SortKey(), last.Name, last.ID)
	}
	return result, nil
}

// Search performs a case-insensitive substring search over the owner's
// item names. Queries shorter than two runes return nothing. Results are
// capped and cached briefly; cache failures fall through to the database.
func (ls *ListingService) Search(ctx context.Context, ownerID int64, query string) ([]models.Item, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < searchMinRunes {
		return []models.Item{}, nil
	}

	if cached := ls.cache.Get(ctx, ownerID, query); cached != nil {
		return cached, nil
	}

	// The query is not LIKE-escaped: "%" and "_" stay active as wildcards.
	var items []models.Item
	err := ls.db.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) LIKE ?", ownerID, "%"+strings.ToLower(query)+"%").
		Order(folderFirstOrder).
		Order("name ASC").
		Order("id ASC").
		Limit(searchResultCap).
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to search items", err)
	}

	ls.cache.Set(ctx, ownerID, query, items)
	return items, nil
}

// Breadcrumb resolves an item's ancestor chain from its materialized
// path, root first, ending with the item itself. One bulk query fetches
// all hops; ancestors missing from it (hard-purged rows) are skipped
// rather than failing the whole chain.
func (ls *ListingService) Breadcrumb(ctx context.Context, ownerID, itemID int64) ([]BreadcrumbEntry, error) {
	var item models.Item
	if err := ls.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "item %d not found", itemID)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to fetch item", err)
	}
	if item.OwnerID != ownerID {
		return nil, apperrors.New(apperrors.KindForbidden, "you do not have permission to access this item")
	}

	ids := pathIDs(item.Path)
	if len(ids) == 0 {
		// The path column should always at least contain the item's own
		// id; treat anything else as a damaged row.
		return nil, apperrors.New(apperrors.KindMalformedEntry, "item has a malformed path")
	}

	var rows []models.Item
	err := ls.db.WithContext(ctx).
		Select("id", "name").
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to resolve breadcrumb", err)
	}

	namesByID := make(map[int64]string, len(rows))
	for _, row := range rows {
		namesByID[row.ID] = row.Name
	}

	crumbs := make([]BreadcrumbEntry, 0, len(ids))
	for _, id := range ids {
		name, ok := namesByID[id]
		if !ok {
			continue
		}
		crumbs = append(crumbs, BreadcrumbEntry{ID: id, Name: name})
	}
	return crumbs, nil
}

// pathIDs parses "/1/5/9/" into [1 5 9]. Malformed segments are dropped.
func pathIDs(path string) []int64 {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	ids := make([]int64, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		id, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
