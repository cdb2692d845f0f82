package logics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dopple-server/internal/apperrors"
	"dopple-server/internal/models"
	"dopple-server/internal/utils"

	"gorm.io/gorm"
)

// maxNameRetriesOnConflict bounds the numbered-suffix retry loop. The
// retry is the last line of defense against races between the existence
// check and the insert, not the primary collision-avoidance mechanism.
const maxNameRetriesOnConflict = 100

const downloadURLTTL = 15 * time.Minute

// UploadMode selects the behavior of a direct upload when a same-named
// sibling exists. Copy mints a new numbered name and a new blob key;
// Override reuses the existing item's row and key.
type UploadMode string

const (
	UploadModeStandard UploadMode = "STANDARD"
	UploadModeCopy     UploadMode = "COPY"
	UploadModeOverride UploadMode = "OVERRIDE"
)

// ItemService orchestrates all mutations of the drive tree. Every
// operation runs inside a transaction: a failure aborts the whole
// operation with no partial writes. Correctness under concurrent requests
// comes from the database's isolation and unique indexes, not from
// in-process locks.
type ItemService struct {
	db      *gorm.DB
	paths   *PathService
	blob    BlobStore
	cleanup *CleanupService
	cache   *SearchCache
}

func NewItemService(db *gorm.DB, paths *PathService, blob BlobStore, cleanup *CleanupService, cache *SearchCache) *ItemService {
	return &ItemService{
		db:      db,
		paths:   paths,
		blob:    blob,
		cleanup: cleanup,
		cache:   cache,
	}
}

// FileCreateInput describes a file whose bytes are already in the blob
// store (via presigned upload or direct upload).
type FileCreateInput struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	ParentID *int64 `json:"parent_id"`
	Key      string `json:"key"`
	FileURL  string `json:"file_url"`
	Size     int64  `json:"size"`
}

// UploadInput describes a direct upload whose bytes still need to reach
// the blob store.
type UploadInput struct {
	Name        string
	ContentType string
	ParentID    *int64
	Size        int64
	Body        io.Reader
	Mode        UploadMode
}

// ItemDetail is the result of GetItem: a file plus a fresh download URL,
// or a folder plus its immediate non-deleted children.
type ItemDetail struct {
	Item      *models.Item  `json:"item"`
	SignedURL string        `json:"signed_url,omitempty"`
	Children  []models.Item `json:"children,omitempty"`
}

// CreateFolder creates a folder under parentID (nil = root), resolving
// sibling name collisions with a numbered suffix.
func (is *ItemService) CreateFolder(ctx context.Context, ownerID int64, name string, parentID *int64) (*models.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "folder name is required")
	}

	item := &models.Item{
		OwnerID:  ownerID,
		Name:     name,
		MimeType: models.FolderMimeType,
		ParentID: parentID,
	}
	return is.createWithNameRetry(ctx, item)
}

// CreateFile records a file whose content is already stored. On failure
// the now-orphaned blob is scheduled for best-effort deletion.
func (is *ItemService) CreateFile(ctx context.Context, ownerID int64, input FileCreateInput) (*models.Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "file name is required")
	}
	if input.MimeType == "" || input.Key == "" || input.FileURL == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing required file information")
	}
	if input.MimeType == models.FolderMimeType {
		return nil, apperrors.New(apperrors.KindValidation, "mime type is reserved for folders")
	}
	if input.Size < 0 {
		return nil, apperrors.New(apperrors.KindValidation, "file size must not be negative")
	}

	item := &models.Item{
		OwnerID:  ownerID,
		Name:     input.Name,
		MimeType: input.MimeType,
		ParentID: input.ParentID,
		FileURL:  &input.FileURL,
		Key:      &input.Key,
		Size:     &input.Size,
	}
	created, err := is.createWithNameRetry(ctx, item)
	if err != nil {
		is.cleanup.Enqueue(input.Key)
		return nil, err
	}
	return created, nil
}

// UploadFile stores the uploaded bytes and creates the file item
// according to the requested mode.
func (is *ItemService) UploadFile(ctx context.Context, ownerID int64, input UploadInput) (*models.Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "file name is required")
	}
	if input.ContentType == "" {
		input.ContentType = "application/octet-stream"
	}

	switch input.Mode {
	case "", UploadModeStandard, UploadModeCopy:
		// Standard and Copy share the creation path: a fresh key is
		// minted and sibling collisions resolve to a numbered name.
	case UploadModeOverride:
		item, handled, err := is.overrideExisting(ctx, ownerID, input)
		if err != nil {
			return nil, err
		}
		if handled {
			return item, nil
		}
		// No same-named sibling to override; insert as standard.
	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown upload mode %q", input.Mode)
	}

	key := is.blob.NewObjectKey(ownerID, input.Name)
	url, err := is.blob.Put(ctx, key, input.ContentType, input.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to store file content", err)
	}

	return is.CreateFile(ctx, ownerID, FileCreateInput{
		Name:     input.Name,
		MimeType: input.ContentType,
		ParentID: input.ParentID,
		Key:      key,
		FileURL:  url,
		Size:     input.Size,
	})
}

// Rename changes an item's display name. The path is untouched: it
// encodes ids, not names. Both files and folders check sibling-name
// uniqueness before the update; the partial unique indexes back the check
// up against races.
func (is *ItemService) Rename(ctx context.Context, ownerID, itemID int64, newName string) (*models.Item, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "item name is required")
	}

	item, err := is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Name == newName {
		return item, nil
	}

	taken, err := is.siblingNameTaken(ctx, ownerID, item.ParentID, newName, item.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Newf(apperrors.KindNameConflict, "an item named %q already exists here", newName)
	}

	err = is.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", item.ID).Update("name", newName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Newf(apperrors.KindNameConflict, "an item named %q already exists here", newName)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to rename item", err)
	}
	is.cache.Invalidate(ctx, ownerID)

	return is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
}

// Move re-parents an item. For folders the entire subtree's paths are
// rewritten by a single bulk prefix substitution in the same transaction,
// so a concurrent reader never observes a half-rewritten subtree. The
// destination and cycle checks run inside the transaction to close the
// race between validation and the write.
func (is *ItemService) Move(ctx context.Context, ownerID, itemID int64, newParentID *int64) (*models.Item, error) {
	item, err := is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if sameParent(item.ParentID, newParentID) {
		return item, nil
	}

	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := is.getOwned(tx, ownerID, itemID)
		if err != nil {
			return err
		}

		dest, err := is.paths.ResolveParent(tx, ownerID, newParentID)
		if err != nil {
			return err
		}
		if err := is.paths.ValidateMove(src, dest); err != nil {
			return err
		}

		destPath := "/"
		if dest != nil {
			destPath = dest.Path
		}
		oldPath := src.Path
		newPath := fmt.Sprintf("%s%d/", destPath, src.ID)

		updates := map[string]interface{}{
			"parent_id": newParentID,
			"path":      newPath,
		}
		if err := tx.Model(&models.Item{}).Where("id = ?", src.ID).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Newf(apperrors.KindNameConflict, "an item named %q already exists at the destination", src.Name)
			}
			return fmt.Errorf("failed to move item: %w", err)
		}

		return is.paths.RewriteSubtree(tx, ownerID, src.ID, oldPath, newPath)
	})
	if err != nil {
		return nil, asAppError(err, "failed to move item")
	}
	is.cache.Invalidate(ctx, ownerID)

	return is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
}

// Delete soft-deletes an item. A folder delete cascades to every
// descendant with one bulk update by path prefix; blob objects of the
// affected files are handed to the cleanup pool, never deleted inline.
func (is *ItemService) Delete(ctx context.Context, ownerID, itemID int64) error {
	item, err := is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
	if err != nil {
		return err
	}

	if !item.IsFolder() {
		if err := is.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", item.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "failed to delete item", err)
		}
		is.cache.Invalidate(ctx, ownerID)
		if item.Key != nil {
			is.cleanup.Enqueue(*item.Key)
		}
		return nil
	}

	var keys []string
	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Collect blob keys of the files about to disappear so their
		// objects can be reaped asynchronously.
		err := tx.Model(&models.Item{}).
			Where("owner_id = ? AND path LIKE ? AND key IS NOT NULL", ownerID, item.Path+"%").
			Pluck("key", &keys).Error
		if err != nil {
			return err
		}

		// The cascade: one bulk soft delete by path prefix. Paths contain
		// only decimal ids and '/', so the prefix is LIKE-safe as is.
		return tx.Where("owner_id = ? AND path LIKE ?", ownerID, item.Path+"%").Delete(&models.Item{}).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to delete folder", err)
	}
	is.cache.Invalidate(ctx, ownerID)

	for _, key := range keys {
		is.cleanup.Enqueue(key)
	}
	return nil
}

// GetItem returns a file with a freshly presigned download URL, or a
// folder with its immediate non-deleted children.
func (is *ItemService) GetItem(ctx context.Context, ownerID, itemID int64) (*ItemDetail, error) {
	item, err := is.getOwned(is.db.WithContext(ctx), ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if !item.IsFolder() {
		if item.Key == nil || *item.Key == "" {
			return nil, apperrors.New(apperrors.KindMalformedEntry, "cannot generate a download link for a malformed file entry")
		}
		signedURL, err := is.blob.PresignGet(ctx, *item.Key, downloadURLTTL)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to generate download link", err)
		}
		return &ItemDetail{Item: item, SignedURL: signedURL}, nil
	}

	var children []models.Item
	query := is.db.WithContext(ctx).Where("owner_id = ? AND parent_id = ?", ownerID, item.ID)
	if err := query.Order(folderFirstOrder).Order("name ASC").Order("id ASC").Find(&children).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list folder children", err)
	}
	return &ItemDetail{Item: item, Children: children}, nil
}

// == private helpers ==

// createWithNameRetry inserts the item, retrying with numbered names on
// duplicate-key errors. Each attempt is its own transaction; the parent
// is re-validated inside it so a concurrently deleted parent aborts the
// create instead of orphaning the row.
func (is *ItemService) createWithNameRetry(ctx context.Context, item *models.Item) (*models.Item, error) {
	// Fail fast on an obviously bad parent before burning insert attempts.
	if _, err := is.paths.ResolveParent(is.db.WithContext(ctx), item.OwnerID, item.ParentID); err != nil {
		return nil, err
	}

	requested := item.Name
	for n := 0; n < maxNameRetriesOnConflict; n++ {
		item.ID = 0
		item.Name = utils.GenerateNumberedName(requested, n)

		err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			parentPath := "/"
			parent, err := is.paths.ResolveParent(tx, item.OwnerID, item.ParentID)
			if err != nil {
				return err
			}
			if parent != nil {
				parentPath = parent.Path
			}
			return is.paths.InsertWithPath(tx, item, parentPath)
		})
		if err == nil {
			is.cache.Invalidate(ctx, item.OwnerID)
			return item, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return nil, asAppError(err, "failed to create item")
	}

	return nil, apperrors.Newf(apperrors.KindNameConflict,
		"could not find an available name for %q after %d attempts", requested, maxNameRetriesOnConflict)
}

// overrideExisting implements Override mode: when a same-named file
// sibling exists, its row and blob key are reused. Returns handled=false
// when there is nothing to override.
func (is *ItemService) overrideExisting(ctx context.Context, ownerID int64, input UploadInput) (*models.Item, bool, error) {
	var existing models.Item
	query := parentFilter(is.db.WithContext(ctx), input.ParentID).
		Where("owner_id = ? AND name = ?", ownerID, input.Name)
	if err := query.First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "failed to look up existing item", err)
	}

	if existing.IsFolder() {
		return nil, false, apperrors.Newf(apperrors.KindNameConflict, "a folder named %q already exists here", input.Name)
	}
	if existing.Key == nil || *existing.Key == "" {
		return nil, false, apperrors.New(apperrors.KindMalformedEntry, "cannot override a malformed file entry")
	}

	url, err := is.blob.Put(ctx, *existing.Key, input.ContentType, input.Body)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "failed to store file content", err)
	}

	updates := map[string]interface{}{
		"file_url":  url,
		"size":      input.Size,
		"mime_type": input.ContentType,
	}
	if err := is.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "failed to override item", err)
	}
	is.cache.Invalidate(ctx, ownerID)

	item, err := is.getOwned(is.db.WithContext(ctx), ownerID, existing.ID)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// getOwned fetches a non-deleted item and enforces ownership.
func (is *ItemService) getOwned(tx *gorm.DB, ownerID, itemID int64) (*models.Item, error) {
	var item models.Item
	if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "item %d not found", itemID)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to fetch item", err)
	}
	if item.OwnerID != ownerID {
		return nil, apperrors.New(apperrors.KindForbidden, "you do not have permission to access this item")
	}
	return &item, nil
}

func (is *ItemService) siblingNameTaken(ctx context.Context, ownerID int64, parentID *int64, name string, excludeID int64) (bool, error) {
	var count int64
	query := parentFilter(is.db.WithContext(ctx).Model(&models.Item{}), parentID).
		Where("owner_id = ? AND name = ? AND id <> ?", ownerID, name, excludeID)
	if err := query.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.KindInternal, "failed to check sibling names", err)
	}
	return count > 0, nil
}

// parentFilter applies the parent condition, treating nil as the root.
func parentFilter(query *gorm.DB, parentID *int64) *gorm.DB {
	if parentID == nil {
		return query.Where("parent_id IS NULL")
	}
	return query.Where("parent_id = ?", *parentID)
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// asAppError passes typed errors through and wraps everything else as
// internal so callers never see raw storage failures.
func asAppError(err error, message string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.KindInternal, message, err)
}
