package logics

import (
	"errors"
	"fmt"
	"strings"

	"dopple-server/internal/apperrors"
	"dopple-server/internal/models"

	"gorm.io/gorm"
)

// PathService owns the materialized-path column: it computes paths on
// insert and rewrites whole subtrees when a folder moves. Paths are built
// exclusively from decimal ids and '/', so they are safe to use verbatim
// in LIKE prefixes.
type PathService struct {
	db *gorm.DB
}

func NewPathService(db *gorm.DB) *PathService {
	return &PathService{db: db}
}

// ResolveParent validates the target parent of a create or move. A nil
// parentID means the owner's root and resolves to no row. The parent must
// exist (not soft-deleted), belong to the owner, and be a folder.
func (ps *PathService) ResolveParent(tx *gorm.DB, ownerID int64, parentID *int64) (*models.Item, error) {
	if parentID == nil {
		return nil, nil
	}

	var parent models.Item
	if err := tx.First(&parent, "id = ? AND owner_id = ?", *parentID, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindInvalidParent, "parent folder not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to fetch parent folder", err)
	}
	if !parent.IsFolder() {
		return nil, apperrors.New(apperrors.KindInvalidParent, "parent item is not a folder")
	}
	return &parent, nil
}

// InsertWithPath inserts item under parentPath and patches its path once
// the storage layer has assigned the id. Ids are allocated on insert, so
// the row is first written with a placeholder path and corrected in the
// same transaction; tx must therefore already be a transaction.
//
// Duplicate-key errors (sibling name collisions) are returned untranslated
// so the caller can drive its naming retry loop off gorm.ErrDuplicatedKey.
func (ps *PathService) InsertWithPath(tx *gorm.DB, item *models.Item, parentPath string) error {
	item.Path = ""
	if err := tx.Create(item).Error; err != nil {
		return err
	}

	item.Path = fmt.Sprintf("%s%d/", parentPath, item.ID)
	if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).Update("path", item.Path).Error; err != nil {
		return fmt.Errorf("failed to update item path: %w", err)
	}
	return nil
}

// ValidateMove rejects moving an item into itself or any of its
// descendants. The check is a pure path-prefix comparison; no ancestor
// walk is needed because the destination's path embeds its full chain.
func (ps *PathService) ValidateMove(source *models.Item, dest *models.Item) error {
	if dest == nil {
		return nil
	}
	if strings.HasPrefix(dest.Path, source.Path) {
		return apperrors.New(apperrors.KindInvalidMove, "cannot move an item into itself or one of its descendants")
	}
	return nil
}

// RewriteSubtree replaces oldPrefix with newPrefix on every path of the
// owner that starts with oldPrefix, excluding the moved row itself (its
// path and parent are updated by the caller in the same transaction).
// Soft-deleted descendants are rewritten too so their paths stay
// recoverable.
func (ps *PathService) RewriteSubtree(tx *gorm.DB, ownerID int64, excludeID int64, oldPrefix, newPrefix string) error {
	err := tx.Unscoped().Model(&models.Item{}).
		Where("owner_id = ? AND id <> ? AND path LIKE ?", ownerID, excludeID, oldPrefix+"%").
		Update("path", gorm.Expr("? || substr(path, ?)", newPrefix, len(oldPrefix)+1)).Error
	if err != nil {
		return fmt.Errorf("failed to rewrite subtree paths: %w", err)
	}
	return nil
}
