package models

import (
	"time"

	"gorm.io/gorm"
)

// FolderMimeType is the reserved MIME type that marks an item as a folder.
// Every other value denotes a file's content type.
const FolderMimeType = "application/vnd.dopple.folder"

// Item is a single node of an owner's drive tree. Files and folders share
// the row shape; FileURL/Key/Size are set only for files.
//
// Path is the materialized ancestor chain "/<ancestorId>/.../<selfId>/".
// It is written exclusively by logics.PathService and always reflects the
// live ParentID chain.
type Item struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID  int64  `gorm:"not null;uniqueIndex:uniq_name_in_folder,priority:1;uniqueIndex:uniq_name_in_root,priority:1" json:"owner_id"`
	Name     string `gorm:"type:text;not null;index;uniqueIndex:uniq_name_in_folder,priority:3;uniqueIndex:uniq_name_in_root,priority:2,where:parent_id IS NULL AND deleted_at IS NULL" json:"name"`
	MimeType string `gorm:"type:text;not null;default:'application/octet-stream';index:idx_items_folder_file_sort,priority:2" json:"mime_type"`
	ParentID *int64 `gorm:"index;uniqueIndex:uniq_name_in_folder,priority:2,where:parent_id IS NOT NULL AND deleted_at IS NULL;index:idx_items_folder_file_sort,priority:1" json:"parent_id"`
	Path     string `gorm:"type:text;not null;index" json:"path"`

	FileURL *string `gorm:"type:text" json:"file_url"`
	Key     *string `gorm:"type:text" json:"key"`
	Size    *int64  `json:"size"`

	// self-referencing relations
	Parent   *Item  `gorm:"foreignKey:ParentID;references:ID;constraint:OnDelete:CASCADE" json:"parent,omitempty"`
	Children []Item `gorm:"foreignKey:ParentID;references:ID" json:"children,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Item) TableName() string {
	return "items"
}

// IsFolder reports whether the item carries folder semantics.
func (i *Item) IsFolder() bool {
	return i.MimeType == FolderMimeType
}

// SortKey is the synthetic folder-first ordering key: 0 for folders,
// 1 for files. Listing sorts by (SortKey, Name, ID).
func (i *Item) SortKey() int {
	if i.IsFolder() {
		return 0
	}
	return 1
}
