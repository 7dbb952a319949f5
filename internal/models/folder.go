package models

import (
	"time"
)

// Folder is an organizational grouping of documents, independent of document
// lifecycle state. Deleting a folder removes only the associations.
type Folder struct {
	FolderID  uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	ColorID   int       `gorm:"not null;default:0" json:"color_id"`
	OwnerID   uint64    `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Documents []Document `gorm:"many2many:folder_documents;" json:"documents,omitempty"`
}

// Tag is a flat label used purely for dashboard filtering.
type Tag struct {
	TagID     uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ColorID   int       `gorm:"not null;default:0" json:"color_id"`
	OwnerID   uint64    `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name for Folder
func (Folder) TableName() string {
	return "folders"
}

// TableName overrides the table name for Tag
func (Tag) TableName() string {
	return "tags"
}
