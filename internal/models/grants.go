package models

import (
	"time"

	"github.com/lexkeep/dyndocs/internal/types"
)

// UserGrant is an individual permission grant on a document. Row presence
// means visibility; Usability marks the stronger scope (usability implies
// visibility, so a usability-only row never exists).
type UserGrant struct {
	GrantID    uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	DocumentID uint64    `gorm:"not null;index:idx_user_grant,unique" json:"document_id"`
	UserID     uint64    `gorm:"not null;index:idx_user_grant,unique" json:"user_id"`
	Usability  bool      `gorm:"not null;default:false" json:"usability"`
	CreatedAt  time.Time `json:"-"`
}

// RoleGrant is a role-level permission grant on a document, expanded to
// concrete users by the permission engine.
type RoleGrant struct {
	GrantID    uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	DocumentID uint64     `gorm:"not null;index:idx_role_grant,unique" json:"document_id"`
	Role       types.Role `gorm:"size:32;not null;index:idx_role_grant,unique" json:"role"`
	Usability  bool       `gorm:"not null;default:false" json:"usability"`
	CreatedAt  time.Time  `json:"-"`
}

// TableName overrides the table name for UserGrant
func (UserGrant) TableName() string {
	return "document_user_grants"
}

// TableName overrides the table name for RoleGrant
func (RoleGrant) TableName() string {
	return "document_role_grants"
}
