package models

import (
	"time"

	"github.com/lexkeep/dyndocs/internal/types"
)

// User is an account known to the service. Lawyers author templates; clients
// instantiate and complete them.
type User struct {
	UserID    uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string     `gorm:"size:255" json:"name"`
	Role      types.Role `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"-"`
}

// IsLawyer reports whether the account holds the lawyer role.
func (u User) IsLawyer() bool {
	return u.Role == types.RoleLawyer
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
