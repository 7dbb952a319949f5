package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/models"
)

// ListTags returns the owner's tags ordered by name.
func ListTags(db *gorm.DB, owner models.User) ([]models.Tag, error) {
	var tags []models.Tag
	result := db.Where("owner_id = ?", owner.UserID).Order("name ASC").Find(&tags)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list tags: %w", result.Error)
	}
	return tags, nil
}

// CreateTag creates a tag owned by the user. Tag management is a lawyer
// capability.
func CreateTag(db *gorm.DB, owner models.User, name string, colorID int) (*models.Tag, error) {
	if !owner.Role.Capabilities().CanManageTags {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		return nil, &PreconditionError{Field: "name", Reason: "name is required"}
	}

	tag := models.Tag{Name: name, ColorID: colorID, OwnerID: owner.UserID}
	if result := db.Create(&tag); result.Error != nil {
		return nil, fmt.Errorf("failed to create tag: %w", result.Error)
	}
	return &tag, nil
}

// DeleteTag removes a tag and its document associations. Documents themselves
// are untouched.
func DeleteTag(db *gorm.DB, id uint64, owner models.User) error {
	if !owner.Role.Capabilities().CanManageTags {
		return ErrForbidden
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		result := tx.Where("tag_id = ?", id).First(&tag)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load tag: %w", result.Error)
		}
		if tag.OwnerID != owner.UserID {
			return ErrForbidden
		}

		if err := tx.Exec("DELETE FROM document_tags WHERE tag_tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to clear tag associations: %w", err)
		}
		if result := tx.Delete(&tag); result.Error != nil {
			return fmt.Errorf("failed to delete tag: %w", result.Error)
		}
		return nil
	})
}
