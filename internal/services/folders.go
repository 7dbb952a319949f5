package services

import (
	"strings"

	"github.com/lexkeep/dyndocs/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateFolder creates a folder owned by the actor.
func CreateFolder(db *gorm.DB, owner models.User, name string, colorID int) (*models.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &PreconditionError{Field: "name", Reason: "folder name is required"}
	}
	folder := models.Folder{
		Name:    name,
		ColorID: colorID,
		OwnerID: owner.UserID,
	}
	if err := db.Create(&folder).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListFolders returns the actor's folders, newest first, with membership
// loaded.
func ListFolders(db *gorm.DB, owner models.User) ([]models.Folder, error) {
	var folders []models.Folder
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Documents").
		Where("owner_id = ?", owner.UserID).
		Order("created_at DESC").
		Find(&folders).Error
	return folders, err
}

// GetFolder loads one folder with membership; only the owner can see it.
func GetFolder(db *gorm.DB, id uint64, owner models.User) (*models.Folder, error) {
	var folder models.Folder
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Documents").
		First(&folder, "folder_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if folder.OwnerID != owner.UserID {
		return nil, ErrForbidden
	}
	return &folder, nil
}

// UpdateFolder renames and/or recolors a folder.
func UpdateFolder(db *gorm.DB, id uint64, owner models.User, name *string, colorID *int) (*models.Folder, error) {
	folder, err := GetFolder(db, id, owner)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, &PreconditionError{Field: "name", Reason: "folder name is required"}
		}
		updates["name"] = *name
	}
	if colorID != nil {
		updates["color_id"] = *colorID
	}
	if len(updates) > 0 {
		if err := db.Model(folder).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return folder, nil
}

// DeleteFolder removes the folder and its associations only. The documents
// themselves are untouched.
func DeleteFolder(db *gorm.DB, id uint64, owner models.User) error {
	folder, err := GetFolder(db, id, owner)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(folder).Association("Documents").Clear(); err != nil {
			return err
		}
		return tx.Delete(folder).Error
	})
}

// AddFolderDocuments adds document ids to a folder, deduplicating against
// existing membership. Unknown ids are ignored.
func AddFolderDocuments(db *gorm.DB, id uint64, owner models.User, docIDs []uint64) (int, error) {
	folder, err := GetFolder(db, id, owner)
	if err != nil {
		return 0, err
	}

	existing := make(map[uint64]struct{}, len(folder.Documents))
	for _, d := range folder.Documents {
		existing[d.DocumentID] = struct{}{}
	}

	var toAdd []uint64
	for _, docID := range docIDs {
		if _, ok := existing[docID]; !ok {
			toAdd = append(toAdd, docID)
			existing[docID] = struct{}{}
		}
	}
	if len(toAdd) == 0 {
		return 0, nil
	}

	var docs []models.Document
	if err := db.Find(&docs, "document_id IN ?", toAdd).Error; err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := db.Model(folder).Association("Documents").Append(&docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// RemoveFolderDocuments removes document ids from a folder. Membership in
// other folders is unaffected.
func RemoveFolderDocuments(db *gorm.DB, id uint64, owner models.User, docIDs []uint64) (int, error) {
	folder, err := GetFolder(db, id, owner)
	if err != nil {
		return 0, err
	}

	var toRemove []models.Document
	for _, d := range folder.Documents {
		for _, docID := range docIDs {
			if d.DocumentID == docID {
				toRemove = append(toRemove, d)
			}
		}
	}
	if len(toRemove) == 0 {
		return 0, nil
	}
	if err := db.Model(folder).Association("Documents").Delete(&toRemove); err != nil {
		return 0, err
	}
	return len(toRemove), nil
}
