package helpers

import (
	"testing"

	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/models"
)

// CreateTestDocument creates a document in the given state.
func CreateTestDocument(t *testing.T, db *gorm.DB, title string, state models.DocumentState, createdBy uint64) models.Document {
	t.Helper()
	doc := models.Document{
		Title:     title,
		State:     state,
		Content:   "Contrato de prueba entre las partes.",
		CreatedBy: createdBy,
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("Failed to create document %s: %v", title, err)
	}
	return doc
}

// CreateTestVariables attaches ordered variables to a document.
func CreateTestVariables(t *testing.T, db *gorm.DB, doc *models.Document, names ...string) {
	t.Helper()
	for i, name := range names {
		v := models.Variable{
			DocumentID: doc.DocumentID,
			Position:   i,
			Name:       name,
			FieldType:  "text",
			Required:   true,
		}
		if err := db.Create(&v).Error; err != nil {
			t.Fatalf("Failed to create variable %s: %v", name, err)
		}
	}
}

// CreateTestFolder creates a folder for an owner.
func CreateTestFolder(t *testing.T, db *gorm.DB, name string, ownerID uint64) models.Folder {
	t.Helper()
	folder := models.Folder{Name: name, OwnerID: ownerID}
	if err := db.Create(&folder).Error; err != nil {
		t.Fatalf("Failed to create folder %s: %v", name, err)
	}
	return folder
}

// CreateTestTag creates a tag for an owner.
func CreateTestTag(t *testing.T, db *gorm.DB, name string, ownerID uint64) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, OwnerID: ownerID}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("Failed to create tag %s: %v", name, err)
	}
	return tag
}
