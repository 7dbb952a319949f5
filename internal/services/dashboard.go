package services

import (
	"strings"

	"github.com/lexkeep/dyndocs/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// DocumentFilter is the dashboard's composable filter. Empty fields are
// identity filters; populated ones compose by AND.
type DocumentFilter struct {
	Search   string
	TagIDs   []uint64
	States   []models.DocumentState
	FolderID *uint64
}

// ListDocuments returns the documents visible to the user, filtered. The
// visibility scope and filters are pure functions applied over the preloaded
// collection; the query itself is tagged for slow-query attribution.
func ListDocuments(db *gorm.DB, user models.User, filter DocumentFilter) ([]models.Document, error) {
	var docs []models.Document
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Clauses(hints.CommentBefore("select", "dashboard")).
		Preload("Variables", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Tags").
		Preload("Signatures").
		Preload("UserGrants").
		Preload("RoleGrants").
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	var folderMembers map[uint64]struct{}
	if filter.FolderID != nil {
		folder, err := GetFolder(db, *filter.FolderID, user)
		if err != nil {
			return nil, err
		}
		folderMembers = make(map[uint64]struct{}, len(folder.Documents))
		for _, d := range folder.Documents {
			folderMembers[d.DocumentID] = struct{}{}
		}
	}

	visible := docs[:0]
	for _, d := range docs {
		if !VisibleTo(&d, user) {
			continue
		}
		if folderMembers != nil {
			if _, ok := folderMembers[d.DocumentID]; !ok {
				continue
			}
		}
		visible = append(visible, d)
	}

	return FilterDocuments(visible, filter), nil
}

// VisibleTo reports whether the user may see the document: creator, assignee,
// public access, an individual grant, or a role grant matching the user's
// role.
func VisibleTo(doc *models.Document, user models.User) bool {
	if doc.CreatedBy == user.UserID {
		return true
	}
	if doc.AssignedTo != nil && *doc.AssignedTo == user.UserID {
		return true
	}
	if doc.IsPublic {
		return true
	}
	for _, g := range doc.UserGrants {
		if g.UserID == user.UserID {
			return true
		}
	}
	for _, g := range doc.RoleGrants {
		if g.Role == user.Role {
			return true
		}
	}
	return false
}

// UsableBy reports whether the user may act on the document beyond viewing.
func UsableBy(doc *models.Document, user models.User) bool {
	if doc.CreatedBy == user.UserID {
		return true
	}
	if doc.AssignedTo != nil && *doc.AssignedTo == user.UserID {
		return true
	}
	if doc.IsPublic {
		return true
	}
	for _, g := range doc.UserGrants {
		if g.UserID == user.UserID && g.Usability {
			return true
		}
	}
	for _, g := range doc.RoleGrants {
		if g.Role == user.Role && g.Usability {
			return true
		}
	}
	return false
}

// FilterDocuments applies the search, tag and state filters. Pure; the input
// slice is not modified.
func FilterDocuments(docs []models.Document, filter DocumentFilter) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if !matchesSearch(&d, filter.Search) {
			continue
		}
		if !matchesTags(&d, filter.TagIDs) {
			continue
		}
		if !matchesStates(&d, filter.States) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// matchesSearch does a case-insensitive match against title and state.
func matchesSearch(doc *models.Document, search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(doc.Title), q) ||
		strings.Contains(strings.ToLower(string(doc.State)), q)
}

// matchesTags intersects the document's tag ids with the selected set.
func matchesTags(doc *models.Document, tagIDs []uint64) bool {
	if len(tagIDs) == 0 {
		return true
	}
	for _, t := range doc.Tags {
		for _, want := range tagIDs {
			if t.TagID == want {
				return true
			}
		}
	}
	return false
}

func matchesStates(doc *models.Document, states []models.DocumentState) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if doc.State == s {
			return true
		}
	}
	return false
}
