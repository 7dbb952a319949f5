package services

import (
	"errors"
	"fmt"

	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUsabilityWithoutVisibility is the warn-and-no-op result of granting
// usability to a user or role that is not visible first.
var ErrUsabilityWithoutVisibility = errors.New("usability requires visibility")

// AvailableClient is a user a lawyer can grant document access to.
type AvailableClient struct {
	UserID uint64     `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   types.Role `json:"role"`
}

// ScopeGrants is one scope (visibility or usability) of the compact form.
type ScopeGrants struct {
	Roles   []types.Role `json:"roles"`
	UserIDs []uint64     `json:"user_ids"`
}

// CompactPermissions is the non-expanded permission shape: role grants plus
// individually granted users, expansion left to the reader.
type CompactPermissions struct {
	IsPublic   bool        `json:"is_public"`
	Visibility ScopeGrants `json:"visibility"`
	Usability  ScopeGrants `json:"usability"`
}

// ExpandedPermissions is the fully expanded shape: concrete user id sets.
type ExpandedPermissions struct {
	IsPublic          bool     `json:"is_public"`
	VisibilityUserIDs []uint64 `json:"visibility_user_ids"`
	UsabilityUserIDs  []uint64 `json:"usability_user_ids"`
}

// PermissionSet is the in-memory permission state of one document. All
// mutations preserve usability ⊆ visibility, for users and for roles.
// The zero value is unusable; construct with NewPermissionSet or
// PermissionSetFromGrants.
type PermissionSet struct {
	public          bool
	visibleUsers    []uint64
	usableUsers     []uint64
	visibilityRoles []types.Role
	usabilityRoles  []types.Role

	// roleExpansion remembers which ids each role grant added, so revoking
	// the role removes exactly those and restores the prior individual set.
	roleExpansion map[types.Role][]uint64
}

// NewPermissionSet returns an empty, non-public permission set.
func NewPermissionSet() *PermissionSet {
	return &PermissionSet{roleExpansion: make(map[types.Role][]uint64)}
}

// PermissionSetFromGrants rebuilds the in-memory state from persisted grants,
// re-expanding role grants against the currently available clients.
func PermissionSetFromGrants(isPublic bool, userGrants []models.UserGrant, roleGrants []models.RoleGrant, clients []AvailableClient) *PermissionSet {
	ps := NewPermissionSet()
	if isPublic {
		ps.public = true
		return ps
	}
	for _, g := range userGrants {
		ps.visibleUsers = append(ps.visibleUsers, g.UserID)
		if g.Usability {
			ps.usableUsers = append(ps.usableUsers, g.UserID)
		}
	}
	for _, g := range roleGrants {
		ps.expandRole(g.Role, clients)
		ps.visibilityRoles = append(ps.visibilityRoles, g.Role)
		if g.Usability {
			ps.usabilityRoles = append(ps.usabilityRoles, g.Role)
		}
	}
	return ps
}

// IsPublic reports whether the document is publicly accessible.
func (p *PermissionSet) IsPublic() bool {
	return p.public
}

// ToggleVisibility flips an individual user's visibility. Removing visibility
// cascades removal of the user's usability.
func (p *PermissionSet) ToggleVisibility(userID uint64) {
	if containsID(p.visibleUsers, userID) {
		p.visibleUsers = removeID(p.visibleUsers, userID)
		p.usableUsers = removeID(p.usableUsers, userID)
		return
	}
	p.visibleUsers = append(p.visibleUsers, userID)
}

// ToggleUsability flips an individual user's usability. The user must already
// be visible.
func (p *PermissionSet) ToggleUsability(userID uint64) error {
	if !containsID(p.visibleUsers, userID) {
		return ErrUsabilityWithoutVisibility
	}
	if containsID(p.usableUsers, userID) {
		p.usableUsers = removeID(p.usableUsers, userID)
		return nil
	}
	p.usableUsers = append(p.usableUsers, userID)
	return nil
}

// ToggleRoleVisibility flips a role grant. Granting expands the role to every
// available client with that role, deduplicated against existing individual
// grants; revoking removes exactly the users the expansion added, from both
// scopes, and drops the role from usability as well.
func (p *PermissionSet) ToggleRoleVisibility(role types.Role, clients []AvailableClient) {
	if containsRole(p.visibilityRoles, role) {
		for _, id := range p.roleExpansion[role] {
			p.visibleUsers = removeID(p.visibleUsers, id)
			p.usableUsers = removeID(p.usableUsers, id)
		}
		delete(p.roleExpansion, role)
		p.visibilityRoles = removeRole(p.visibilityRoles, role)
		p.usabilityRoles = removeRole(p.usabilityRoles, role)
		return
	}
	p.expandRole(role, clients)
	p.visibilityRoles = append(p.visibilityRoles, role)
}

// ToggleRoleUsability flips a role's usability. The role must already hold
// visibility.
func (p *PermissionSet) ToggleRoleUsability(role types.Role) error {
	if !containsRole(p.visibilityRoles, role) {
		return ErrUsabilityWithoutVisibility
	}
	if containsRole(p.usabilityRoles, role) {
		p.usabilityRoles = removeRole(p.usabilityRoles, role)
		return nil
	}
	p.usabilityRoles = append(p.usabilityRoles, role)
	return nil
}

// TogglePublicAccess flips public access. Turning it on clears every
// individual and role grant; turning it off does not restore them.
func (p *PermissionSet) TogglePublicAccess() {
	p.public = !p.public
	if p.public {
		p.visibleUsers = nil
		p.usableUsers = nil
		p.visibilityRoles = nil
		p.usabilityRoles = nil
		p.roleExpansion = make(map[types.Role][]uint64)
	}
}

// Expanded returns the concrete user id sets, role grants already expanded.
// Public documents report empty sets.
func (p *PermissionSet) Expanded() ExpandedPermissions {
	out := ExpandedPermissions{
		IsPublic:          p.public,
		VisibilityUserIDs: []uint64{},
		UsabilityUserIDs:  []uint64{},
	}
	if p.public {
		return out
	}
	out.VisibilityUserIDs = append(out.VisibilityUserIDs, p.visibleUsers...)
	out.UsabilityUserIDs = append(out.UsabilityUserIDs, p.usableUsers...)
	for _, role := range p.usabilityRoles {
		for _, id := range p.roleExpansion[role] {
			if !containsID(out.UsabilityUserIDs, id) {
				out.UsabilityUserIDs = append(out.UsabilityUserIDs, id)
			}
		}
	}
	return out
}

// Compact returns the non-expanded form: role grants plus the users granted
// individually (role-expanded users excluded).
func (p *PermissionSet) Compact() CompactPermissions {
	out := CompactPermissions{
		IsPublic:   p.public,
		Visibility: ScopeGrants{Roles: []types.Role{}, UserIDs: []uint64{}},
		Usability:  ScopeGrants{Roles: []types.Role{}, UserIDs: []uint64{}},
	}
	if p.public {
		return out
	}

	expanded := make(map[uint64]struct{})
	for _, ids := range p.roleExpansion {
		for _, id := range ids {
			expanded[id] = struct{}{}
		}
	}
	for _, id := range p.visibleUsers {
		if _, fromRole := expanded[id]; !fromRole {
			out.Visibility.UserIDs = append(out.Visibility.UserIDs, id)
		}
	}
	for _, id := range p.usableUsers {
		if _, fromRole := expanded[id]; !fromRole {
			out.Usability.UserIDs = append(out.Usability.UserIDs, id)
		}
	}
	out.Visibility.Roles = append(out.Visibility.Roles, p.visibilityRoles...)
	out.Usability.Roles = append(out.Usability.Roles, p.usabilityRoles...)
	return out
}

func (p *PermissionSet) expandRole(role types.Role, clients []AvailableClient) {
	var added []uint64
	for _, c := range clients {
		if c.Role != role || containsID(p.visibleUsers, c.UserID) {
			continue
		}
		p.visibleUsers = append(p.visibleUsers, c.UserID)
		added = append(added, c.UserID)
	}
	p.roleExpansion[role] = added
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsRole(roles []types.Role, role types.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func removeRole(roles []types.Role, role types.Role) []types.Role {
	out := roles[:0]
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

// ListAvailableClients returns the users a lawyer can grant access to
// (every non-lawyer account).
func ListAvailableClients(db *gorm.DB) ([]AvailableClient, error) {
	var users []models.User
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("role <> ?", types.RoleLawyer).
		Order("user_id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	clients := make([]AvailableClient, 0, len(users))
	for _, u := range users {
		clients = append(clients, AvailableClient{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	return clients, nil
}

// LoadDocumentPermissions loads a document's permission state, expanded
// against the currently available clients.
func LoadDocumentPermissions(db *gorm.DB, docID uint64) (*PermissionSet, error) {
	doc, err := GetDocument(db, docID)
	if err != nil {
		return nil, err
	}
	clients, err := ListAvailableClients(db)
	if err != nil {
		return nil, err
	}
	return PermissionSetFromGrants(doc.IsPublic, doc.UserGrants, doc.RoleGrants, clients), nil
}

// SaveDocumentPermissions persists the compact permission form for a
// document. Only the creating lawyer may change a document's permissions.
func SaveDocumentPermissions(db *gorm.DB, docID, version uint64, actor models.User, compact CompactPermissions) (uint64, error) {
	if !actor.Role.Capabilities().CanManagePermissions {
		return 0, ErrForbidden
	}

	for _, r := range compact.Visibility.Roles {
		if _, err := types.ParseRole(string(r)); err != nil {
			return 0, &PreconditionError{Field: "visibility.roles", Reason: err.Error()}
		}
		if !containsRole(types.GrantableRoles(), r) {
			return 0, &PreconditionError{Field: "visibility.roles", Reason: fmt.Sprintf("role %q cannot be granted document access", r)}
		}
	}

	for _, id := range compact.Usability.UserIDs {
		if !containsID(compact.Visibility.UserIDs, id) {
			return 0, ErrUsabilityWithoutVisibility
		}
	}
	for _, r := range compact.Usability.Roles {
		if !containsRole(compact.Visibility.Roles, r) {
			return 0, ErrUsabilityWithoutVisibility
		}
	}

	var newVersion uint64
	err := db.Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(tx, docID, version)
		if err != nil {
			return err
		}
		if doc.CreatedBy != actor.UserID {
			return ErrForbidden
		}

		if err := tx.Where("document_id = ?", docID).Delete(&models.UserGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", docID).Delete(&models.RoleGrant{}).Error; err != nil {
			return err
		}

		if !compact.IsPublic {
			for _, id := range compact.Visibility.UserIDs {
				grant := models.UserGrant{
					DocumentID: docID,
					UserID:     id,
					Usability:  containsID(compact.Usability.UserIDs, id),
				}
				if err := tx.Create(&grant).Error; err != nil {
					return err
				}
			}
			for _, r := range compact.Visibility.Roles {
				grant := models.RoleGrant{
					DocumentID: docID,
					Role:       r,
					Usability:  containsRole(compact.Usability.Roles, r),
				}
				if err := tx.Create(&grant).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Model(doc).Update("is_public", compact.IsPublic).Error; err != nil {
			return err
		}
		return bumpVersion(tx, doc, &newVersion)
	})

	return newVersion, err
}
