package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexkeep/dyndocs/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// transitions is the legal state graph. Targets not listed for a state are
// rejected server-side regardless of what the client requests.
var transitions = map[models.DocumentState][]models.DocumentState{
	models.StateDraft:             {models.StatePublished},
	models.StatePublished:         {models.StateDraft, models.StateProgress},
	models.StateProgress:          {models.StateCompleted},
	models.StateCompleted:         {models.StatePendingSignatures},
	models.StatePendingSignatures: {models.StateFullySigned, models.StateRejected, models.StateExpired},
	models.StateFullySigned:       {},
	models.StateRejected:          {},
	models.StateExpired:           {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to models.DocumentState) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// DocumentInput carries fields for creating or updating a document.
type DocumentInput struct {
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Counterpart      string          `json:"counterpart"`
	Object           string          `json:"object"`
	Value            string          `json:"value"`
	Term             string          `json:"term"`
	SubscriptionDate *time.Time      `json:"subscription_date"`
	ExpirationDate   *time.Time      `json:"expiration_date"`
	Variables        []VariableInput `json:"variables"`
	TagIDs           []uint64        `json:"tag_ids"`
}

// VariableInput is one template placeholder in a create/update payload.
type VariableInput struct {
	Name         string          `json:"name"`
	FieldType    string          `json:"field_type"`
	Value        string          `json:"value"`
	Tooltip      string          `json:"tooltip"`
	Currency     string          `json:"currency"`
	SummaryField string          `json:"summary_field"`
	Required     *bool           `json:"required"`
	Options      json.RawMessage `json:"options,omitempty"`
}

// SignerInput is one configured signer in a formalize payload.
type SignerInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GetDocument loads a document with its variables (ordered), tags, signatures
// and permission grants.
func GetDocument(db *gorm.DB, id uint64) (*models.Document, error) {
	var doc models.Document
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Variables", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Tags").
		Preload("Signatures").
		Preload("UserGrants").
		Preload("RoleGrants").
		First(&doc, "document_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// CreateDraft creates a new lawyer template in Draft state.
func CreateDraft(db *gorm.DB, actor models.User, input DocumentInput) (*models.Document, error) {
	if !actor.Role.Capabilities().CanCreateTemplates {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, &PreconditionError{Field: "title", Reason: "title is required"}
	}

	doc := models.Document{
		Title:            input.Title,
		State:            models.StateDraft,
		Content:          input.Content,
		CreatedBy:        actor.UserID,
		Counterpart:      input.Counterpart,
		Object:           input.Object,
		Value:            input.Value,
		Term:             input.Term,
		SubscriptionDate: input.SubscriptionDate,
		ExpirationDate:   input.ExpirationDate,
		Variables:        buildVariables(input.Variables),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		return replaceTags(tx, &doc, input.TagIDs)
	})
	if err != nil {
		return nil, err
	}
	return GetDocument(db, doc.DocumentID)
}

// UpdateDocument edits document content. Owners edit templates in Draft;
// assignees fill variable values in Progress.
func UpdateDocument(db *gorm.DB, id, version uint64, actor models.User, input DocumentInput) (uint64, error) {
	var newVersion uint64

	err := db.Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(tx, id, version)
		if err != nil {
			return err
		}

		switch {
		case doc.State == models.StateDraft && doc.CreatedBy == actor.UserID:
			updates := map[string]interface{}{
				"title":             input.Title,
				"content":           input.Content,
				"counterpart":       input.Counterpart,
				"object":            input.Object,
				"value":             input.Value,
				"term":              input.Term,
				"subscription_date": input.SubscriptionDate,
				"expiration_date":   input.ExpirationDate,
			}
			if err := tx.Model(doc).Updates(updates).Error; err != nil {
				return err
			}
			if input.Variables != nil {
				if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.Variable{}).Error; err != nil {
					return err
				}
				vars := buildVariables(input.Variables)
				for i := range vars {
					vars[i].DocumentID = doc.DocumentID
				}
				if len(vars) > 0 {
					if err := tx.Create(&vars).Error; err != nil {
						return err
					}
				}
			}
			if input.TagIDs != nil {
				if err := replaceTags(tx, doc, input.TagIDs); err != nil {
					return err
				}
			}

		case doc.State == models.StateProgress && doc.AssignedTo != nil && *doc.AssignedTo == actor.UserID:
			// Assignees only fill in values.
			for _, v := range input.Variables {
				result := tx.Model(&models.Variable{}).
					Where("document_id = ? AND name = ?", doc.DocumentID, v.Name).
					Update("value", v.Value)
				if result.Error != nil {
					return result.Error
				}
			}

		default:
			return ErrForbidden
		}

		return bumpVersion(tx, doc, &newVersion)
	})

	return newVersion, err
}

// Publish moves a Draft template to Published. Requires content and ownership.
func Publish(db *gorm.DB, id, version uint64, actor models.User) (uint64, error) {
	return transition(db, id, version, actor, models.StatePublished, func(doc *models.Document) error {
		if !actor.Role.Capabilities().CanPublish || doc.CreatedBy != actor.UserID {
			return ErrForbidden
		}
		if strings.TrimSpace(doc.Content) == "" {
			return &PreconditionError{Field: "content", Reason: "cannot publish an empty document"}
		}
		return nil
	}, nil)
}

// MoveToDraft reverses a publish.
func MoveToDraft(db *gorm.DB, id, version uint64, actor models.User) (uint64, error) {
	return transition(db, id, version, actor, models.StateDraft, func(doc *models.Document) error {
		if !actor.Role.Capabilities().CanPublish || doc.CreatedBy != actor.UserID {
			return ErrForbidden
		}
		return nil
	}, nil)
}

// Instantiate creates a client instance (Progress) from a Published template.
// The copy keeps the template owner as creator and assigns the acting client.
func Instantiate(db *gorm.DB, templateID uint64, actor models.User) (*models.Document, error) {
	if !actor.Role.Capabilities().CanInstantiate {
		return nil, ErrForbidden
	}

	var instanceID uint64
	err := db.Transaction(func(tx *gorm.DB) error {
		tpl, err := GetDocument(tx, templateID)
		if err != nil {
			return err
		}
		if tpl.State != models.StatePublished {
			return &PreconditionError{Field: "state", Reason: fmt.Sprintf("cannot instantiate a %s document", tpl.State)}
		}

		assignee := actor.UserID
		instance := models.Document{
			Title:            tpl.Title,
			State:            models.StateProgress,
			Content:          tpl.Content,
			CreatedBy:        tpl.CreatedBy,
			AssignedTo:       &assignee,
			Counterpart:      tpl.Counterpart,
			Object:           tpl.Object,
			Value:            tpl.Value,
			Term:             tpl.Term,
			SubscriptionDate: tpl.SubscriptionDate,
			ExpirationDate:   tpl.ExpirationDate,
		}
		for _, v := range tpl.Variables {
			instance.Variables = append(instance.Variables, models.Variable{
				Position:     v.Position,
				Name:         v.Name,
				FieldType:    v.FieldType,
				Value:        v.Value,
				Tooltip:      v.Tooltip,
				Currency:     v.Currency,
				SummaryField: v.SummaryField,
				Required:     v.Required,
				Options:      v.Options,
			})
		}
		if err := tx.Create(&instance).Error; err != nil {
			return err
		}
		if len(tpl.Tags) > 0 {
			if err := tx.Model(&instance).Association("Tags").Append(&tpl.Tags); err != nil {
				return err
			}
		}
		instanceID = instance.DocumentID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetDocument(db, instanceID)
}

// Complete moves an instance from Progress to Completed. All required
// variables must have a non-empty value.
func Complete(db *gorm.DB, id, version uint64, actor models.User) (uint64, error) {
	return transition(db, id, version, actor, models.StateCompleted, func(doc *models.Document) error {
		if !actor.Role.Capabilities().CanComplete {
			return ErrForbidden
		}
		if doc.AssignedTo == nil || *doc.AssignedTo != actor.UserID {
			return ErrForbidden
		}
		return requiredVariablesComplete(doc)
	}, nil)
}

// Formalize attaches the signature requirement to a Completed document and
// moves it to PendingSignatures. signBy falls back to now + defaultDeadline.
func Formalize(db *gorm.DB, id, version uint64, actor models.User, signers []SignerInput, signBy *time.Time, defaultDeadline time.Duration) (uint64, error) {
	if len(signers) == 0 {
		return 0, &PreconditionError{Field: "signatures", Reason: "at least one signer is required"}
	}
	for _, s := range signers {
		if strings.TrimSpace(s.Email) == "" {
			return 0, &PreconditionError{Field: "signatures", Reason: "signer email is required"}
		}
	}

	return transition(db, id, version, actor, models.StatePendingSignatures, func(doc *models.Document) error {
		if !actor.Role.Capabilities().CanFormalize {
			return ErrForbidden
		}
		if doc.CreatedBy != actor.UserID && (doc.AssignedTo == nil || *doc.AssignedTo != actor.UserID) {
			return ErrForbidden
		}
		return nil
	}, func(tx *gorm.DB, doc *models.Document) error {
		deadline := signBy
		if deadline == nil {
			d := time.Now().Add(defaultDeadline)
			deadline = &d
		}
		for _, s := range signers {
			sig := models.Signature{
				DocumentID:  doc.DocumentID,
				Token:       uuid.New().String(),
				SignerEmail: s.Email,
				SignerName:  s.Name,
			}
			if err := tx.Create(&sig).Error; err != nil {
				return err
			}
		}
		return tx.Model(doc).Updates(map[string]interface{}{
			"requires_signature": true,
			"sign_by":            deadline,
		}).Error
	})
}

// DeleteDocument removes a document and all of its owned rows and
// associations. The creator may always delete; an assignee may delete an
// instance assigned to them. Folder membership is association-only, so
// removal never touches folders themselves.
func DeleteDocument(db *gorm.DB, id, version uint64, actor models.User) (int64, error) {
	var affectedRows int64

	err := db.Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(tx, id, version)
		if err != nil {
			return err
		}

		isCreator := doc.CreatedBy == actor.UserID
		isAssignee := doc.AssignedTo != nil && *doc.AssignedTo == actor.UserID
		if !isCreator && !isAssignee {
			return ErrForbidden
		}

		if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.Variable{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.Signature{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.UserGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.DocumentID).Delete(&models.RoleGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM folder_documents WHERE document_document_id = ?", doc.DocumentID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM document_tags WHERE document_document_id = ?", doc.DocumentID).Error; err != nil {
			return err
		}

		result := tx.Delete(doc)
		if result.Error != nil {
			return result.Error
		}
		affectedRows = result.RowsAffected
		return nil
	})

	return affectedRows, err
}

// ExpireOverdue moves every PendingSignatures document whose deadline has
// elapsed to Expired. Runs from the background sweep, not from user actions.
func ExpireOverdue(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Document{}).
		Where("state = ? AND sign_by IS NOT NULL AND sign_by < ?", models.StatePendingSignatures, now).
		Updates(map[string]interface{}{
			"state":            models.StateExpired,
			"document_version": gorm.Expr("document_version + 1"),
		})
	return result.RowsAffected, result.Error
}

// transition runs the shared lock / version-check / guard / apply sequence.
// Reaching the target state again is an idempotent success with no version
// bump. mutate, when set, runs after the state change in the same transaction.
func transition(db *gorm.DB, id, version uint64, actor models.User, target models.DocumentState,
	guard func(*models.Document) error, mutate func(*gorm.DB, *models.Document) error) (uint64, error) {

	var newVersion uint64

	err := db.Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(tx, id, version)
		if err != nil {
			return err
		}

		if doc.State == target {
			newVersion = doc.DocumentVersion
			return nil
		}
		if !CanTransition(doc.State, target) {
			return &PreconditionError{Field: "state", Reason: fmt.Sprintf("cannot move from %s to %s", doc.State, target)}
		}
		if guard != nil {
			if err := guard(doc); err != nil {
				return err
			}
		}

		if err := tx.Model(doc).Update("state", target).Error; err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(tx, doc); err != nil {
				return err
			}
		}
		return bumpVersion(tx, doc, &newVersion)
	})

	return newVersion, err
}

// lockDocument loads the document row FOR UPDATE with its variables and
// checks the optimistic version counter.
func lockDocument(tx *gorm.DB, id, version uint64) (*models.Document, error) {
	var doc models.Document
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Variables").
		First(&doc, "document_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.DocumentVersion != version {
		return nil, ErrVersion
	}
	return &doc, nil
}

// bumpVersion increments the optimistic counter, guarding against concurrent
// writers that slipped between the lock and the update.
func bumpVersion(tx *gorm.DB, doc *models.Document, newVersion *uint64) error {
	*newVersion = doc.DocumentVersion + 1
	result := tx.Model(doc).Where("document_version = ?", doc.DocumentVersion).
		Update("document_version", *newVersion)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w - failed to update document due to concurrent modification", ErrVersion)
	}
	return nil
}

// requiredVariablesComplete checks that every required variable has a value.
func requiredVariablesComplete(doc *models.Document) error {
	for _, v := range doc.Variables {
		if v.Required && strings.TrimSpace(v.Value) == "" {
			return &PreconditionError{Field: "variables", Reason: fmt.Sprintf("variable %q has no value", v.Name)}
		}
	}
	return nil
}

func buildVariables(inputs []VariableInput) []models.Variable {
	vars := make([]models.Variable, 0, len(inputs))
	for i, in := range inputs {
		required := true
		if in.Required != nil {
			required = *in.Required
		}
		v := models.Variable{
			Position:     i,
			Name:         in.Name,
			FieldType:    in.FieldType,
			Value:        in.Value,
			Tooltip:      in.Tooltip,
			Currency:     in.Currency,
			SummaryField: in.SummaryField,
			Required:     required,
		}
		if len(in.Options) > 0 {
			v.Options = models.NewJSON(in.Options)
		}
		vars = append(vars, v)
	}
	return vars
}

func replaceTags(tx *gorm.DB, doc *models.Document, tagIDs []uint64) error {
	if tagIDs == nil {
		return nil
	}
	var tags []models.Tag
	if len(tagIDs) > 0 {
		if err := tx.Find(&tags, "tag_id IN ?", tagIDs).Error; err != nil {
			return err
		}
	}
	return tx.Model(doc).Association("Tags").Replace(&tags)
}
