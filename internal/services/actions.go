package services

import (
	"strings"

	"github.com/lexkeep/dyndocs/internal/models"
)

// Relation is the acting user's relationship to a document.
type Relation string

const (
	RelationOwner    Relation = "owner"
	RelationAssignee Relation = "assignee"
	RelationOther    Relation = "other"
)

// Action is one menu entry offered to the current user. Actions with unmet
// preconditions stay visible but disabled, with the reason attached, so the
// client can communicate why.
type Action struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	Enabled        bool   `json:"enabled"`
	DisabledReason string `json:"disabled_reason,omitempty"`
}

// actionContext is everything a menu predicate may consult. Menu content is a
// pure function of this context; there is no hidden state.
type actionContext struct {
	doc           *models.Document
	user          models.User
	relation      Relation
	pendingSigner bool
}

type actionSpec struct {
	key    string
	label  string
	enable func(actionContext) (bool, string)
}

func always(actionContext) (bool, string) { return true, "" }

var (
	actionPublish = actionSpec{"publish", "Publicar", func(ctx actionContext) (bool, string) {
		if strings.TrimSpace(ctx.doc.Content) == "" {
			return false, "el documento no tiene contenido"
		}
		return true, ""
	}}
	actionMoveToDraft = actionSpec{"draft", "Mover a Borrador", always}
	actionUseTemplate = actionSpec{"use-template", "Usar plantilla", func(ctx actionContext) (bool, string) {
		if !ctx.user.Role.Capabilities().CanInstantiate {
			return false, "solo los clientes pueden usar plantillas"
		}
		return true, ""
	}}
	actionComplete = actionSpec{"complete", "Completar", func(ctx actionContext) (bool, string) {
		if err := requiredVariablesComplete(ctx.doc); err != nil {
			return false, "faltan campos por completar"
		}
		return true, ""
	}}
	// Visible from Progress onward but only enabled on Completed, so the
	// client sees why it cannot formalize yet.
	actionFormalizeDisabled = actionSpec{"formalize", "Formalizar y Agregar Firmas", func(actionContext) (bool, string) {
		return false, "disponible al completar el documento"
	}}
	actionFormalize = actionSpec{"formalize", "Formalizar y Agregar Firmas", func(ctx actionContext) (bool, string) {
		if !ctx.user.Role.Capabilities().CanFormalize {
			return false, "no disponible para este rol"
		}
		return true, ""
	}}
	actionSign = actionSpec{"sign", "Firmar documento", func(ctx actionContext) (bool, string) {
		if !ctx.pendingSigner {
			return false, "no hay firma pendiente para este usuario"
		}
		return true, ""
	}}
	actionReject = actionSpec{"reject", "Rechazar documento", func(ctx actionContext) (bool, string) {
		if !ctx.pendingSigner {
			return false, "no hay firma pendiente para este usuario"
		}
		return true, ""
	}}
	actionDelete = actionSpec{"delete", "Eliminar", always}
)

// menu is the declarative action table: (state, relation) -> ordered action
// specs. Relations absent for a state get no actions.
var menu = map[models.DocumentState]map[Relation][]actionSpec{
	models.StateDraft: {
		RelationOwner: {actionPublish, actionDelete},
	},
	models.StatePublished: {
		RelationOwner: {actionMoveToDraft, actionDelete},
		RelationOther: {actionUseTemplate},
	},
	models.StateProgress: {
		RelationOwner:    {actionDelete},
		RelationAssignee: {actionComplete, actionFormalizeDisabled, actionDelete},
	},
	models.StateCompleted: {
		RelationOwner:    {actionFormalize, actionDelete},
		RelationAssignee: {actionFormalize, actionDelete},
	},
	models.StatePendingSignatures: {
		RelationOwner:    {actionSign, actionReject, actionDelete},
		RelationAssignee: {actionSign, actionReject, actionDelete},
		RelationOther:    {actionSign, actionReject},
	},
	models.StateFullySigned: {
		RelationOwner:    {actionDelete},
		RelationAssignee: {actionDelete},
	},
	models.StateRejected: {
		RelationOwner:    {actionDelete},
		RelationAssignee: {actionDelete},
	},
	models.StateExpired: {
		RelationOwner:    {actionDelete},
		RelationAssignee: {actionDelete},
	},
}

// RelationOf classifies the user's relationship to the document.
func RelationOf(doc *models.Document, user models.User) Relation {
	if doc.CreatedBy == user.UserID {
		return RelationOwner
	}
	if doc.AssignedTo != nil && *doc.AssignedTo == user.UserID {
		return RelationAssignee
	}
	return RelationOther
}

// AvailableActions evaluates the menu table for the document and user.
func AvailableActions(doc *models.Document, user models.User) []Action {
	ctx := actionContext{
		doc:           doc,
		user:          user,
		relation:      RelationOf(doc, user),
		pendingSigner: PendingSignatureFor(doc, user.Email) != nil,
	}

	specs := menu[doc.State][ctx.relation]
	actions := make([]Action, 0, len(specs))
	for _, spec := range specs {
		enabled, reason := spec.enable(ctx)
		actions = append(actions, Action{
			Key:            spec.key,
			Label:          spec.label,
			Enabled:        enabled,
			DisabledReason: reason,
		})
	}
	return actions
}
