package models

import (
	"time"
)

// DocumentState is the lifecycle state of a Document.
type DocumentState string

const (
	StateDraft             DocumentState = "Draft"
	StatePublished         DocumentState = "Published"
	StateProgress          DocumentState = "Progress"
	StateCompleted         DocumentState = "Completed"
	StatePendingSignatures DocumentState = "PendingSignatures"
	StateFullySigned       DocumentState = "FullySigned"
	StateRejected          DocumentState = "Rejected"
	StateExpired           DocumentState = "Expired"
)

// Document is a lawyer-authored template (Draft/Published) or a client
// instance of one (Progress onwards). AssignedTo is set only on instances.
type Document struct {
	DocumentID        uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string        `gorm:"size:255;not null" json:"title"`
	State             DocumentState `gorm:"size:32;not null;index" json:"state"`
	DocumentVersion   uint64        `gorm:"not null;default:0" json:"document_version"`
	Content           string        `gorm:"type:text" json:"content"`
	CreatedBy         uint64        `gorm:"not null;index" json:"created_by"`
	AssignedTo        *uint64       `gorm:"index" json:"assigned_to"`
	RequiresSignature bool          `gorm:"not null;default:false" json:"requires_signature"`
	SignBy            *time.Time    `json:"sign_by"`
	IsPublic          bool          `gorm:"not null;default:false" json:"is_public"`

	// Summary fields for client-facing reporting.
	Counterpart      string     `gorm:"size:255" json:"counterpart"`
	Object           string     `gorm:"size:255" json:"object"`
	Value            string     `gorm:"size:255" json:"value"`
	Term             string     `gorm:"size:255" json:"term"`
	SubscriptionDate *time.Time `json:"subscription_date"`
	ExpirationDate   *time.Time `json:"expiration_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Variables  []Variable  `gorm:"foreignKey:DocumentID" json:"variables,omitempty"`
	Signatures []Signature `gorm:"foreignKey:DocumentID" json:"signatures,omitempty"`
	Tags       []Tag       `gorm:"many2many:document_tags;" json:"tags,omitempty"`
	UserGrants []UserGrant `gorm:"foreignKey:DocumentID" json:"-"`
	RoleGrants []RoleGrant `gorm:"foreignKey:DocumentID" json:"-"`
}

// Variable is a template placeholder with an ordered position in the document.
type Variable struct {
	VariableID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID   uint64 `gorm:"not null;index" json:"-"`
	Position     int    `gorm:"not null;default:0" json:"position"`
	Name         string `gorm:"size:255;not null" json:"name"`
	FieldType    string `gorm:"size:64" json:"field_type"`
	Value        string `gorm:"type:text" json:"value"`
	Tooltip      string `gorm:"size:512" json:"tooltip"`
	Currency     string `gorm:"size:8" json:"currency,omitempty"`
	SummaryField string `gorm:"size:64" json:"summary_field,omitempty"`
	Required     bool   `gorm:"not null;default:true" json:"required"`
	Options      JSON   `gorm:"type:json" json:"options,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Signature is one signer's row against a document's signature requirement.
// Immutable once Signed or Rejected is true.
type Signature struct {
	SignatureID      uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID       uint64     `gorm:"not null;index" json:"document_id"`
	Token            string     `gorm:"size:36;uniqueIndex;not null" json:"token"`
	SignerEmail      string     `gorm:"size:255;not null;index" json:"signer_email"`
	SignerName       string     `gorm:"size:255" json:"signer_name"`
	Signed           bool       `gorm:"not null;default:false" json:"signed"`
	SignedAt         *time.Time `json:"signed_at"`
	Rejected         bool       `gorm:"not null;default:false" json:"rejected"`
	RejectedAt       *time.Time `json:"rejected_at"`
	RejectionComment string     `gorm:"size:1024" json:"rejection_comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Settled reports whether the signature can no longer be acted on.
func (s Signature) Settled() bool {
	return s.Signed || s.Rejected
}

// TableName overrides the table name for Document
func (Document) TableName() string {
	return "documents"
}

// TableName overrides the table name for Variable
func (Variable) TableName() string {
	return "document_variables"
}

// TableName overrides the table name for Signature
func (Signature) TableName() string {
	return "document_signatures"
}
