package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lexkeep/dyndocs/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrSignatureSettled is returned when acting on a signature that was already
// signed or rejected. Settled signatures are immutable.
var ErrSignatureSettled = errors.New("signature already settled")

// AggregateSignatureState derives the document state implied by its signer
// rows. Rejection takes precedence over an otherwise incomplete signed set.
func AggregateSignatureState(signatures []models.Signature) models.DocumentState {
	if len(signatures) == 0 {
		return models.StatePendingSignatures
	}
	allSigned := true
	for _, s := range signatures {
		if s.Rejected {
			return models.StateRejected
		}
		if !s.Signed {
			allSigned = false
		}
	}
	if allSigned {
		return models.StateFullySigned
	}
	return models.StatePendingSignatures
}

// PendingSignatureFor returns the signature row the given user can still act
// on, or nil.
func PendingSignatureFor(doc *models.Document, email string) *models.Signature {
	for i := range doc.Signatures {
		s := &doc.Signatures[i]
		if strings.EqualFold(s.SignerEmail, email) && !s.Settled() {
			return s
		}
	}
	return nil
}

// SignByToken marks a signature as signed and applies the new aggregate state
// to the owning document in the same transaction. The acting user's email
// must match the signer row.
func SignByToken(db *gorm.DB, token, actorEmail string) (models.DocumentState, error) {
	return settleSignature(db, token, actorEmail, func(tx *gorm.DB, sig *models.Signature) error {
		now := time.Now().UTC()
		return tx.Model(sig).Updates(map[string]interface{}{
			"signed":    true,
			"signed_at": now,
		}).Error
	})
}

// RejectByToken marks a signature as rejected with the signer's comment and
// applies the new aggregate state to the owning document.
func RejectByToken(db *gorm.DB, token, actorEmail, comment string) (models.DocumentState, error) {
	return settleSignature(db, token, actorEmail, func(tx *gorm.DB, sig *models.Signature) error {
		now := time.Now().UTC()
		return tx.Model(sig).Updates(map[string]interface{}{
			"rejected":          true,
			"rejected_at":       now,
			"rejection_comment": comment,
		}).Error
	})
}

func settleSignature(db *gorm.DB, token, actorEmail string, settle func(*gorm.DB, *models.Signature) error) (models.DocumentState, error) {
	var state models.DocumentState

	err := db.Transaction(func(tx *gorm.DB) error {
		var sig models.Signature
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			First(&sig, "token = ?", token).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		if !strings.EqualFold(sig.SignerEmail, actorEmail) {
			return ErrForbidden
		}
		if sig.Settled() {
			return ErrSignatureSettled
		}

		// Lock the document so concurrent signers serialize the aggregate
		// derivation.
		var doc models.Document
		err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, "document_id = ?", sig.DocumentID).Error
		if err != nil {
			return err
		}
		if doc.State != models.StatePendingSignatures {
			return &PreconditionError{Field: "state", Reason: "document is not awaiting signatures"}
		}

		if err := settle(tx, &sig); err != nil {
			return err
		}

		var signatures []models.Signature
		if err := tx.Where("document_id = ?", doc.DocumentID).Find(&signatures).Error; err != nil {
			return err
		}
		state = AggregateSignatureState(signatures)
		if state == doc.State {
			return nil
		}

		if err := tx.Model(&doc).Update("state", state).Error; err != nil {
			return err
		}
		var newVersion uint64
		return bumpVersion(tx, &doc, &newVersion)
	})

	return state, err
}
