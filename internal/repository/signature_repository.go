package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// SignatureRepository owns the frozen approval snapshots and the signature
// ledger. Snapshot capture and ledger writes are always paired with the
// document status change in one transaction, so a document is never signed
// without advancing nor advanced without its ledger entry.
type SignatureRepository struct {
	db *database.DB
}

func NewSignatureRepository(db *database.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// CaptureSnapshot persists the resolved level set and moves the document into
// the signing phase (or straight to APPROVED on an empty set) atomically.
// A snapshot may be captured at most once per document.
func (r *SignatureRepository) CaptureSnapshot(
	ctx context.Context,
	snap *ApprovalSnapshot,
	expectedVersion int,
	entryStatus workflow.Status,
) error {
	levelsJSON, err := json.Marshal(snap.Levels)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal snapshot levels")
	}

	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		snapQuery := `
			INSERT INTO approval_snapshots (entity_type, entity_id, levels)
			VALUES ($1, $2, $3)
			RETURNING id, captured_at
		`
		err := tx.QueryRow(ctx, snapQuery, snap.EntityType, snap.EntityID, levelsJSON).
			Scan(&snap.ID, &snap.CapturedAt)
		if isUniqueViolation(err) {
			return apperrors.Newf(apperrors.CodeConflict,
				"document %s already entered the signing phase", snap.EntityID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to capture approval snapshot")
		}

		statusQuery := `
			UPDATE quotation_requests
			SET status = $3::document_status, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
			RETURNING id
		`
		var returnedID string
		err = tx.QueryRow(ctx, statusQuery, snap.EntityID, expectedVersion, entryStatus).
			Scan(&returnedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.Newf(apperrors.CodeConcurrentModification,
				"quotation request %s changed concurrently", snap.EntityID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to enter signing phase")
		}
		return nil
	})
}

// GetSnapshot loads the frozen snapshot for a document, or nil when the
// document has not entered the signing phase.
func (r *SignatureRepository) GetSnapshot(ctx context.Context, entityType, entityID string) (*ApprovalSnapshot, error) {
	query := `
		SELECT id, entity_type, entity_id, levels, captured_at
		FROM approval_snapshots
		WHERE entity_type = $1 AND entity_id = $2
	`
	snap := &ApprovalSnapshot{}
	var levelsJSON []byte
	err := r.db.QueryRow(ctx, query, entityType, entityID).
		Scan(&snap.ID, &snap.EntityType, &snap.EntityID, &levelsJSON, &snap.CapturedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get approval snapshot")
	}
	if err := json.Unmarshal(levelsJSON, &snap.Levels); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to unmarshal snapshot levels")
	}
	return snap, nil
}

// SignAndAdvance records a ledger entry and advances the document status in
// one transaction. The ledger's unique (entity, level) constraint rejects
// double signing; the version guard rejects concurrent transitions.
func (r *SignatureRepository) SignAndAdvance(
	ctx context.Context,
	sig *Signature,
	expectedVersion int,
	next workflow.Status,
) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		sigQuery := `
			INSERT INTO signatures (entity_type, entity_id, level, signer_id, artifact_ref)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, signed_at
		`
		err := tx.QueryRow(ctx, sigQuery,
			sig.EntityType, sig.EntityID, sig.Level, sig.SignerID, sig.ArtifactRef).
			Scan(&sig.ID, &sig.SignedAt)
		if isUniqueViolation(err) {
			return apperrors.Newf(apperrors.CodeDuplicateSignature,
				"level %d of document %s is already signed", sig.Level, sig.EntityID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to record signature")
		}

		statusQuery := `
			UPDATE quotation_requests
			SET status = $3::document_status, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
			RETURNING id
		`
		var returnedID string
		err = tx.QueryRow(ctx, statusQuery, sig.EntityID, expectedVersion, next).Scan(&returnedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.Newf(apperrors.CodeConcurrentModification,
				"quotation request %s changed concurrently", sig.EntityID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to advance document status")
		}
		return nil
	})
}

// ListSignatures returns the ledger for a document ordered by level.
func (r *SignatureRepository) ListSignatures(ctx context.Context, entityType, entityID string) ([]*Signature, error) {
	query := `
		SELECT id, entity_type, entity_id, level, signer_id, artifact_ref, signed_at
		FROM signatures
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY level ASC
	`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list signatures")
	}
	defer rows.Close()

	var sigs []*Signature
	for rows.Next() {
		sig := &Signature{}
		if err := rows.Scan(&sig.ID, &sig.EntityType, &sig.EntityID, &sig.Level,
			&sig.SignerID, &sig.ArtifactRef, &sig.SignedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan signature")
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}
