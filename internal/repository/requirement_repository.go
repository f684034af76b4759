package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
)

// RequirementRepository handles requirement rows. Requirements are immutable
// once a quotation request derives from them, which is enforced here rather
// than in callers.
type RequirementRepository struct {
	db *database.DB
}

func NewRequirementRepository(db *database.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// Create inserts a new requirement.
func (r *RequirementRepository) Create(ctx context.Context, req *Requirement) error {
	query := `
		INSERT INTO requirements
		    (type, subtype, justification_ref, cost_center_id, warehouse_id, requested_by)
		VALUES ($1::requirement_type, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		req.Type,
		req.Subtype,
		req.JustificationRef,
		req.CostCenterID,
		req.WarehouseID,
		req.RequestedBy,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create requirement")
	}
	return nil
}

// GetByID retrieves a requirement, excluding soft-deleted rows.
func (r *RequirementRepository) GetByID(ctx context.Context, id string) (*Requirement, error) {
	query := `
		SELECT id, type, subtype, justification_ref, cost_center_id, warehouse_id,
		       requested_by, deleted_at, created_at, updated_at
		FROM requirements
		WHERE id = $1 AND deleted_at IS NULL
	`
	req := &Requirement{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.Type,
		&req.Subtype,
		&req.JustificationRef,
		&req.CostCenterID,
		&req.WarehouseID,
		&req.RequestedBy,
		&req.DeletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("requirement", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get requirement")
	}
	return req, nil
}

// List returns non-deleted requirements for a cost center, newest first.
func (r *RequirementRepository) List(ctx context.Context, costCenterID string, limit, offset int) ([]*Requirement, error) {
	query := `
		SELECT id, type, subtype, justification_ref, cost_center_id, warehouse_id,
		       requested_by, deleted_at, created_at, updated_at
		FROM requirements
		WHERE cost_center_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, costCenterID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list requirements")
	}
	defer rows.Close()

	var reqs []*Requirement
	for rows.Next() {
		req := &Requirement{}
		if err := rows.Scan(
			&req.ID,
			&req.Type,
			&req.Subtype,
			&req.JustificationRef,
			&req.CostCenterID,
			&req.WarehouseID,
			&req.RequestedBy,
			&req.DeletedAt,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan requirement")
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// SoftDelete marks a requirement deleted. Refused when a quotation request
// already derives from it.
func (r *RequirementRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE requirements
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM quotation_requests q WHERE q.requirement_id = $1)
		RETURNING id
	`
	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.CodeConflict,
			"requirement not found, already deleted, or already quoted")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete requirement")
	}
	return nil
}
