package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// PaymentRepository handles payment groups and their detail entries. The
// unique FK on quotation_request_id makes group creation idempotent.
type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// EnsureGroup creates the payment group for a quotation request if none
// exists and returns the row either way.
func (r *PaymentRepository) EnsureGroup(ctx context.Context, qrID string) (*PaymentGroup, error) {
	query := `
		INSERT INTO payment_groups (quotation_request_id)
		VALUES ($1)
		ON CONFLICT (quotation_request_id) DO UPDATE
		SET updated_at = payment_groups.updated_at
		RETURNING id, quotation_request_id, created_at, updated_at
	`
	g := &PaymentGroup{}
	err := r.db.QueryRow(ctx, query, qrID).
		Scan(&g.ID, &g.QuotationRequestID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to ensure payment group")
	}
	return g, nil
}

// GetGroupByQuotationRequest returns the group for a quotation request.
func (r *PaymentRepository) GetGroupByQuotationRequest(ctx context.Context, qrID string) (*PaymentGroup, error) {
	query := `
		SELECT id, quotation_request_id, created_at, updated_at
		FROM payment_groups
		WHERE quotation_request_id = $1
	`
	g := &PaymentGroup{}
	err := r.db.QueryRow(ctx, query, qrID).
		Scan(&g.ID, &g.QuotationRequestID, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("payment_group", qrID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get payment group")
	}
	return g, nil
}

// AddDetail appends one payment detail entry to a group.
func (r *PaymentRepository) AddDetail(ctx context.Context, d *PaymentDetail) error {
	if d.Status == "" {
		d.Status = workflow.PaymentDetailPending
	}
	query := `
		INSERT INTO payment_details
		    (payment_group_id, amount_cents, invoice_image_ref, retention_document_ref,
		     status, created_by)
		VALUES ($1, $2, $3, $4, $5::payment_detail_status, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		d.PaymentGroupID, d.AmountCents, d.InvoiceImageRef, d.RetentionDocumentRef,
		d.Status, d.CreatedBy).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to add payment detail")
	}
	return nil
}

// ListDetails returns all detail entries of a group, oldest first.
func (r *PaymentRepository) ListDetails(ctx context.Context, groupID string) ([]*PaymentDetail, error) {
	query := `
		SELECT id, payment_group_id, amount_cents, invoice_image_ref, retention_document_ref,
		       status, created_by, created_at
		FROM payment_details
		WHERE payment_group_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list payment details")
	}
	defer rows.Close()

	var details []*PaymentDetail
	for rows.Next() {
		d := &PaymentDetail{}
		if err := rows.Scan(&d.ID, &d.PaymentGroupID, &d.AmountCents, &d.InvoiceImageRef,
			&d.RetentionDocumentRef, &d.Status, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan payment detail")
		}
		details = append(details, d)
	}
	return details, nil
}
