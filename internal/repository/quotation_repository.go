package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// QuotationRepository handles quotation requests, supplier invitations,
// supplier quotations and final selections.
//
// Status transitions use optimistic concurrency: every update is guarded by
// the version read by the caller, and a missed guard surfaces as
// ConcurrentModification so the caller can re-read and retry.
type QuotationRepository struct {
	db *database.DB
}

func NewQuotationRepository(db *database.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// ── Quotation requests ───────────────────────────────────────────────────────

// Create inserts a quotation request in PENDING with version 1.
func (r *QuotationRepository) Create(ctx context.Context, qr *QuotationRequest) error {
	query := `
		INSERT INTO quotation_requests (requirement_id, status, created_by)
		VALUES ($1, $2::document_status, $3)
		RETURNING id, status, version, created_at, updated_at
	`
	var rawStatus string
	err := r.db.QueryRow(ctx, query, qr.RequirementID, workflow.StatusPending, qr.CreatedBy).
		Scan(&qr.ID, &rawStatus, &qr.Version, &qr.CreatedAt, &qr.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create quotation request")
	}
	qr.Status, err = workflow.ParseStatus(rawStatus)
	return err
}

// GetByID retrieves a quotation request.
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*QuotationRequest, error) {
	query := `
		SELECT id, requirement_id, status, progress, amount_cents, version,
		       rejected_by, rejected_reason, created_by, created_at, updated_at
		FROM quotation_requests
		WHERE id = $1
	`
	qr, err := r.scanQuotationRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("quotation_request", id)
	}
	return qr, err
}

// List returns quotation requests newest first, optionally filtered to one
// status. A nil status returns everything.
func (r *QuotationRepository) List(ctx context.Context, status *workflow.Status, limit, offset int) ([]*QuotationRequest, error) {
	query := `
		SELECT id, requirement_id, status, progress, amount_cents, version,
		       rejected_by, rejected_reason, created_by, created_at, updated_at
		FROM quotation_requests
		WHERE $1::document_status IS NULL OR status = $1::document_status
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list quotation requests")
	}
	defer rows.Close()
	return r.collectQuotationRequests(rows)
}

// ListInSigning returns quotation requests currently inside the signature
// chain, oldest first, for pending-approval views.
func (r *QuotationRepository) ListInSigning(ctx context.Context, limit, offset int) ([]*QuotationRequest, error) {
	query := `
		SELECT id, requirement_id, status, progress, amount_cents, version,
		       rejected_by, rejected_reason, created_by, created_at, updated_at
		FROM quotation_requests
		WHERE status LIKE 'SIGNED\_%'
		ORDER BY updated_at ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list signing quotation requests")
	}
	defer rows.Close()
	return r.collectQuotationRequests(rows)
}

func (r *QuotationRepository) collectQuotationRequests(rows pgx.Rows) ([]*QuotationRequest, error) {
	var qrs []*QuotationRequest
	for rows.Next() {
		qr, err := r.scanQuotationRequest(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan quotation request")
		}
		qrs = append(qrs, qr)
	}
	return qrs, nil
}

// TransitionStatus moves a quotation request to a new status under the
// caller's version guard.
func (r *QuotationRepository) TransitionStatus(ctx context.Context, id string, expectedVersion int, to workflow.Status) error {
	query := `
		UPDATE quotation_requests
		SET status = $3::document_status,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING id
	`
	var returnedID string
	err := r.db.QueryRow(ctx, query, id, expectedVersion, to).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Newf(apperrors.CodeConcurrentModification,
			"quotation request %s changed concurrently", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to transition quotation request")
	}
	return nil
}

// Reject moves a quotation request to REJECTED, recording actor and reason,
// in a single guarded statement.
func (r *QuotationRepository) Reject(ctx context.Context, id string, expectedVersion int, rejectedBy, reason string) error {
	query := `
		UPDATE quotation_requests
		SET status = $3::document_status,
		    rejected_by = $4,
		    rejected_reason = $5,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING id
	`
	var returnedID string
	err := r.db.QueryRow(ctx, query, id, expectedVersion, workflow.StatusRejected, rejectedBy, reason).
		Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Newf(apperrors.CodeConcurrentModification,
			"quotation request %s changed concurrently", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to reject quotation request")
	}
	return nil
}

// ── Supplier invitations ─────────────────────────────────────────────────────

// InviteSuppliers inserts invitation rows and activates the quotation request
// in one transaction.
func (r *QuotationRepository) InviteSuppliers(ctx context.Context, qrID string, expectedVersion int, invites []*QuotationSupplier) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		insertQuery := `
			INSERT INTO quotation_suppliers (quotation_request_id, supplier_id, status, deadline)
			VALUES ($1, $2, $3::supplier_status, $4)
			RETURNING id, created_at, updated_at
		`
		for _, inv := range invites {
			inv.QuotationRequestID = qrID
			if inv.Status == "" {
				inv.Status = workflow.SupplierPending
			}
			err := tx.QueryRow(ctx, insertQuery, qrID, inv.SupplierID, inv.Status, inv.Deadline).
				Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create supplier invitation")
			}
		}

		statusQuery := `
			UPDATE quotation_requests
			SET status = $3::document_status, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
			RETURNING id
		`
		var returnedID string
		err := tx.QueryRow(ctx, statusQuery, qrID, expectedVersion, workflow.StatusActive).Scan(&returnedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.Newf(apperrors.CodeConcurrentModification,
				"quotation request %s changed concurrently", qrID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to activate quotation request")
		}
		return nil
	})
}

// ListSuppliers returns all invitations for a quotation request.
func (r *QuotationRepository) ListSuppliers(ctx context.Context, qrID string) ([]*QuotationSupplier, error) {
	query := `
		SELECT id, quotation_request_id, supplier_id, status, deadline, created_at, updated_at
		FROM quotation_suppliers
		WHERE quotation_request_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, qrID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list supplier invitations")
	}
	defer rows.Close()

	var invites []*QuotationSupplier
	for rows.Next() {
		inv := &QuotationSupplier{}
		if err := rows.Scan(&inv.ID, &inv.QuotationRequestID, &inv.SupplierID,
			&inv.Status, &inv.Deadline, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan supplier invitation")
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

// GetSupplierInvitation returns one invitation row.
func (r *QuotationRepository) GetSupplierInvitation(ctx context.Context, id string) (*QuotationSupplier, error) {
	query := `
		SELECT id, quotation_request_id, supplier_id, status, deadline, created_at, updated_at
		FROM quotation_suppliers
		WHERE id = $1
	`
	inv := &QuotationSupplier{}
	err := r.db.QueryRow(ctx, query, id).Scan(&inv.ID, &inv.QuotationRequestID,
		&inv.SupplierID, &inv.Status, &inv.Deadline, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("quotation_supplier", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get supplier invitation")
	}
	return inv, nil
}

// UpdateSupplierStatus sets the status of one invitation.
func (r *QuotationRepository) UpdateSupplierStatus(ctx context.Context, id string, status workflow.SupplierStatus) error {
	query := `
		UPDATE quotation_suppliers
		SET status = $2::supplier_status, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`
	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("quotation_supplier", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update supplier invitation")
	}
	return nil
}

// ── Supplier quotations ──────────────────────────────────────────────────────

// CreateSupplierQuotation stores a supplier's priced response and marks the
// invitation RESPONDED in one transaction.
func (r *QuotationRepository) CreateSupplierQuotation(ctx context.Context, sq *SupplierQuotation) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		headQuery := `
			INSERT INTO supplier_quotations
			    (quotation_supplier_id, payment_method, tax_included, quotation_file_ref)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		err := tx.QueryRow(ctx, headQuery,
			sq.QuotationSupplierID, sq.PaymentMethod, sq.TaxIncluded, sq.QuotationFileRef).
			Scan(&sq.ID, &sq.CreatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create supplier quotation")
		}

		lineQuery := `
			INSERT INTO supplier_quotation_lines
			    (supplier_quotation_id, line_number, item_code, description,
			     quantity, unit_price_cents, line_amount_cents, tax_amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		for _, line := range sq.Lines {
			line.SupplierQuotationID = sq.ID
			err := tx.QueryRow(ctx, lineQuery,
				sq.ID, line.LineNumber, line.ItemCode, line.Description,
				line.Quantity, line.UnitPriceCents, line.LineAmountCents, line.TaxAmountCents).
				Scan(&line.ID)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create quotation line")
			}
		}

		respondQuery := `
			UPDATE quotation_suppliers
			SET status = $2::supplier_status, updated_at = NOW()
			WHERE id = $1
			RETURNING id
		`
		var returnedID string
		err = tx.QueryRow(ctx, respondQuery, sq.QuotationSupplierID, workflow.SupplierResponded).
			Scan(&returnedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("quotation_supplier", sq.QuotationSupplierID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to mark invitation responded")
		}
		return nil
	})
}

// GetSupplierQuotation retrieves a supplier quotation with its lines.
func (r *QuotationRepository) GetSupplierQuotation(ctx context.Context, id string) (*SupplierQuotation, error) {
	query := `
		SELECT id, quotation_supplier_id, payment_method, tax_included, quotation_file_ref, created_at
		FROM supplier_quotations
		WHERE id = $1
	`
	sq := &SupplierQuotation{}
	err := r.db.QueryRow(ctx, query, id).Scan(&sq.ID, &sq.QuotationSupplierID,
		&sq.PaymentMethod, &sq.TaxIncluded, &sq.QuotationFileRef, &sq.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("supplier_quotation", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get supplier quotation")
	}

	lineQuery := `
		SELECT id, supplier_quotation_id, line_number, item_code, description,
		       quantity, unit_price_cents, line_amount_cents, tax_amount_cents
		FROM supplier_quotation_lines
		WHERE supplier_quotation_id = $1
		ORDER BY line_number
	`
	rows, err := r.db.Query(ctx, lineQuery, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get quotation lines")
	}
	defer rows.Close()

	for rows.Next() {
		line := &SupplierQuotationLine{}
		if err := rows.Scan(&line.ID, &line.SupplierQuotationID, &line.LineNumber,
			&line.ItemCode, &line.Description, &line.Quantity,
			&line.UnitPriceCents, &line.LineAmountCents, &line.TaxAmountCents); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan quotation line")
		}
		sq.Lines = append(sq.Lines, line)
	}
	return sq, nil
}

// ── Final selection ──────────────────────────────────────────────────────────

// CreateFinalSelection stores the chosen quotation lines and freezes the
// derived amount on the quotation request, all in one transaction. The unique
// FK guarantees at most one selection per quotation request.
func (r *QuotationRepository) CreateFinalSelection(ctx context.Context, fs *FinalSelection) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		headQuery := `
			INSERT INTO final_selections (quotation_request_id, total_amount_cents, selected_by)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`
		err := tx.QueryRow(ctx, headQuery, fs.QuotationRequestID, fs.TotalAmountCents, fs.SelectedBy).
			Scan(&fs.ID, &fs.CreatedAt)
		if isUniqueViolation(err) {
			return apperrors.Newf(apperrors.CodeConflict,
				"quotation request %s already has a final selection", fs.QuotationRequestID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create final selection")
		}

		itemQuery := `
			INSERT INTO final_selection_items
			    (final_selection_id, supplier_quotation_id, supplier_id, payment_method,
			     description, quantity, unit_price_cents, line_amount_cents, tax_amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		for _, item := range fs.Items {
			item.FinalSelectionID = fs.ID
			err := tx.QueryRow(ctx, itemQuery,
				fs.ID, item.SupplierQuotationID, item.SupplierID, item.PaymentMethod,
				item.Description, item.Quantity, item.UnitPriceCents,
				item.LineAmountCents, item.TaxAmountCents).
				Scan(&item.ID)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create selection item")
			}
		}

		amountQuery := `
			UPDATE quotation_requests
			SET amount_cents = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id
		`
		var returnedID string
		err = tx.QueryRow(ctx, amountQuery, fs.QuotationRequestID, fs.TotalAmountCents).Scan(&returnedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("quotation_request", fs.QuotationRequestID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to set quotation amount")
		}
		return nil
	})
}

// GetFinalSelection returns the selection and its items for a quotation
// request, or NoFinalSelection when none exists.
func (r *QuotationRepository) GetFinalSelection(ctx context.Context, qrID string) (*FinalSelection, error) {
	query := `
		SELECT id, quotation_request_id, total_amount_cents, selected_by, created_at
		FROM final_selections
		WHERE quotation_request_id = $1
	`
	fs := &FinalSelection{}
	err := r.db.QueryRow(ctx, query, qrID).
		Scan(&fs.ID, &fs.QuotationRequestID, &fs.TotalAmountCents, &fs.SelectedBy, &fs.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.CodeNoFinalSelection,
			"quotation request %s has no final selection", qrID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get final selection")
	}

	itemQuery := `
		SELECT id, final_selection_id, supplier_quotation_id, supplier_id, payment_method,
		       description, quantity, unit_price_cents, line_amount_cents, tax_amount_cents
		FROM final_selection_items
		WHERE final_selection_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, itemQuery, fs.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get selection items")
	}
	defer rows.Close()

	for rows.Next() {
		item := &FinalSelectionItem{}
		if err := rows.Scan(&item.ID, &item.FinalSelectionID, &item.SupplierQuotationID,
			&item.SupplierID, &item.PaymentMethod, &item.Description, &item.Quantity,
			&item.UnitPriceCents, &item.LineAmountCents, &item.TaxAmountCents); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan selection item")
		}
		fs.Items = append(fs.Items, item)
	}
	return fs, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *QuotationRepository) scanQuotationRequest(row rowScanner) (*QuotationRequest, error) {
	qr := &QuotationRequest{}
	var rawStatus string
	err := row.Scan(
		&qr.ID,
		&qr.RequirementID,
		&rawStatus,
		&qr.Progress,
		&qr.AmountCents,
		&qr.Version,
		&qr.RejectedBy,
		&qr.RejectedReason,
		&qr.CreatedBy,
		&qr.CreatedAt,
		&qr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	qr.Status, err = workflow.ParseStatus(rawStatus)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to parse document status")
	}
	return qr, nil
}
