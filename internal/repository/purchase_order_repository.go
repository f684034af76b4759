package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
)

// PurchaseOrderRepository handles generated and stand-alone purchase orders.
// Order numbers come from their own sequence, independent of any parent
// quotation request.
type PurchaseOrderRepository struct {
	db *database.DB
}

func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// CreateWithLines inserts an order and its lines in one transaction.
func (r *PurchaseOrderRepository) CreateWithLines(ctx context.Context, po *PurchaseOrder) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		headQuery := `
			INSERT INTO purchase_orders
			    (quotation_request_id, supplier_id, payment_method,
			     total_amount_cents, tax_amount_cents, created_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, number, created_at
		`
		err := tx.QueryRow(ctx, headQuery,
			po.QuotationRequestID, po.SupplierID, po.PaymentMethod,
			po.TotalAmountCents, po.TaxAmountCents, po.CreatedBy).
			Scan(&po.ID, &po.Number, &po.CreatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create purchase order")
		}

		lineQuery := `
			INSERT INTO purchase_order_lines
			    (purchase_order_id, line_number, description,
			     quantity, unit_price_cents, line_amount_cents, tax_amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`
		for _, line := range po.Lines {
			line.PurchaseOrderID = po.ID
			err := tx.QueryRow(ctx, lineQuery,
				po.ID, line.LineNumber, line.Description,
				line.Quantity, line.UnitPriceCents, line.LineAmountCents, line.TaxAmountCents).
				Scan(&line.ID, &line.CreatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create purchase order line")
			}
		}
		return nil
	})
}

// GetByID retrieves a purchase order with its lines.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	query := `
		SELECT id, number, quotation_request_id, supplier_id, payment_method,
		       total_amount_cents, tax_amount_cents, created_by, created_at
		FROM purchase_orders
		WHERE id = $1
	`
	po := &PurchaseOrder{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.Number, &po.QuotationRequestID, &po.SupplierID, &po.PaymentMethod,
		&po.TotalAmountCents, &po.TaxAmountCents, &po.CreatedBy, &po.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("purchase_order", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get purchase order")
	}

	lines, err := r.getLines(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	po.Lines = lines
	return po, nil
}

// ListByQuotationRequest returns all orders generated for a quotation
// request, oldest first. Lines are not loaded.
func (r *PurchaseOrderRepository) ListByQuotationRequest(ctx context.Context, qrID string) ([]*PurchaseOrder, error) {
	query := `
		SELECT id, number, quotation_request_id, supplier_id, payment_method,
		       total_amount_cents, tax_amount_cents, created_by, created_at
		FROM purchase_orders
		WHERE quotation_request_id = $1
		ORDER BY number ASC
	`
	rows, err := r.db.Query(ctx, query, qrID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list purchase orders")
	}
	defer rows.Close()

	var orders []*PurchaseOrder
	for rows.Next() {
		po := &PurchaseOrder{}
		if err := rows.Scan(&po.ID, &po.Number, &po.QuotationRequestID, &po.SupplierID,
			&po.PaymentMethod, &po.TotalAmountCents, &po.TaxAmountCents,
			&po.CreatedBy, &po.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan purchase order")
		}
		orders = append(orders, po)
	}
	return orders, nil
}

// CountByQuotationRequest returns how many orders exist for a quotation
// request. Used by the payment group manager as its precondition check.
func (r *PurchaseOrderRepository) CountByQuotationRequest(ctx context.Context, qrID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM purchase_orders WHERE quotation_request_id = $1`, qrID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to count purchase orders")
	}
	return count, nil
}

func (r *PurchaseOrderRepository) getLines(ctx context.Context, poID string) ([]*PurchaseOrderLine, error) {
	query := `
		SELECT id, purchase_order_id, line_number, description,
		       quantity, unit_price_cents, line_amount_cents, tax_amount_cents, created_at
		FROM purchase_order_lines
		WHERE purchase_order_id = $1
		ORDER BY line_number
	`
	rows, err := r.db.Query(ctx, query, poID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get purchase order lines")
	}
	defer rows.Close()

	var lines []*PurchaseOrderLine
	for rows.Next() {
		line := &PurchaseOrderLine{}
		if err := rows.Scan(&line.ID, &line.PurchaseOrderID, &line.LineNumber, &line.Description,
			&line.Quantity, &line.UnitPriceCents, &line.LineAmountCents,
			&line.TaxAmountCents, &line.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan purchase order line")
		}
		lines = append(lines, line)
	}
	return lines, nil
}
