package service

import (
	"context"
	"math"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// ProcurementService materializes approved quotation requests into purchase
// orders, one per distinct supplier in the final selection. Generation is
// idempotent: suppliers that already have an order for the quotation request
// are skipped, and re-invocation returns the full existing set.
type ProcurementService struct {
	quotations QuotationStore
	orders     PurchaseOrderStore
	rates      RatesClient
	audit      AuditSink
	log        *logger.Logger
}

func NewProcurementService(
	quotations QuotationStore,
	orders PurchaseOrderStore,
	rates RatesClient,
	audit AuditSink,
	log *logger.Logger,
) *ProcurementService {
	return &ProcurementService{
		quotations: quotations,
		orders:     orders,
		rates:      rates,
		audit:      audit,
		log:        log,
	}
}

// GenerateOptions tunes a generation call.
type GenerateOptions struct {
	// PaymentMethodOverride replaces the payment method recorded on the
	// selection for every generated order.
	PaymentMethodOverride *string
	// SupplierFilter restricts generation to the listed suppliers (partial
	// order splitting). Empty means all suppliers in the selection.
	SupplierFilter []string
}

// OrderFailure reports one supplier whose order could not be created.
type OrderFailure struct {
	SupplierID string
	Err        error
}

// GenerateResult is the per-order outcome of one generation call. Cross-order
// atomicity is intentionally not provided; partial success is reported.
type GenerateResult struct {
	Orders   []*repository.PurchaseOrder
	Failures []OrderFailure
}

// GenerateFromQuotation creates purchase orders for an approved quotation
// request. Totals are copied verbatim from the final selection lines, never
// recomputed, so later tax changes cannot drift the order.
func (s *ProcurementService) GenerateFromQuotation(ctx context.Context, qrID string, opts GenerateOptions, actorID string) (*GenerateResult, error) {
	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if qr.Status != workflow.StatusApproved {
		return nil, apperrors.Newf(apperrors.CodeNotApproved,
			"quotation request %s is %s, not APPROVED", qrID, qr.Status)
	}

	existing, err := s.orders.ListByQuotationRequest(ctx, qrID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, po := range existing {
		have[po.SupplierID] = true
	}

	fs, err := s.quotations.GetFinalSelection(ctx, qrID)
	if err != nil {
		return nil, err
	}

	wanted := supplierAllowSet(opts.SupplierFilter)
	groups := groupBySupplier(fs.Items)

	result := &GenerateResult{Orders: existing}
	for _, group := range groups {
		supplierID := group[0].SupplierID
		if wanted != nil && !wanted[supplierID] {
			continue
		}
		if have[supplierID] {
			continue
		}

		po, err := s.buildOrder(ctx, qrID, group, opts, actorID)
		if err != nil {
			result.Failures = append(result.Failures, OrderFailure{SupplierID: supplierID, Err: err})
			s.log.Error().Err(err).
				Str("quotation_request_id", qrID).
				Str("supplier_id", supplierID).
				Msg("failed to generate purchase order")
			continue
		}

		result.Orders = append(result.Orders, po)
		s.audit.Publish(ctx, client.AuditEvent{
			Action:   "order_generated",
			Entity:   workflow.EntityPurchaseOrder,
			EntityID: po.ID,
			ActorID:  actorID,
			NewValue: supplierID,
			Metadata: map[string]any{
				"quotation_request_id": qrID,
				"number":               po.Number,
				"total_amount_cents":   po.TotalAmountCents,
			},
		})
	}
	return result, nil
}

// CreateStandalone creates a purchase order with no parent quotation request.
func (s *ProcurementService) CreateStandalone(ctx context.Context, po *repository.PurchaseOrder) (*repository.PurchaseOrder, error) {
	if po.SupplierID == "" {
		return nil, apperrors.InvalidInput("supplier_id", "supplier is required")
	}
	if len(po.Lines) == 0 {
		return nil, apperrors.InvalidInput("lines", "a purchase order needs at least one line")
	}
	po.QuotationRequestID = nil

	var total, tax int64
	for _, line := range po.Lines {
		total += line.LineAmountCents
		if line.TaxAmountCents != nil {
			tax += *line.TaxAmountCents
		}
	}
	po.TotalAmountCents = total
	po.TaxAmountCents = tax

	if err := s.orders.CreateWithLines(ctx, po); err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, client.AuditEvent{
		Action:   "order_generated",
		Entity:   workflow.EntityPurchaseOrder,
		EntityID: po.ID,
		ActorID:  po.CreatedBy,
		NewValue: po.SupplierID,
		Metadata: map[string]any{"number": po.Number, "standalone": true},
	})
	return po, nil
}

// GetOrder returns one purchase order with lines.
func (s *ProcurementService) GetOrder(ctx context.Context, id string) (*repository.PurchaseOrder, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders returns all orders for a quotation request.
func (s *ProcurementService) ListOrders(ctx context.Context, qrID string) ([]*repository.PurchaseOrder, error) {
	return s.orders.ListByQuotationRequest(ctx, qrID)
}

// buildOrder assembles and persists one order from a supplier's selection
// items.
func (s *ProcurementService) buildOrder(ctx context.Context, qrID string, items []*repository.FinalSelectionItem, opts GenerateOptions, actorID string) (*repository.PurchaseOrder, error) {
	paymentMethod := items[0].PaymentMethod
	if opts.PaymentMethodOverride != nil {
		paymentMethod = *opts.PaymentMethodOverride
	}

	var total, tax int64
	lines := make([]*repository.PurchaseOrderLine, 0, len(items))
	for i, item := range items {
		lineTax := item.TaxAmountCents
		if lineTax == nil {
			// The selection froze no tax amount for this line; derive it
			// from the current general tax rate.
			derived, err := s.deriveTax(ctx, item.LineAmountCents)
			if err != nil {
				return nil, err
			}
			lineTax = &derived
		}
		total += item.LineAmountCents
		tax += *lineTax
		lines = append(lines, &repository.PurchaseOrderLine{
			LineNumber:      i + 1,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			LineAmountCents: item.LineAmountCents,
			TaxAmountCents:  lineTax,
		})
	}

	po := &repository.PurchaseOrder{
		QuotationRequestID: &qrID,
		SupplierID:         items[0].SupplierID,
		PaymentMethod:      paymentMethod,
		TotalAmountCents:   total,
		TaxAmountCents:     tax,
		CreatedBy:          actorID,
		Lines:              lines,
	}
	if err := s.orders.CreateWithLines(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// deriveTax extracts the tax portion of a tax-inclusive amount at the current
// general rate.
func (s *ProcurementService) deriveTax(ctx context.Context, amountCents int64) (int64, error) {
	rate, err := s.rates.GetGeneralTaxRate(ctx)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, nil
	}
	return int64(math.Round(float64(amountCents) * rate / (100 + rate))), nil
}

// groupBySupplier splits selection items into per-supplier groups, preserving
// item order within each group and first-seen supplier order across groups.
func groupBySupplier(items []*repository.FinalSelectionItem) [][]*repository.FinalSelectionItem {
	index := make(map[string]int)
	var groups [][]*repository.FinalSelectionItem
	for _, item := range items {
		i, ok := index[item.SupplierID]
		if !ok {
			i = len(groups)
			index[item.SupplierID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], item)
	}
	return groups
}

func supplierAllowSet(filter []string) map[string]bool {
	if len(filter) == 0 {
		return nil
	}
	set := make(map[string]bool, len(filter))
	for _, id := range filter {
		set[id] = true
	}
	return set
}
