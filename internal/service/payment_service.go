package service

import (
	"context"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
)

// PaymentService manages the single payment group per quotation request and
// its detail entries. It never opens a group before a purchase order exists.
type PaymentService struct {
	payments PaymentStore
	orders   PurchaseOrderStore
	audit    AuditSink
	log      *logger.Logger
}

func NewPaymentService(
	payments PaymentStore,
	orders PurchaseOrderStore,
	audit AuditSink,
	log *logger.Logger,
) *PaymentService {
	return &PaymentService{payments: payments, orders: orders, audit: audit, log: log}
}

// EnsurePaymentGroup opens the payment group for a quotation request, or
// returns the existing one. Safe to re-invoke.
func (s *PaymentService) EnsurePaymentGroup(ctx context.Context, qrID, actorID string) (*repository.PaymentGroup, error) {
	count, err := s.orders.CountByQuotationRequest(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperrors.Newf(apperrors.CodeConflict,
			"quotation request %s has no purchase order yet", qrID)
	}

	group, err := s.payments.EnsureGroup(ctx, qrID)
	if err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, client.AuditEvent{
		Action:   "payment_group_opened",
		Entity:   "PAYMENT_GROUP",
		EntityID: group.ID,
		ActorID:  actorID,
		Metadata: map[string]any{"quotation_request_id": qrID},
	})
	return group, nil
}

// AddPaymentDetail appends one detail entry. Reconciliation against purchase
// order totals is a reporting concern, not enforced here.
func (s *PaymentService) AddPaymentDetail(ctx context.Context, d *repository.PaymentDetail) error {
	if d.PaymentGroupID == "" {
		return apperrors.InvalidInput("payment_group_id", "payment group is required")
	}
	if d.AmountCents <= 0 {
		return apperrors.InvalidInput("amount_cents", "amount must be positive")
	}
	if err := s.payments.AddDetail(ctx, d); err != nil {
		return err
	}
	s.log.Info().
		Str("payment_group_id", d.PaymentGroupID).
		Int64("amount_cents", d.AmountCents).
		Msg("payment detail recorded")
	return nil
}

// GetGroup returns the group and its details for a quotation request.
func (s *PaymentService) GetGroup(ctx context.Context, qrID string) (*repository.PaymentGroup, []*repository.PaymentDetail, error) {
	group, err := s.payments.GetGroupByQuotationRequest(ctx, qrID)
	if err != nil {
		return nil, nil, err
	}
	details, err := s.payments.ListDetails(ctx, group.ID)
	if err != nil {
		return nil, nil, err
	}
	return group, details, nil
}
