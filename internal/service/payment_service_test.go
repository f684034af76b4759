package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
)

func TestEnsurePaymentGroupRequiresAnOrder(t *testing.T) {
	orders := &mockOrderStore{}
	svc := NewPaymentService(&mockPaymentStore{}, orders, &mockAudit{}, logger.Nop())

	_, err := svc.EnsurePaymentGroup(context.Background(), "qr-1", "alice")
	require.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestEnsurePaymentGroupIsIdempotent(t *testing.T) {
	orders := &mockOrderStore{
		CountByQuotationRequestFunc: func(ctx context.Context, qrID string) (int, error) { return 2, nil },
	}
	calls := 0
	payments := &mockPaymentStore{
		EnsureGroupFunc: func(ctx context.Context, qrID string) (*repository.PaymentGroup, error) {
			calls++
			return &repository.PaymentGroup{ID: "pg-1", QuotationRequestID: qrID}, nil
		},
	}
	svc := NewPaymentService(payments, orders, &mockAudit{}, logger.Nop())

	first, err := svc.EnsurePaymentGroup(context.Background(), "qr-1", "alice")
	require.NoError(t, err)
	second, err := svc.EnsurePaymentGroup(context.Background(), "qr-1", "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, calls)
}

func TestAddPaymentDetailValidates(t *testing.T) {
	svc := NewPaymentService(&mockPaymentStore{}, &mockOrderStore{}, &mockAudit{}, logger.Nop())

	err := svc.AddPaymentDetail(context.Background(), &repository.PaymentDetail{AmountCents: 100})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	err = svc.AddPaymentDetail(context.Background(), &repository.PaymentDetail{PaymentGroupID: "pg-1", AmountCents: 0})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestAddPaymentDetailAppends(t *testing.T) {
	var added *repository.PaymentDetail
	payments := &mockPaymentStore{
		AddDetailFunc: func(ctx context.Context, d *repository.PaymentDetail) error {
			d.ID = "pd-1"
			added = d
			return nil
		},
	}
	svc := NewPaymentService(payments, &mockOrderStore{}, &mockAudit{}, logger.Nop())

	err := svc.AddPaymentDetail(context.Background(), &repository.PaymentDetail{
		PaymentGroupID: "pg-1",
		AmountCents:    50000,
		CreatedBy:      "alice",
	})
	require.NoError(t, err)
	require.NotNil(t, added)
	require.Equal(t, int64(50000), added.AmountCents)
}

func TestGetGroupReturnsDetails(t *testing.T) {
	payments := &mockPaymentStore{
		ListDetailsFunc: func(ctx context.Context, groupID string) ([]*repository.PaymentDetail, error) {
			return []*repository.PaymentDetail{{ID: "pd-1", PaymentGroupID: groupID, AmountCents: 100}}, nil
		},
	}
	svc := NewPaymentService(payments, &mockOrderStore{}, &mockAudit{}, logger.Nop())

	group, details, err := svc.GetGroup(context.Background(), "qr-1")
	require.NoError(t, err)
	require.Equal(t, "pg-1", group.ID)
	require.Len(t, details, 1)
}
