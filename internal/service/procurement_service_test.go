package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

func int64Ptr(v int64) *int64 { return &v }

func approvedQuotations(selection *repository.FinalSelection) *mockQuotationStore {
	return &mockQuotationStore{
		GetByIDFunc: func(ctx context.Context, id string) (*repository.QuotationRequest, error) {
			return &repository.QuotationRequest{ID: id, Status: workflow.StatusApproved, Version: 7}, nil
		},
		GetFinalSelectionFunc: func(ctx context.Context, qrID string) (*repository.FinalSelection, error) {
			return selection, nil
		},
	}
}

func twoSupplierSelection() *repository.FinalSelection {
	return &repository.FinalSelection{
		ID:                 "fs-1",
		QuotationRequestID: "qr-1",
		TotalAmountCents:   90000,
		Items: []*repository.FinalSelectionItem{
			{SupplierID: "sup-a", PaymentMethod: "CREDIT", Description: "steel", Quantity: 2, UnitPriceCents: 20000, LineAmountCents: 40000, TaxAmountCents: int64Ptr(6102)},
			{SupplierID: "sup-b", PaymentMethod: "CASH", Description: "paint", Quantity: 5, UnitPriceCents: 6000, LineAmountCents: 30000, TaxAmountCents: int64Ptr(4576)},
			{SupplierID: "sup-a", PaymentMethod: "CREDIT", Description: "bolts", Quantity: 100, UnitPriceCents: 200, LineAmountCents: 20000, TaxAmountCents: int64Ptr(3051)},
		},
	}
}

func TestGenerateSplitsOrdersPerSupplier(t *testing.T) {
	orders := &mockOrderStore{}
	audit := &mockAudit{}
	svc := NewProcurementService(approvedQuotations(twoSupplierSelection()), orders, &mockRates{rate: 18}, audit, logger.Nop())

	result, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	require.Len(t, result.Orders, 2)

	// sup-a groups two selection lines; amounts are copied verbatim.
	first := result.Orders[0]
	require.Equal(t, "sup-a", first.SupplierID)
	require.Equal(t, int64(60000), first.TotalAmountCents)
	require.Equal(t, int64(9153), first.TaxAmountCents)
	require.Len(t, first.Lines, 2)
	require.Equal(t, "steel", first.Lines[0].Description)

	second := result.Orders[1]
	require.Equal(t, "sup-b", second.SupplierID)
	require.Equal(t, int64(30000), second.TotalAmountCents)
}

func TestGenerateIsIdempotentPerSupplier(t *testing.T) {
	orders := &mockOrderStore{}
	svc := NewProcurementService(approvedQuotations(twoSupplierSelection()), orders, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	_, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.NoError(t, err)
	require.Len(t, orders.created, 2)

	// Re-invocation creates nothing new and still reports both orders.
	result, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.NoError(t, err)
	require.Len(t, orders.created, 2)
	require.Len(t, result.Orders, 2)
}

func TestGenerateHonorsSupplierFilter(t *testing.T) {
	orders := &mockOrderStore{}
	svc := NewProcurementService(approvedQuotations(twoSupplierSelection()), orders, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	result, err := svc.GenerateFromQuotation(context.Background(), "qr-1",
		GenerateOptions{SupplierFilter: []string{"sup-b"}}, "system")
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	require.Equal(t, "sup-b", result.Orders[0].SupplierID)
}

func TestGenerateRequiresApprovedStatus(t *testing.T) {
	quotations := &mockQuotationStore{
		GetByIDFunc: func(ctx context.Context, id string) (*repository.QuotationRequest, error) {
			return &repository.QuotationRequest{ID: id, Status: workflow.SignedLevel(2), Version: 4}, nil
		},
	}
	svc := NewProcurementService(quotations, &mockOrderStore{}, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	_, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.Equal(t, apperrors.CodeNotApproved, apperrors.CodeOf(err))
}

func TestGenerateRequiresFinalSelection(t *testing.T) {
	quotations := &mockQuotationStore{
		GetByIDFunc: func(ctx context.Context, id string) (*repository.QuotationRequest, error) {
			return &repository.QuotationRequest{ID: id, Status: workflow.StatusApproved, Version: 4}, nil
		},
	}
	svc := NewProcurementService(quotations, &mockOrderStore{}, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	_, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.Equal(t, apperrors.CodeNoFinalSelection, apperrors.CodeOf(err))
}

func TestGenerateDerivesTaxWhenSelectionFrozeNone(t *testing.T) {
	selection := &repository.FinalSelection{
		ID:                 "fs-1",
		QuotationRequestID: "qr-1",
		TotalAmountCents:   11800,
		Items: []*repository.FinalSelectionItem{
			{SupplierID: "sup-a", PaymentMethod: "CASH", Description: "gravel", Quantity: 1, UnitPriceCents: 11800, LineAmountCents: 11800},
		},
	}
	orders := &mockOrderStore{}
	svc := NewProcurementService(approvedQuotations(selection), orders, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	result, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	// 11800 * 18 / 118 = 1800: the tax share of a tax-inclusive amount.
	require.Equal(t, int64(1800), result.Orders[0].TaxAmountCents)
}

func TestGenerateCollectsPerSupplierFailures(t *testing.T) {
	orders := &mockOrderStore{}
	orders.CreateWithLinesFunc = func(ctx context.Context, po *repository.PurchaseOrder) error {
		if po.SupplierID == "sup-a" {
			return apperrors.New(apperrors.CodeInternal, "insert failed")
		}
		po.ID = "po-ok"
		orders.created = append(orders.created, po)
		return nil
	}
	svc := NewProcurementService(approvedQuotations(twoSupplierSelection()), orders, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	result, err := svc.GenerateFromQuotation(context.Background(), "qr-1", GenerateOptions{}, "system")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	require.Equal(t, "sup-a", result.Failures[0].SupplierID)
	require.Len(t, result.Orders, 1)
}

func TestCreateStandaloneSumsTotals(t *testing.T) {
	orders := &mockOrderStore{}
	svc := NewProcurementService(&mockQuotationStore{}, orders, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	po, err := svc.CreateStandalone(context.Background(), &repository.PurchaseOrder{
		SupplierID:    "sup-x",
		PaymentMethod: "CASH",
		CreatedBy:     "alice",
		Lines: []*repository.PurchaseOrderLine{
			{LineNumber: 1, Description: "ink", Quantity: 3, UnitPriceCents: 500, LineAmountCents: 1500, TaxAmountCents: int64Ptr(229)},
			{LineNumber: 2, Description: "paper", Quantity: 1, UnitPriceCents: 800, LineAmountCents: 800},
		},
	})
	require.NoError(t, err)
	require.Nil(t, po.QuotationRequestID)
	require.Equal(t, int64(2300), po.TotalAmountCents)
	require.Equal(t, int64(229), po.TaxAmountCents)
}

func TestCreateStandaloneValidates(t *testing.T) {
	svc := NewProcurementService(&mockQuotationStore{}, &mockOrderStore{}, &mockRates{rate: 18}, &mockAudit{}, logger.Nop())

	_, err := svc.CreateStandalone(context.Background(), &repository.PurchaseOrder{PaymentMethod: "CASH"})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = svc.CreateStandalone(context.Background(), &repository.PurchaseOrder{SupplierID: "sup-x"})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}
