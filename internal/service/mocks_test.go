package service

import (
	"context"
	"fmt"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// Func-field mocks: each method delegates to the corresponding field when
// set and otherwise returns a benign default.

type mockQuotationStore struct {
	CreateFunc                  func(ctx context.Context, qr *repository.QuotationRequest) error
	GetByIDFunc                 func(ctx context.Context, id string) (*repository.QuotationRequest, error)
	ListFunc                    func(ctx context.Context, status *workflow.Status, limit, offset int) ([]*repository.QuotationRequest, error)
	ListInSigningFunc           func(ctx context.Context, limit, offset int) ([]*repository.QuotationRequest, error)
	TransitionStatusFunc        func(ctx context.Context, id string, expectedVersion int, to workflow.Status) error
	RejectFunc                  func(ctx context.Context, id string, expectedVersion int, rejectedBy, reason string) error
	InviteSuppliersFunc         func(ctx context.Context, qrID string, expectedVersion int, invites []*repository.QuotationSupplier) error
	ListSuppliersFunc           func(ctx context.Context, qrID string) ([]*repository.QuotationSupplier, error)
	GetSupplierInvitationFunc   func(ctx context.Context, id string) (*repository.QuotationSupplier, error)
	UpdateSupplierStatusFunc    func(ctx context.Context, id string, status workflow.SupplierStatus) error
	CreateSupplierQuotationFunc func(ctx context.Context, sq *repository.SupplierQuotation) error
	GetSupplierQuotationFunc    func(ctx context.Context, id string) (*repository.SupplierQuotation, error)
	CreateFinalSelectionFunc    func(ctx context.Context, fs *repository.FinalSelection) error
	GetFinalSelectionFunc       func(ctx context.Context, qrID string) (*repository.FinalSelection, error)
}

func (m *mockQuotationStore) Create(ctx context.Context, qr *repository.QuotationRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, qr)
	}
	qr.ID = "qr-1"
	qr.Status = workflow.StatusPending
	qr.Version = 1
	return nil
}

func (m *mockQuotationStore) GetByID(ctx context.Context, id string) (*repository.QuotationRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &repository.QuotationRequest{ID: id, Status: workflow.StatusPending, Version: 1}, nil
}

func (m *mockQuotationStore) List(ctx context.Context, status *workflow.Status, limit, offset int) ([]*repository.QuotationRequest, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit, offset)
	}
	return nil, nil
}

func (m *mockQuotationStore) ListInSigning(ctx context.Context, limit, offset int) ([]*repository.QuotationRequest, error) {
	if m.ListInSigningFunc != nil {
		return m.ListInSigningFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockQuotationStore) TransitionStatus(ctx context.Context, id string, expectedVersion int, to workflow.Status) error {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, id, expectedVersion, to)
	}
	return nil
}

func (m *mockQuotationStore) Reject(ctx context.Context, id string, expectedVersion int, rejectedBy, reason string) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, expectedVersion, rejectedBy, reason)
	}
	return nil
}

func (m *mockQuotationStore) InviteSuppliers(ctx context.Context, qrID string, expectedVersion int, invites []*repository.QuotationSupplier) error {
	if m.InviteSuppliersFunc != nil {
		return m.InviteSuppliersFunc(ctx, qrID, expectedVersion, invites)
	}
	return nil
}

func (m *mockQuotationStore) ListSuppliers(ctx context.Context, qrID string) ([]*repository.QuotationSupplier, error) {
	if m.ListSuppliersFunc != nil {
		return m.ListSuppliersFunc(ctx, qrID)
	}
	return nil, nil
}

func (m *mockQuotationStore) GetSupplierInvitation(ctx context.Context, id string) (*repository.QuotationSupplier, error) {
	if m.GetSupplierInvitationFunc != nil {
		return m.GetSupplierInvitationFunc(ctx, id)
	}
	return &repository.QuotationSupplier{ID: id, QuotationRequestID: "qr-1", Status: workflow.SupplierPending}, nil
}

func (m *mockQuotationStore) UpdateSupplierStatus(ctx context.Context, id string, status workflow.SupplierStatus) error {
	if m.UpdateSupplierStatusFunc != nil {
		return m.UpdateSupplierStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockQuotationStore) CreateSupplierQuotation(ctx context.Context, sq *repository.SupplierQuotation) error {
	if m.CreateSupplierQuotationFunc != nil {
		return m.CreateSupplierQuotationFunc(ctx, sq)
	}
	sq.ID = "sq-1"
	return nil
}

func (m *mockQuotationStore) GetSupplierQuotation(ctx context.Context, id string) (*repository.SupplierQuotation, error) {
	if m.GetSupplierQuotationFunc != nil {
		return m.GetSupplierQuotationFunc(ctx, id)
	}
	return &repository.SupplierQuotation{ID: id}, nil
}

func (m *mockQuotationStore) CreateFinalSelection(ctx context.Context, fs *repository.FinalSelection) error {
	if m.CreateFinalSelectionFunc != nil {
		return m.CreateFinalSelectionFunc(ctx, fs)
	}
	fs.ID = "fs-1"
	return nil
}

func (m *mockQuotationStore) GetFinalSelection(ctx context.Context, qrID string) (*repository.FinalSelection, error) {
	if m.GetFinalSelectionFunc != nil {
		return m.GetFinalSelectionFunc(ctx, qrID)
	}
	return nil, apperrors.Newf(apperrors.CodeNoFinalSelection,
		"quotation request %s has no final selection", qrID)
}

type mockConfigStore struct {
	ListActiveTemplatesFunc     func(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error)
	ListActiveEntityConfigsFunc func(ctx context.Context, entityType, entityID string) ([]*repository.DocumentApprovalConfig, error)
	GetSettingsFunc             func(ctx context.Context) (*repository.GeneralSettings, error)
}

func (m *mockConfigStore) ListActiveTemplates(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error) {
	if m.ListActiveTemplatesFunc != nil {
		return m.ListActiveTemplatesFunc(ctx, entityType)
	}
	return nil, nil
}

func (m *mockConfigStore) ListActiveEntityConfigs(ctx context.Context, entityType, entityID string) ([]*repository.DocumentApprovalConfig, error) {
	if m.ListActiveEntityConfigsFunc != nil {
		return m.ListActiveEntityConfigsFunc(ctx, entityType, entityID)
	}
	return nil, nil
}

func (m *mockConfigStore) GetSettings(ctx context.Context) (*repository.GeneralSettings, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(ctx)
	}
	return &repository.GeneralSettings{LowAmountThresholdCents: 10000, GeneralTaxRate: 18}, nil
}

type mockSignatureStore struct {
	CaptureSnapshotFunc func(ctx context.Context, snap *repository.ApprovalSnapshot, expectedVersion int, entryStatus workflow.Status) error
	GetSnapshotFunc     func(ctx context.Context, entityType, entityID string) (*repository.ApprovalSnapshot, error)
	SignAndAdvanceFunc  func(ctx context.Context, sig *repository.Signature, expectedVersion int, next workflow.Status) error
	ListSignaturesFunc  func(ctx context.Context, entityType, entityID string) ([]*repository.Signature, error)
}

func (m *mockSignatureStore) CaptureSnapshot(ctx context.Context, snap *repository.ApprovalSnapshot, expectedVersion int, entryStatus workflow.Status) error {
	if m.CaptureSnapshotFunc != nil {
		return m.CaptureSnapshotFunc(ctx, snap, expectedVersion, entryStatus)
	}
	snap.ID = "snap-1"
	return nil
}

func (m *mockSignatureStore) GetSnapshot(ctx context.Context, entityType, entityID string) (*repository.ApprovalSnapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(ctx, entityType, entityID)
	}
	return nil, nil
}

func (m *mockSignatureStore) SignAndAdvance(ctx context.Context, sig *repository.Signature, expectedVersion int, next workflow.Status) error {
	if m.SignAndAdvanceFunc != nil {
		return m.SignAndAdvanceFunc(ctx, sig, expectedVersion, next)
	}
	return nil
}

func (m *mockSignatureStore) ListSignatures(ctx context.Context, entityType, entityID string) ([]*repository.Signature, error) {
	if m.ListSignaturesFunc != nil {
		return m.ListSignaturesFunc(ctx, entityType, entityID)
	}
	return nil, nil
}

type mockOrderStore struct {
	CreateWithLinesFunc         func(ctx context.Context, po *repository.PurchaseOrder) error
	GetByIDFunc                 func(ctx context.Context, id string) (*repository.PurchaseOrder, error)
	ListByQuotationRequestFunc  func(ctx context.Context, qrID string) ([]*repository.PurchaseOrder, error)
	CountByQuotationRequestFunc func(ctx context.Context, qrID string) (int, error)

	created []*repository.PurchaseOrder
}

func (m *mockOrderStore) CreateWithLines(ctx context.Context, po *repository.PurchaseOrder) error {
	if m.CreateWithLinesFunc != nil {
		return m.CreateWithLinesFunc(ctx, po)
	}
	po.ID = fmt.Sprintf("po-%d", len(m.created)+1)
	po.Number = int64(len(m.created) + 1)
	m.created = append(m.created, po)
	return nil
}

func (m *mockOrderStore) GetByID(ctx context.Context, id string) (*repository.PurchaseOrder, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &repository.PurchaseOrder{ID: id}, nil
}

func (m *mockOrderStore) ListByQuotationRequest(ctx context.Context, qrID string) ([]*repository.PurchaseOrder, error) {
	if m.ListByQuotationRequestFunc != nil {
		return m.ListByQuotationRequestFunc(ctx, qrID)
	}
	return m.created, nil
}

func (m *mockOrderStore) CountByQuotationRequest(ctx context.Context, qrID string) (int, error) {
	if m.CountByQuotationRequestFunc != nil {
		return m.CountByQuotationRequestFunc(ctx, qrID)
	}
	return len(m.created), nil
}

type mockPaymentStore struct {
	EnsureGroupFunc                func(ctx context.Context, qrID string) (*repository.PaymentGroup, error)
	GetGroupByQuotationRequestFunc func(ctx context.Context, qrID string) (*repository.PaymentGroup, error)
	AddDetailFunc                  func(ctx context.Context, d *repository.PaymentDetail) error
	ListDetailsFunc                func(ctx context.Context, groupID string) ([]*repository.PaymentDetail, error)
}

func (m *mockPaymentStore) EnsureGroup(ctx context.Context, qrID string) (*repository.PaymentGroup, error) {
	if m.EnsureGroupFunc != nil {
		return m.EnsureGroupFunc(ctx, qrID)
	}
	return &repository.PaymentGroup{ID: "pg-1", QuotationRequestID: qrID}, nil
}

func (m *mockPaymentStore) GetGroupByQuotationRequest(ctx context.Context, qrID string) (*repository.PaymentGroup, error) {
	if m.GetGroupByQuotationRequestFunc != nil {
		return m.GetGroupByQuotationRequestFunc(ctx, qrID)
	}
	return &repository.PaymentGroup{ID: "pg-1", QuotationRequestID: qrID}, nil
}

func (m *mockPaymentStore) AddDetail(ctx context.Context, d *repository.PaymentDetail) error {
	if m.AddDetailFunc != nil {
		return m.AddDetailFunc(ctx, d)
	}
	d.ID = "pd-1"
	return nil
}

func (m *mockPaymentStore) ListDetails(ctx context.Context, groupID string) ([]*repository.PaymentDetail, error) {
	if m.ListDetailsFunc != nil {
		return m.ListDetailsFunc(ctx, groupID)
	}
	return nil, nil
}

type mockIdentity struct {
	roles map[string][]string
}

func (m *mockIdentity) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	if m.roles == nil {
		return nil, nil
	}
	return m.roles[userID], nil
}

type mockRates struct {
	rate float64
	err  error
}

func (m *mockRates) GetGeneralTaxRate(ctx context.Context) (float64, error) {
	return m.rate, m.err
}

type mockAudit struct {
	events []client.AuditEvent
}

func (m *mockAudit) Publish(ctx context.Context, ev client.AuditEvent) {
	m.events = append(m.events, ev)
}

func (m *mockAudit) actions() []string {
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Action)
	}
	return out
}
