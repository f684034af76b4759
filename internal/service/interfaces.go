package service

import (
	"context"

	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// Store interfaces are declared here, on the consumer side, so services can
// be tested against func-field mocks without a database.

// QuotationStore is the persistence surface for quotation aggregates.
type QuotationStore interface {
	Create(ctx context.Context, qr *repository.QuotationRequest) error
	GetByID(ctx context.Context, id string) (*repository.QuotationRequest, error)
	List(ctx context.Context, status *workflow.Status, limit, offset int) ([]*repository.QuotationRequest, error)
	ListInSigning(ctx context.Context, limit, offset int) ([]*repository.QuotationRequest, error)
	TransitionStatus(ctx context.Context, id string, expectedVersion int, to workflow.Status) error
	Reject(ctx context.Context, id string, expectedVersion int, rejectedBy, reason string) error

	InviteSuppliers(ctx context.Context, qrID string, expectedVersion int, invites []*repository.QuotationSupplier) error
	ListSuppliers(ctx context.Context, qrID string) ([]*repository.QuotationSupplier, error)
	GetSupplierInvitation(ctx context.Context, id string) (*repository.QuotationSupplier, error)
	UpdateSupplierStatus(ctx context.Context, id string, status workflow.SupplierStatus) error
	CreateSupplierQuotation(ctx context.Context, sq *repository.SupplierQuotation) error
	GetSupplierQuotation(ctx context.Context, id string) (*repository.SupplierQuotation, error)

	CreateFinalSelection(ctx context.Context, fs *repository.FinalSelection) error
	GetFinalSelection(ctx context.Context, qrID string) (*repository.FinalSelection, error)
}

// ApprovalConfigStore is the persistence surface for approval configuration.
type ApprovalConfigStore interface {
	ListActiveTemplates(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error)
	ListActiveEntityConfigs(ctx context.Context, entityType, entityID string) ([]*repository.DocumentApprovalConfig, error)
	GetSettings(ctx context.Context) (*repository.GeneralSettings, error)
}

// SignatureStore is the persistence surface for snapshots and the ledger.
type SignatureStore interface {
	CaptureSnapshot(ctx context.Context, snap *repository.ApprovalSnapshot, expectedVersion int, entryStatus workflow.Status) error
	GetSnapshot(ctx context.Context, entityType, entityID string) (*repository.ApprovalSnapshot, error)
	SignAndAdvance(ctx context.Context, sig *repository.Signature, expectedVersion int, next workflow.Status) error
	ListSignatures(ctx context.Context, entityType, entityID string) ([]*repository.Signature, error)
}

// PurchaseOrderStore is the persistence surface for purchase orders.
type PurchaseOrderStore interface {
	CreateWithLines(ctx context.Context, po *repository.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*repository.PurchaseOrder, error)
	ListByQuotationRequest(ctx context.Context, qrID string) ([]*repository.PurchaseOrder, error)
	CountByQuotationRequest(ctx context.Context, qrID string) (int, error)
}

// PaymentStore is the persistence surface for payment groups.
type PaymentStore interface {
	EnsureGroup(ctx context.Context, qrID string) (*repository.PaymentGroup, error)
	GetGroupByQuotationRequest(ctx context.Context, qrID string) (*repository.PaymentGroup, error)
	AddDetail(ctx context.Context, d *repository.PaymentDetail) error
	ListDetails(ctx context.Context, groupID string) ([]*repository.PaymentDetail, error)
}

// IdentityClient resolves role membership for signature checks.
type IdentityClient interface {
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
}

// RatesClient supplies the general tax rate when a selection line carries no
// frozen tax amount.
type RatesClient interface {
	GetGeneralTaxRate(ctx context.Context) (float64, error)
}

// AuditSink is the write-only audit append target.
type AuditSink interface {
	Publish(ctx context.Context, ev client.AuditEvent)
}
