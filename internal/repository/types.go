package repository

import (
	"time"

	"github.com/andina-erp/be-procurement/internal/workflow"
)

// ── Requirement intake ───────────────────────────────────────────────────────

// RequirementType discriminates goods from services.
type RequirementType string

const (
	RequirementArticle RequirementType = "ARTICLE"
	RequirementService RequirementType = "SERVICE"
)

// Requirement is the initial internal request for goods or services.
// Immutable once a quotation request derives from it, except soft deletion.
type Requirement struct {
	ID               string
	Type             RequirementType
	Subtype          *string
	JustificationRef *string // opaque file-storage reference
	CostCenterID     string
	WarehouseID      *string // destination warehouse, ARTICLE only
	RequestedBy      string
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ── Quotation aggregate ──────────────────────────────────────────────────────

// QuotationRequest is the document the approval engine governs.
// Version implements optimistic concurrency on status transitions.
type QuotationRequest struct {
	ID             string
	RequirementID  string
	Status         workflow.Status
	Progress       int    // advisory 0-100, maintained by reporting, not the engine
	AmountCents    *int64 // derived from the final selection once chosen
	Version        int
	RejectedBy     *string
	RejectedReason *string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// QuotationSupplier is one supplier invitation for a quotation request.
type QuotationSupplier struct {
	ID                 string
	QuotationRequestID string
	SupplierID         string
	Status             workflow.SupplierStatus
	Deadline           *time.Time // advisory only, never auto-transitions
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SupplierQuotation is a supplier's priced response to an invitation.
type SupplierQuotation struct {
	ID                  string
	QuotationSupplierID string
	PaymentMethod       string
	TaxIncluded         bool
	QuotationFileRef    *string
	Lines               []*SupplierQuotationLine
	CreatedAt           time.Time
}

// SupplierQuotationLine is one priced item on a supplier quotation.
type SupplierQuotationLine struct {
	ID                  string
	SupplierQuotationID string
	LineNumber          int
	ItemCode            *string
	Description         string
	Quantity            float64
	UnitPriceCents      int64
	LineAmountCents     int64
	TaxAmountCents      *int64 // frozen at quotation time when tax-inclusive
}

// FinalSelection records the chosen supplier quotation(s) and the resulting
// total. Exactly one per quotation request (unique FK).
type FinalSelection struct {
	ID                 string
	QuotationRequestID string
	TotalAmountCents   int64
	SelectedBy         string
	Items              []*FinalSelectionItem
	CreatedAt          time.Time
}

// FinalSelectionItem is one chosen line, denormalized so purchase orders can
// copy totals verbatim without re-reading supplier quotations.
type FinalSelectionItem struct {
	ID                  string
	FinalSelectionID    string
	SupplierQuotationID string
	SupplierID          string
	PaymentMethod       string
	Description         string
	Quantity            float64
	UnitPriceCents      int64
	LineAmountCents     int64
	TaxAmountCents      *int64
}

// ── Approval configuration ───────────────────────────────────────────────────

// ApprovalFlowTemplate is one level of the global default signature chain
// for an entity type.
type ApprovalFlowTemplate struct {
	ID                     string
	TemplateName           string
	EntityType             string
	Level                  int
	RequiredRole           string
	Required               bool
	RequiredBelowThreshold bool // false = level dropped for low amounts
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DocumentApprovalConfig overrides the template for one entity instance and
// level.
type DocumentApprovalConfig struct {
	ID                     string
	EntityType             string
	EntityID               string
	Level                  int
	RequiredRole           string
	Required               bool
	RequiredBelowThreshold bool
	IsActive               bool
	UpdatedBy              string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// GeneralSettings is the singleton of global procurement parameters. Callers
// read it once and pass the value around so resolutions stay reproducible.
type GeneralSettings struct {
	LowAmountThresholdCents int64
	GeneralTaxRate          float64 // percentage, e.g. 18.0
	UpdatedAt               time.Time
}

// ── Signature ledger ─────────────────────────────────────────────────────────

// SnapshotLevel is one resolved level inside a frozen approval snapshot.
type SnapshotLevel struct {
	Level    int    `json:"level"`
	Role     string `json:"role"`
	Required bool   `json:"required"`
}

// ApprovalSnapshot is the immutable set of required levels captured when a
// document enters the signing phase. Later configuration changes never touch
// it.
type ApprovalSnapshot struct {
	ID         string
	EntityType string
	EntityID   string
	Levels     []SnapshotLevel
	CapturedAt time.Time
}

// TotalLevels returns the number of levels in the snapshot.
func (s *ApprovalSnapshot) TotalLevels() int { return len(s.Levels) }

// LevelAt returns the snapshot entry for a level number, or nil.
func (s *ApprovalSnapshot) LevelAt(level int) *SnapshotLevel {
	for i := range s.Levels {
		if s.Levels[i].Level == level {
			return &s.Levels[i]
		}
	}
	return nil
}

// Signature is one ledger entry: who signed which level, when, with what
// artifact.
type Signature struct {
	ID          string
	EntityType  string
	EntityID    string
	Level       int
	SignerID    string
	ArtifactRef string
	SignedAt    time.Time
}

// ── Procurement artifacts ────────────────────────────────────────────────────

// PurchaseOrder is a generated (or stand-alone) procurement artifact.
type PurchaseOrder struct {
	ID                 string
	Number             int64 // own identity sequence, independent of any parent
	QuotationRequestID *string
	SupplierID         string
	PaymentMethod      string
	TotalAmountCents   int64
	TaxAmountCents     int64
	CreatedBy          string
	Lines              []*PurchaseOrderLine
	CreatedAt          time.Time
}

// PurchaseOrderLine mirrors a final selection item verbatim.
type PurchaseOrderLine struct {
	ID              string
	PurchaseOrderID string
	LineNumber      int
	Description     string
	Quantity        float64
	UnitPriceCents  int64
	LineAmountCents int64
	TaxAmountCents  *int64
	CreatedAt       time.Time
}

// PaymentGroup aggregates payments for one quotation request (unique FK).
type PaymentGroup struct {
	ID                 string
	QuotationRequestID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PaymentDetail is one payment entry inside a group.
type PaymentDetail struct {
	ID                   string
	PaymentGroupID       string
	AmountCents          int64
	InvoiceImageRef      *string
	RetentionDocumentRef *string
	Status               workflow.PaymentDetailStatus
	CreatedBy            string
	CreatedAt            time.Time
}
