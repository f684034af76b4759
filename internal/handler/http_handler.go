package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/service"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// HTTPHandler exposes the workflow engine over JSON/HTTP. All document
// mutations route through the services; nothing here writes status directly.
type HTTPHandler struct {
	requirements *service.RequirementService
	workflows    *service.WorkflowService
	procurement  *service.ProcurementService
	payments     *service.PaymentService
	config       *repository.ApprovalConfigRepository
	log          *logger.Logger
}

func NewHTTPHandler(
	requirements *service.RequirementService,
	workflows *service.WorkflowService,
	procurement *service.ProcurementService,
	payments *service.PaymentService,
	config *repository.ApprovalConfigRepository,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		requirements: requirements,
		workflows:    workflows,
		procurement:  procurement,
		payments:     payments,
		config:       config,
		log:          log,
	}
}

// Routes mounts all endpoints on a chi router.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/requirements", func(r chi.Router) {
		r.Post("/", h.CreateRequirement)
		r.Get("/", h.ListRequirements)
		r.Get("/{id}", h.GetRequirement)
		r.Delete("/{id}", h.DeleteRequirement)
	})

	r.Route("/quotation-requests", func(r chi.Router) {
		r.Post("/", h.CreateQuotationRequest)
		r.Get("/", h.ListQuotationRequests)
		r.Get("/pending", h.ListPendingApprovals)
		r.Get("/{id}", h.GetQuotationRequest)
		r.Post("/{id}/suppliers", h.InviteSuppliers)
		r.Post("/{id}/final-selection", h.ChooseFinalSelection)
		r.Post("/{id}/begin-signing", h.BeginSigning)
		r.Post("/{id}/sign", h.Sign)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/cancel", h.Cancel)
		r.Get("/{id}/ledger", h.GetLedger)
		r.Post("/{id}/purchase-orders", h.GeneratePurchaseOrders)
		r.Get("/{id}/purchase-orders", h.ListPurchaseOrders)
		r.Post("/{id}/payment-group", h.EnsurePaymentGroup)
		r.Get("/{id}/payment-group", h.GetPaymentGroup)
	})

	r.Post("/supplier-invitations/{id}/response", h.RecordSupplierResponse)
	r.Post("/supplier-invitations/{id}/cancel", h.CancelSupplierInvitation)

	r.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.CreateStandaloneOrder)
		r.Get("/{id}", h.GetPurchaseOrder)
	})

	r.Post("/payment-groups/{id}/details", h.AddPaymentDetail)

	r.Route("/approval-config", func(r chi.Router) {
		r.Post("/templates", h.CreateTemplate)
		r.Get("/templates", h.ListTemplates)
		r.Put("/templates/{id}", h.UpdateTemplate)
		r.Put("/overrides", h.UpsertEntityConfig)
		r.Get("/overrides", h.ListEntityConfigs)
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})
}

// actorID comes from the gateway; authentication itself is out of scope.
func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

// ── Requirements ─────────────────────────────────────────────────────────────

type createRequirementRequest struct {
	Type             string  `json:"type"`
	Subtype          *string `json:"subtype,omitempty"`
	JustificationRef *string `json:"justification_ref,omitempty"`
	CostCenterID     string  `json:"cost_center_id"`
	WarehouseID      *string `json:"warehouse_id,omitempty"`
}

func (h *HTTPHandler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	var req createRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	requirement := &repository.Requirement{
		Type:             repository.RequirementType(req.Type),
		Subtype:          req.Subtype,
		JustificationRef: req.JustificationRef,
		CostCenterID:     req.CostCenterID,
		WarehouseID:      req.WarehouseID,
		RequestedBy:      actorID(r),
	}
	if err := h.requirements.Create(r.Context(), requirement); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, requirement)
}

func (h *HTTPHandler) GetRequirement(w http.ResponseWriter, r *http.Request) {
	requirement, err := h.requirements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requirement)
}

func (h *HTTPHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	costCenterID := r.URL.Query().Get("cost_center_id")
	if costCenterID == "" {
		h.writeError(w, apperrors.InvalidInput("cost_center_id", "required query parameter"))
		return
	}
	limit, offset := pagination(r)
	list, err := h.requirements.List(r.Context(), costCenterID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"requirements": list})
}

func (h *HTTPHandler) DeleteRequirement(w http.ResponseWriter, r *http.Request) {
	if err := h.requirements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Quotation requests ───────────────────────────────────────────────────────

type createQuotationRequest struct {
	RequirementID string `json:"requirement_id"`
}

func (h *HTTPHandler) CreateQuotationRequest(w http.ResponseWriter, r *http.Request) {
	var req createQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.RequirementID == "" {
		h.writeError(w, apperrors.InvalidInput("requirement_id", "required"))
		return
	}
	qr, err := h.workflows.CreateQuotationRequest(r.Context(), req.RequirementID, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, qr)
}

func (h *HTTPHandler) ListQuotationRequests(w http.ResponseWriter, r *http.Request) {
	var status *workflow.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := workflow.ParseStatus(raw)
		if err != nil {
			h.writeError(w, apperrors.InvalidInput("status", "unknown status value"))
			return
		}
		status = &parsed
	}
	limit, offset := pagination(r)
	list, err := h.workflows.ListQuotationRequests(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"quotation_requests": list})
}

func (h *HTTPHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.workflows.ListPendingApprovals(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"quotation_requests": list})
}

func (h *HTTPHandler) GetQuotationRequest(w http.ResponseWriter, r *http.Request) {
	qr, err := h.workflows.GetQuotationRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, qr)
}

type inviteSuppliersRequest struct {
	Suppliers []struct {
		SupplierID string     `json:"supplier_id"`
		Deadline   *time.Time `json:"deadline,omitempty"`
	} `json:"suppliers"`
}

func (h *HTTPHandler) InviteSuppliers(w http.ResponseWriter, r *http.Request) {
	var req inviteSuppliersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	invites := make([]service.SupplierInvite, 0, len(req.Suppliers))
	for _, s := range req.Suppliers {
		invites = append(invites, service.SupplierInvite{SupplierID: s.SupplierID, Deadline: s.Deadline})
	}

	qrID := chi.URLParam(r, "id")
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.InviteSuppliers(ctx, qrID, invites, actorID(r))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

type supplierResponseRequest struct {
	PaymentMethod    string  `json:"payment_method"`
	TaxIncluded      bool    `json:"tax_included"`
	QuotationFileRef *string `json:"quotation_file_ref,omitempty"`
	Lines            []struct {
		LineNumber      int     `json:"line_number"`
		ItemCode        *string `json:"item_code,omitempty"`
		Description     string  `json:"description"`
		Quantity        float64 `json:"quantity"`
		UnitPriceCents  int64   `json:"unit_price_cents"`
		LineAmountCents int64   `json:"line_amount_cents"`
		TaxAmountCents  *int64  `json:"tax_amount_cents,omitempty"`
	} `json:"lines"`
}

func (h *HTTPHandler) RecordSupplierResponse(w http.ResponseWriter, r *http.Request) {
	var req supplierResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	sq := &repository.SupplierQuotation{
		QuotationSupplierID: chi.URLParam(r, "id"),
		PaymentMethod:       req.PaymentMethod,
		TaxIncluded:         req.TaxIncluded,
		QuotationFileRef:    req.QuotationFileRef,
	}
	for _, l := range req.Lines {
		sq.Lines = append(sq.Lines, &repository.SupplierQuotationLine{
			LineNumber:      l.LineNumber,
			ItemCode:        l.ItemCode,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			LineAmountCents: l.LineAmountCents,
			TaxAmountCents:  l.TaxAmountCents,
		})
	}

	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.RecordSupplierResponse(ctx, sq, actorID(r))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sq)
}

func (h *HTTPHandler) CancelSupplierInvitation(w http.ResponseWriter, r *http.Request) {
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.CancelSupplierInvitation(ctx, chi.URLParam(r, "id"), actorID(r))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type finalSelectionRequest struct {
	Items []struct {
		SupplierQuotationID string  `json:"supplier_quotation_id"`
		SupplierID          string  `json:"supplier_id"`
		PaymentMethod       string  `json:"payment_method"`
		Description         string  `json:"description"`
		Quantity            float64 `json:"quantity"`
		UnitPriceCents      int64   `json:"unit_price_cents"`
		LineAmountCents     int64   `json:"line_amount_cents"`
		TaxAmountCents      *int64  `json:"tax_amount_cents,omitempty"`
	} `json:"items"`
}

func (h *HTTPHandler) ChooseFinalSelection(w http.ResponseWriter, r *http.Request) {
	var req finalSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	items := make([]*repository.FinalSelectionItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &repository.FinalSelectionItem{
			SupplierQuotationID: it.SupplierQuotationID,
			SupplierID:          it.SupplierID,
			PaymentMethod:       it.PaymentMethod,
			Description:         it.Description,
			Quantity:            it.Quantity,
			UnitPriceCents:      it.UnitPriceCents,
			LineAmountCents:     it.LineAmountCents,
			TaxAmountCents:      it.TaxAmountCents,
		})
	}

	fs, err := h.workflows.ChooseFinalSelection(r.Context(), chi.URLParam(r, "id"), items, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, fs)
}

func (h *HTTPHandler) BeginSigning(w http.ResponseWriter, r *http.Request) {
	qrID := chi.URLParam(r, "id")
	var snap *repository.ApprovalSnapshot
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		var err error
		snap, err = h.workflows.BeginSigning(ctx, qrID, actorID(r))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

type signRequest struct {
	Level       int    `json:"level"`
	ArtifactRef string `json:"artifact_ref"`
}

func (h *HTTPHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	qrID := chi.URLParam(r, "id")
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.Sign(ctx, qrID, req.Level, actorID(r), req.ArtifactRef)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "signed"})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *HTTPHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	qrID := chi.URLParam(r, "id")
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.Reject(ctx, qrID, req.Reason, actorID(r))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *HTTPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	qrID := chi.URLParam(r, "id")
	err := service.RetryOnConflict(r.Context(), func(ctx context.Context) error {
		return h.workflows.Cancel(ctx, qrID, actorID(r))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *HTTPHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap, sigs, err := h.workflows.GetSignatureLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"snapshot": snap, "signatures": sigs})
}

// ── Purchase orders ──────────────────────────────────────────────────────────

type generateOrdersRequest struct {
	PaymentMethodOverride *string  `json:"payment_method_override,omitempty"`
	SupplierFilter        []string `json:"supplier_filter,omitempty"`
}

func (h *HTTPHandler) GeneratePurchaseOrders(w http.ResponseWriter, r *http.Request) {
	var req generateOrdersRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
			return
		}
	}

	result, err := h.procurement.GenerateFromQuotation(r.Context(), chi.URLParam(r, "id"), service.GenerateOptions{
		PaymentMethodOverride: req.PaymentMethodOverride,
		SupplierFilter:        req.SupplierFilter,
	}, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	failures := make([]map[string]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, map[string]string{
			"supplier_id": f.SupplierID,
			"error":       f.Err.Error(),
		})
	}
	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusMultiStatus
	}
	h.writeJSON(w, status, map[string]any{"orders": result.Orders, "failures": failures})
}

func (h *HTTPHandler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.procurement.ListOrders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *HTTPHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.procurement.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, po)
}

type standaloneOrderRequest struct {
	SupplierID    string `json:"supplier_id"`
	PaymentMethod string `json:"payment_method"`
	Lines         []struct {
		LineNumber      int     `json:"line_number"`
		Description     string  `json:"description"`
		Quantity        float64 `json:"quantity"`
		UnitPriceCents  int64   `json:"unit_price_cents"`
		LineAmountCents int64   `json:"line_amount_cents"`
		TaxAmountCents  *int64  `json:"tax_amount_cents,omitempty"`
	} `json:"lines"`
}

func (h *HTTPHandler) CreateStandaloneOrder(w http.ResponseWriter, r *http.Request) {
	var req standaloneOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	po := &repository.PurchaseOrder{
		SupplierID:    req.SupplierID,
		PaymentMethod: req.PaymentMethod,
		CreatedBy:     actorID(r),
	}
	for _, l := range req.Lines {
		po.Lines = append(po.Lines, &repository.PurchaseOrderLine{
			LineNumber:      l.LineNumber,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			LineAmountCents: l.LineAmountCents,
			TaxAmountCents:  l.TaxAmountCents,
		})
	}

	created, err := h.procurement.CreateStandalone(r.Context(), po)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ── Payments ─────────────────────────────────────────────────────────────────

func (h *HTTPHandler) EnsurePaymentGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.payments.EnsurePaymentGroup(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, group)
}

func (h *HTTPHandler) GetPaymentGroup(w http.ResponseWriter, r *http.Request) {
	group, details, err := h.payments.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"group": group, "details": details})
}

type paymentDetailRequest struct {
	AmountCents          int64   `json:"amount_cents"`
	InvoiceImageRef      *string `json:"invoice_image_ref,omitempty"`
	RetentionDocumentRef *string `json:"retention_document_ref,omitempty"`
}

func (h *HTTPHandler) AddPaymentDetail(w http.ResponseWriter, r *http.Request) {
	var req paymentDetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	detail := &repository.PaymentDetail{
		PaymentGroupID:       chi.URLParam(r, "id"),
		AmountCents:          req.AmountCents,
		InvoiceImageRef:      req.InvoiceImageRef,
		RetentionDocumentRef: req.RetentionDocumentRef,
		CreatedBy:            actorID(r),
	}
	if err := h.payments.AddPaymentDetail(r.Context(), detail); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, detail)
}

// ── Approval configuration ───────────────────────────────────────────────────

type templateRequest struct {
	TemplateName           string `json:"template_name"`
	EntityType             string `json:"entity_type"`
	Level                  int    `json:"level"`
	RequiredRole           string `json:"required_role"`
	Required               bool   `json:"required"`
	RequiredBelowThreshold bool   `json:"required_below_threshold"`
	IsActive               bool   `json:"is_active"`
}

func (h *HTTPHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	t := &repository.ApprovalFlowTemplate{
		TemplateName:           req.TemplateName,
		EntityType:             req.EntityType,
		Level:                  req.Level,
		RequiredRole:           req.RequiredRole,
		Required:               req.Required,
		RequiredBelowThreshold: req.RequiredBelowThreshold,
		IsActive:               req.IsActive,
	}
	if err := h.config.CreateTemplate(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

func (h *HTTPHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		h.writeError(w, apperrors.InvalidInput("entity_type", "required query parameter"))
		return
	}
	templates, err := h.config.ListActiveTemplates(r.Context(), entityType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *HTTPHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	t := &repository.ApprovalFlowTemplate{
		ID:                     chi.URLParam(r, "id"),
		TemplateName:           req.TemplateName,
		RequiredRole:           req.RequiredRole,
		Required:               req.Required,
		RequiredBelowThreshold: req.RequiredBelowThreshold,
		IsActive:               req.IsActive,
	}
	if err := h.config.UpdateTemplate(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

type entityConfigRequest struct {
	EntityType             string `json:"entity_type"`
	EntityID               string `json:"entity_id"`
	Level                  int    `json:"level"`
	RequiredRole           string `json:"required_role"`
	Required               bool   `json:"required"`
	RequiredBelowThreshold bool   `json:"required_below_threshold"`
	IsActive               bool   `json:"is_active"`
}

func (h *HTTPHandler) UpsertEntityConfig(w http.ResponseWriter, r *http.Request) {
	var req entityConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	c := &repository.DocumentApprovalConfig{
		EntityType:             req.EntityType,
		EntityID:               req.EntityID,
		Level:                  req.Level,
		RequiredRole:           req.RequiredRole,
		Required:               req.Required,
		RequiredBelowThreshold: req.RequiredBelowThreshold,
		IsActive:               req.IsActive,
		UpdatedBy:              actorID(r),
	}
	if err := h.config.UpsertEntityConfig(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) ListEntityConfigs(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID := r.URL.Query().Get("entity_id")
	if entityType == "" || entityID == "" {
		h.writeError(w, apperrors.InvalidInput("entity", "entity_type and entity_id are required"))
		return
	}
	configs, err := h.config.ListActiveEntityConfigs(r.Context(), entityType, entityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (h *HTTPHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.config.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	LowAmountThresholdCents int64   `json:"low_amount_threshold_cents"`
	GeneralTaxRate          float64 `json:"general_tax_rate"`
}

func (h *HTTPHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	settings := &repository.GeneralSettings{
		LowAmountThresholdCents: req.LowAmountThresholdCents,
		GeneralTaxRate:          req.GeneralTaxRate,
	}
	if err := h.config.UpdateSettings(r.Context(), settings); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

// ── shared ───────────────────────────────────────────────────────────────────

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeConfigurationMissing:
		return http.StatusPreconditionFailed
	case apperrors.CodeInvalidTransition,
		apperrors.CodeOutOfOrder,
		apperrors.CodeDuplicateSignature,
		apperrors.CodeNotApproved,
		apperrors.CodeNoFinalSelection,
		apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeRoleMismatch:
		return http.StatusForbidden
	case apperrors.CodeConcurrentModification:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
