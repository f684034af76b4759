package service

import (
	"context"
	"time"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/workflow"
)

// WorkflowService owns the quotation request lifecycle: supplier invitations,
// supplier responses, the final selection, and the signature chain. It is the
// only component allowed to change document status; collaborators route
// through it.
type WorkflowService struct {
	quotations QuotationStore
	signatures SignatureStore
	orders     *ProcurementService
	resolver   *ApprovalResolver
	identity   IdentityClient
	audit      AuditSink
	log        *logger.Logger
}

func NewWorkflowService(
	quotations QuotationStore,
	signatures SignatureStore,
	orders *ProcurementService,
	resolver *ApprovalResolver,
	identity IdentityClient,
	audit AuditSink,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		quotations: quotations,
		signatures: signatures,
		orders:     orders,
		resolver:   resolver,
		identity:   identity,
		audit:      audit,
		log:        log,
	}
}

// ── Intake ────────────────────────────────────────────────────────────────────

// CreateQuotationRequest derives a quotation request from a requirement.
func (s *WorkflowService) CreateQuotationRequest(ctx context.Context, requirementID, createdBy string) (*repository.QuotationRequest, error) {
	qr := &repository.QuotationRequest{
		RequirementID: requirementID,
		CreatedBy:     createdBy,
	}
	if err := s.quotations.Create(ctx, qr); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, "created", qr.ID, createdBy, "", string(qr.Status), nil)
	s.log.Info().
		Str("quotation_request_id", qr.ID).
		Str("requirement_id", requirementID).
		Msg("quotation request created")
	return qr, nil
}

// ── Supplier phase ────────────────────────────────────────────────────────────

// SupplierInvite describes one supplier to invite.
type SupplierInvite struct {
	SupplierID string
	Deadline   *time.Time
}

// InviteSuppliers activates a quotation request by inviting at least one
// supplier. Refused once a final selection exists.
func (s *WorkflowService) InviteSuppliers(ctx context.Context, qrID string, invites []SupplierInvite, actorID string) error {
	if len(invites) == 0 {
		return apperrors.InvalidInput("suppliers", "at least one supplier is required")
	}

	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return err
	}
	if !qr.Status.CanActivate() {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot invite suppliers from status %s", qr.Status)
	}
	if _, err := s.quotations.GetFinalSelection(ctx, qrID); err == nil {
		return apperrors.New(apperrors.CodeInvalidTransition,
			"cannot invite suppliers after a final selection exists")
	} else if !apperrors.HasCode(err, apperrors.CodeNoFinalSelection) {
		return err
	}

	rows := make([]*repository.QuotationSupplier, 0, len(invites))
	for _, inv := range invites {
		rows = append(rows, &repository.QuotationSupplier{
			SupplierID: inv.SupplierID,
			Status:     workflow.SupplierPending,
			Deadline:   inv.Deadline,
		})
	}
	if err := s.quotations.InviteSuppliers(ctx, qrID, qr.Version, rows); err != nil {
		return err
	}

	s.appendAudit(ctx, "activated", qrID, actorID, string(qr.Status), string(workflow.StatusActive),
		map[string]any{"suppliers": len(rows)})
	return nil
}

// RecordSupplierResponse stores a supplier's priced quotation and completes
// the quotation request when every invitation has reached a final state.
func (s *WorkflowService) RecordSupplierResponse(ctx context.Context, sq *repository.SupplierQuotation, actorID string) error {
	inv, err := s.quotations.GetSupplierInvitation(ctx, sq.QuotationSupplierID)
	if err != nil {
		return err
	}
	if inv.Status.IsFinal() {
		return apperrors.Newf(apperrors.CodeConflict,
			"invitation %s is already %s", inv.ID, inv.Status)
	}

	qr, err := s.quotations.GetByID(ctx, inv.QuotationRequestID)
	if err != nil {
		return err
	}
	if qr.Status != workflow.StatusActive {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot record supplier response while quotation request is %s", qr.Status)
	}
	if len(sq.Lines) == 0 {
		return apperrors.InvalidInput("lines", "a supplier quotation needs at least one line")
	}

	if err := s.quotations.CreateSupplierQuotation(ctx, sq); err != nil {
		return err
	}
	return s.completeIfAllResponded(ctx, inv.QuotationRequestID, actorID)
}

// CancelSupplierInvitation marks one invitation cancelled and completes the
// quotation request when it was the last open one.
func (s *WorkflowService) CancelSupplierInvitation(ctx context.Context, inviteID, actorID string) error {
	inv, err := s.quotations.GetSupplierInvitation(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv.Status.IsFinal() {
		return apperrors.Newf(apperrors.CodeConflict,
			"invitation %s is already %s", inv.ID, inv.Status)
	}
	if err := s.quotations.UpdateSupplierStatus(ctx, inviteID, workflow.SupplierCancelled); err != nil {
		return err
	}
	return s.completeIfAllResponded(ctx, inv.QuotationRequestID, actorID)
}

func (s *WorkflowService) completeIfAllResponded(ctx context.Context, qrID, actorID string) error {
	invites, err := s.quotations.ListSuppliers(ctx, qrID)
	if err != nil {
		return err
	}
	for _, inv := range invites {
		if !inv.Status.IsFinal() {
			return nil
		}
	}

	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return err
	}
	if qr.Status != workflow.StatusActive {
		return nil
	}
	if err := s.quotations.TransitionStatus(ctx, qrID, qr.Version, workflow.StatusCompleted); err != nil {
		return err
	}
	s.appendAudit(ctx, "completed", qrID, actorID, string(workflow.StatusActive), string(workflow.StatusCompleted), nil)
	return nil
}

// ── Final selection ───────────────────────────────────────────────────────────

// ChooseFinalSelection records the chosen supplier quotation lines. Allowed
// only once supplier responses are complete; the derived total becomes the
// amount used for threshold routing.
func (s *WorkflowService) ChooseFinalSelection(ctx context.Context, qrID string, items []*repository.FinalSelectionItem, selectedBy string) (*repository.FinalSelection, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("items", "a final selection needs at least one item")
	}

	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if qr.Status != workflow.StatusCompleted {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot choose a final selection while quotation request is %s", qr.Status)
	}

	var total int64
	for _, item := range items {
		total += item.LineAmountCents
	}

	fs := &repository.FinalSelection{
		QuotationRequestID: qrID,
		TotalAmountCents:   total,
		SelectedBy:         selectedBy,
		Items:              items,
	}
	if err := s.quotations.CreateFinalSelection(ctx, fs); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, "selection_chosen", qrID, selectedBy, "", "",
		map[string]any{"total_amount_cents": total, "items": len(items)})
	return fs, nil
}

// ── Signing phase ─────────────────────────────────────────────────────────────

// BeginSigning resolves the required levels, freezes them as the document's
// snapshot, and enters the signature chain. An empty resolved list approves
// the document immediately.
func (s *WorkflowService) BeginSigning(ctx context.Context, qrID, actorID string) (*repository.ApprovalSnapshot, error) {
	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if qr.Status != workflow.StatusCompleted {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot begin signing from status %s", qr.Status)
	}

	fs, err := s.quotations.GetFinalSelection(ctx, qrID)
	if err != nil {
		return nil, err
	}

	levels, err := s.resolver.Resolve(ctx, workflow.EntityQuotationRequest, qrID, fs.TotalAmountCents)
	if err != nil {
		return nil, err
	}

	entry := workflow.StatusApproved
	if len(levels) > 0 {
		entry = workflow.SignedLevel(1)
	}

	snap := &repository.ApprovalSnapshot{
		EntityType: workflow.EntityQuotationRequest,
		EntityID:   qrID,
		Levels:     levels,
	}
	if err := s.signatures.CaptureSnapshot(ctx, snap, qr.Version, entry); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, "signing_started", qrID, actorID, string(qr.Status), string(entry),
		map[string]any{"levels": len(levels)})

	if entry == workflow.StatusApproved {
		s.onApproved(ctx, qrID, actorID)
	}
	return snap, nil
}

// Sign records one signature on the document's current pending level and
// advances the chain. The final level's signature approves the document and
// triggers purchase order generation.
func (s *WorkflowService) Sign(ctx context.Context, qrID string, level int, signerID, artifactRef string) error {
	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return err
	}
	current, ok := qr.Status.SignedLevelOf()
	if !ok {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot sign while quotation request is %s", qr.Status)
	}

	snap, err := s.signatures.GetSnapshot(ctx, workflow.EntityQuotationRequest, qrID)
	if err != nil {
		return err
	}
	if snap == nil {
		// States >= SIGNED_1 are only reachable through BeginSigning, which
		// captures the snapshot transactionally.
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"quotation request %s has no approval snapshot", qrID)
	}

	pos := snapshotPosition(snap, level)
	switch {
	case pos == 0:
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"level %d is not part of the approval chain", level)
	case pos < current:
		return apperrors.Newf(apperrors.CodeDuplicateSignature,
			"level %d of document %s is already signed", level, qrID)
	case pos > current:
		return apperrors.Newf(apperrors.CodeOutOfOrder,
			"level %d cannot be signed before level %d", level, snap.Levels[current-1].Level)
	}

	def := snap.Levels[pos-1]
	if err := s.assertRole(ctx, signerID, def.Role); err != nil {
		return err
	}

	next := workflow.StatusApproved
	if current < snap.TotalLevels() {
		next = workflow.SignedLevel(current + 1)
	}

	sig := &repository.Signature{
		EntityType:  workflow.EntityQuotationRequest,
		EntityID:    qrID,
		Level:       level,
		SignerID:    signerID,
		ArtifactRef: artifactRef,
	}
	if err := s.signatures.SignAndAdvance(ctx, sig, qr.Version, next); err != nil {
		return err
	}

	s.appendAudit(ctx, "signed", qrID, signerID, string(qr.Status), string(next),
		map[string]any{"level": level, "artifact_ref": artifactRef})

	if next == workflow.StatusApproved {
		s.onApproved(ctx, qrID, signerID)
	}
	return nil
}

// Reject terminates the signature chain. Permitted only from a signing state,
// by a signer holding a role at or above the current pending level.
func (s *WorkflowService) Reject(ctx context.Context, qrID, reason, signerID string) error {
	if reason == "" {
		return apperrors.InvalidInput("reason", "rejection reason is required")
	}

	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return err
	}
	current, ok := qr.Status.SignedLevelOf()
	if !ok {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot reject while quotation request is %s", qr.Status)
	}

	snap, err := s.signatures.GetSnapshot(ctx, workflow.EntityQuotationRequest, qrID)
	if err != nil {
		return err
	}
	if snap == nil {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"quotation request %s has no approval snapshot", qrID)
	}

	// Eligible rejecters: holders of the role of the current or any higher
	// remaining level.
	roles, err := s.identity.GetUserRoles(ctx, signerID)
	if err != nil {
		return err
	}
	eligible := false
	for i := current - 1; i < snap.TotalLevels(); i++ {
		if containsRole(roles, snap.Levels[i].Role) {
			eligible = true
			break
		}
	}
	if !eligible {
		return apperrors.Newf(apperrors.CodeRoleMismatch,
			"signer %s holds no role eligible to reject at level %d or above", signerID, current)
	}

	if err := s.quotations.Reject(ctx, qrID, qr.Version, signerID, reason); err != nil {
		return err
	}

	s.appendAudit(ctx, "rejected", qrID, signerID, string(qr.Status), string(workflow.StatusRejected),
		map[string]any{"reason": reason})
	return nil
}

// Cancel terminates the document from any non-absorbing state.
func (s *WorkflowService) Cancel(ctx context.Context, qrID, actorID string) error {
	qr, err := s.quotations.GetByID(ctx, qrID)
	if err != nil {
		return err
	}
	if !qr.Status.CanCancel() {
		return apperrors.Newf(apperrors.CodeInvalidTransition,
			"cannot cancel a quotation request in status %s", qr.Status)
	}
	if err := s.quotations.TransitionStatus(ctx, qrID, qr.Version, workflow.StatusCancelled); err != nil {
		return err
	}
	s.appendAudit(ctx, "cancelled", qrID, actorID, string(qr.Status), string(workflow.StatusCancelled), nil)
	return nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// GetQuotationRequest returns the document head.
func (s *WorkflowService) GetQuotationRequest(ctx context.Context, qrID string) (*repository.QuotationRequest, error) {
	return s.quotations.GetByID(ctx, qrID)
}

// ListQuotationRequests returns documents newest first, optionally filtered
// to one status.
func (s *WorkflowService) ListQuotationRequests(ctx context.Context, status *workflow.Status, limit, offset int) ([]*repository.QuotationRequest, error) {
	if status != nil && !status.IsValid() {
		return nil, apperrors.InvalidInput("status", "unknown status value")
	}
	return s.quotations.List(ctx, status, limit, offset)
}

// ListPendingApprovals returns documents currently inside the signature
// chain, oldest first.
func (s *WorkflowService) ListPendingApprovals(ctx context.Context, limit, offset int) ([]*repository.QuotationRequest, error) {
	return s.quotations.ListInSigning(ctx, limit, offset)
}

// GetSignatureLedger returns the frozen snapshot and the recorded signatures.
func (s *WorkflowService) GetSignatureLedger(ctx context.Context, qrID string) (*repository.ApprovalSnapshot, []*repository.Signature, error) {
	snap, err := s.signatures.GetSnapshot(ctx, workflow.EntityQuotationRequest, qrID)
	if err != nil {
		return nil, nil, err
	}
	sigs, err := s.signatures.ListSignatures(ctx, workflow.EntityQuotationRequest, qrID)
	if err != nil {
		return nil, nil, err
	}
	return snap, sigs, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// onApproved triggers downstream purchase order generation. Generation is
// idempotent, so a failure here can be retried by re-invoking the generator;
// the approval itself has already committed.
func (s *WorkflowService) onApproved(ctx context.Context, qrID, actorID string) {
	s.appendAudit(ctx, "approved", qrID, actorID, "", string(workflow.StatusApproved), nil)

	result, err := s.orders.GenerateFromQuotation(ctx, qrID, GenerateOptions{}, actorID)
	if err != nil {
		s.log.Error().Err(err).
			Str("quotation_request_id", qrID).
			Msg("purchase order generation failed after approval")
		return
	}
	s.log.Info().
		Str("quotation_request_id", qrID).
		Int("orders", len(result.Orders)).
		Int("failures", len(result.Failures)).
		Msg("purchase orders generated")
}

func (s *WorkflowService) assertRole(ctx context.Context, signerID, requiredRole string) error {
	roles, err := s.identity.GetUserRoles(ctx, signerID)
	if err != nil {
		return err
	}
	if !containsRole(roles, requiredRole) {
		return apperrors.Newf(apperrors.CodeRoleMismatch,
			"signer %s does not hold required role %s", signerID, requiredRole)
	}
	return nil
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// snapshotPosition returns the 1-based position of a level number inside the
// snapshot, or 0 when the level is not part of the chain.
func snapshotPosition(snap *repository.ApprovalSnapshot, level int) int {
	for i := range snap.Levels {
		if snap.Levels[i].Level == level {
			return i + 1
		}
	}
	return 0
}

func (s *WorkflowService) appendAudit(ctx context.Context, action, entityID, actorID, oldValue, newValue string, metadata map[string]any) {
	s.audit.Publish(ctx, client.AuditEvent{
		Action:   action,
		Entity:   workflow.EntityQuotationRequest,
		EntityID: entityID,
		ActorID:  actorID,
		OldValue: oldValue,
		NewValue: newValue,
		Metadata: metadata,
	})
}
