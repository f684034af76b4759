package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Entity type tags used by approval configuration lookups.
const (
	EntityQuotationRequest = "QUOTATION_REQUEST"
	EntityPurchaseOrder    = "PURCHASE_ORDER"
)

// Status is the lifecycle state of a governed document.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	// Signing states are SIGNED_1..SIGNED_n, built via SignedLevel.
)

const signedPrefix = "SIGNED_"

// SignedLevel returns the status for the k-th signing stage (1-based).
func SignedLevel(k int) Status {
	return Status(signedPrefix + strconv.Itoa(k))
}

// SignedLevelOf returns the level of a SIGNED_k status, or (0, false).
func (s Status) SignedLevelOf() (int, bool) {
	raw, found := strings.CutPrefix(string(s), signedPrefix)
	if !found {
		return 0, false
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}

// IsSigning reports whether the document is inside the signature chain.
func (s Status) IsSigning() bool {
	_, ok := s.SignedLevelOf()
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
// APPROVED, REJECTED and CANCELLED are all absorbing.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDraft, StatusActive, StatusCompleted,
		StatusCancelled, StatusApproved, StatusRejected:
		return true
	}
	return s.IsSigning()
}

func (s Status) String() string { return string(s) }

// legacyStatuses maps values from earlier schema revisions forward. The
// status column was extended and renamed twice; old rows are mapped
// explicitly instead of relying on positional stability.
var legacyStatuses = map[string]Status{
	"CREATED":  StatusPending,
	"FINISHED": StatusCompleted,
	"SIGNED":   SignedLevel(1),
}

// ParseStatus parses a stored status value, mapping legacy values forward.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if mapped, ok := legacyStatuses[string(s)]; ok {
		return mapped, nil
	}
	if !s.IsValid() {
		return "", fmt.Errorf("unknown document status %q", raw)
	}
	return s, nil
}

// CanCancel reports whether explicit cancellation is permitted. Cancellation
// is always allowed before a document reaches an absorbing state.
func (s Status) CanCancel() bool {
	return !s.IsTerminal()
}

// CanActivate reports whether suppliers may be invited from s.
func (s Status) CanActivate() bool {
	return s == StatusPending || s == StatusDraft
}

// NextAfterSign returns the status following a successful signature of the
// current pending level, given the total number of resolved levels.
func NextAfterSign(current Status, totalLevels int) (Status, error) {
	k, ok := current.SignedLevelOf()
	if !ok {
		return "", fmt.Errorf("cannot sign from status %s", current)
	}
	if k >= totalLevels {
		return StatusApproved, nil
	}
	return SignedLevel(k + 1), nil
}

// SupplierStatus is the lifecycle state of one supplier invitation.
type SupplierStatus string

const (
	SupplierPending   SupplierStatus = "PENDING"
	SupplierSent      SupplierStatus = "SENT"
	SupplierSaved     SupplierStatus = "SAVED"
	SupplierResponded SupplierStatus = "RESPONDED"
	SupplierCancelled SupplierStatus = "CANCELLED"
)

// IsFinal reports whether the supplier invitation needs no further action.
func (s SupplierStatus) IsFinal() bool {
	return s == SupplierResponded || s == SupplierCancelled
}

// PaymentDetailStatus is the state of a single payment detail entry.
type PaymentDetailStatus string

const (
	PaymentDetailPending PaymentDetailStatus = "PENDING"
	PaymentDetailPaid    PaymentDetailStatus = "PAID"
	PaymentDetailVoided  PaymentDetailStatus = "VOIDED"
)
