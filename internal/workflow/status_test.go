package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignedLevelRoundTrip(t *testing.T) {
	for _, k := range []int{1, 2, 3, 7, 12} {
		got, ok := SignedLevel(k).SignedLevelOf()
		require.True(t, ok)
		require.Equal(t, k, got)
	}
}

func TestSignedLevelOfRejectsNonSigningStates(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, "SIGNED_", "SIGNED_0", "SIGNED_x", "SIGNED_-1"} {
		_, ok := s.SignedLevelOf()
		require.False(t, ok, "status %s", s)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusRejected, StatusCancelled} {
		require.True(t, s.IsTerminal())
		require.False(t, s.CanCancel())
	}
	for _, s := range []Status{StatusPending, StatusActive, StatusCompleted, SignedLevel(2)} {
		require.False(t, s.IsTerminal())
		require.True(t, s.CanCancel())
	}
}

func TestParseStatusMapsLegacyValues(t *testing.T) {
	cases := map[string]Status{
		"CREATED":   StatusPending,
		"FINISHED":  StatusCompleted,
		"SIGNED":    SignedLevel(1),
		" pending ": StatusPending,
		"SIGNED_4":  SignedLevel(4),
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		require.NoError(t, err, "raw %q", raw)
		require.Equal(t, want, got)
	}

	_, err := ParseStatus("GARBAGE")
	require.Error(t, err)
}

func TestNextAfterSign(t *testing.T) {
	next, err := NextAfterSign(SignedLevel(1), 3)
	require.NoError(t, err)
	require.Equal(t, SignedLevel(2), next)

	next, err = NextAfterSign(SignedLevel(3), 3)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, next)

	_, err = NextAfterSign(StatusCompleted, 3)
	require.Error(t, err)
}

func TestCanActivate(t *testing.T) {
	require.True(t, StatusPending.CanActivate())
	require.True(t, StatusDraft.CanActivate())
	require.False(t, StatusActive.CanActivate())
	require.False(t, StatusCompleted.CanActivate())
}

func TestSupplierStatusFinality(t *testing.T) {
	require.True(t, SupplierResponded.IsFinal())
	require.True(t, SupplierCancelled.IsFinal())
	require.False(t, SupplierPending.IsFinal())
	require.False(t, SupplierSent.IsFinal())
	require.False(t, SupplierSaved.IsFinal())
}
