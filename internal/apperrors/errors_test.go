package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfUnwrapsThroughLayers(t *testing.T) {
	inner := New(CodeDuplicateSignature, "level 2 already signed")
	wrapped := fmt.Errorf("handling request: %w", inner)

	require.Equal(t, CodeDuplicateSignature, CodeOf(wrapped))
	require.True(t, HasCode(wrapped, CodeDuplicateSignature))
	require.False(t, HasCode(wrapped, CodeOutOfOrder))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	require.Equal(t, CodeInternal, CodeOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load quotation request")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "failed to load quotation request")
	require.Contains(t, err.Error(), "connection reset")
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(New(CodeConcurrentModification, "version conflict")))
	require.False(t, IsRetryable(New(CodeDuplicateSignature, "already signed")))
	require.False(t, IsRetryable(errors.New("plain")))
}

func TestHelpers(t *testing.T) {
	nf := NotFound("quotation_request", "qr-9")
	require.Equal(t, CodeNotFound, nf.Code)
	require.Contains(t, nf.Message, "qr-9")

	ii := InvalidInput("reason", "rejection reason is required")
	require.Equal(t, CodeInvalidInput, ii.Code)
}
