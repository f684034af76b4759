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

func tmpl(level int, role string, required, belowThreshold bool) *repository.ApprovalFlowTemplate {
	return &repository.ApprovalFlowTemplate{
		Level:                  level,
		RequiredRole:           role,
		Required:               required,
		RequiredBelowThreshold: belowThreshold,
		IsActive:               true,
	}
}

func TestResolveMergesTemplatesAndOverrides(t *testing.T) {
	store := &mockConfigStore{
		ListActiveTemplatesFunc: func(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error) {
			return []*repository.ApprovalFlowTemplate{
				tmpl(1, "REQUESTER", true, true),
				tmpl(2, "TECH_OFFICE", true, true),
				tmpl(3, "ADMINISTRATION", true, true),
			}, nil
		},
		ListActiveEntityConfigsFunc: func(ctx context.Context, entityType, entityID string) ([]*repository.DocumentApprovalConfig, error) {
			return []*repository.DocumentApprovalConfig{
				{Level: 2, RequiredRole: "FINANCE", Required: true, RequiredBelowThreshold: true, IsActive: true},
			}, nil
		},
	}
	resolver := NewApprovalResolver(store, logger.Nop())

	levels, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 5000000)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	require.Equal(t, []int{1, 2, 3}, []int{levels[0].Level, levels[1].Level, levels[2].Level})
	// Override wins for level 2, templates for the rest.
	require.Equal(t, "REQUESTER", levels[0].Role)
	require.Equal(t, "FINANCE", levels[1].Role)
	require.Equal(t, "ADMINISTRATION", levels[2].Role)
}

func TestResolveDropsHighestLevelBelowThreshold(t *testing.T) {
	store := &mockConfigStore{
		GetSettingsFunc: func(ctx context.Context) (*repository.GeneralSettings, error) {
			return &repository.GeneralSettings{LowAmountThresholdCents: 10000, GeneralTaxRate: 18}, nil
		},
		ListActiveTemplatesFunc: func(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error) {
			return []*repository.ApprovalFlowTemplate{
				tmpl(1, "REQUESTER", true, true),
				tmpl(2, "TECH_OFFICE", true, true),
				tmpl(3, "ADMINISTRATION", false, false),
			}, nil
		},
	}
	resolver := NewApprovalResolver(store, logger.Nop())

	// At or below the threshold the optional top level is dropped.
	levels, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 8000)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.Equal(t, "TECH_OFFICE", levels[1].Role)

	// Above it the full chain applies.
	levels, err = resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 10001)
	require.NoError(t, err)
	require.Len(t, levels, 3)
}

func TestResolveKeepsRequiredTopLevelBelowThreshold(t *testing.T) {
	store := &mockConfigStore{
		ListActiveTemplatesFunc: func(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error) {
			return []*repository.ApprovalFlowTemplate{
				tmpl(1, "REQUESTER", true, true),
				tmpl(2, "ADMINISTRATION", true, false),
			}, nil
		},
	}
	resolver := NewApprovalResolver(store, logger.Nop())

	levels, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 1)
	require.NoError(t, err)
	require.Len(t, levels, 2)
}

func TestResolveFailsClosedWithoutTemplates(t *testing.T) {
	resolver := NewApprovalResolver(&mockConfigStore{}, logger.Nop())

	_, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 100)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeConfigurationMissing, apperrors.CodeOf(err))
}

func TestResolveIsDeterministic(t *testing.T) {
	store := &mockConfigStore{
		ListActiveTemplatesFunc: func(ctx context.Context, entityType string) ([]*repository.ApprovalFlowTemplate, error) {
			return []*repository.ApprovalFlowTemplate{
				tmpl(3, "C", true, true),
				tmpl(1, "A", true, true),
				tmpl(2, "B", true, true),
			}, nil
		},
	}
	resolver := NewApprovalResolver(store, logger.Nop())

	first, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 999999)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := resolver.Resolve(context.Background(), workflow.EntityQuotationRequest, "qr-1", 999999)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, []int{1, 2, 3}, []int{first[0].Level, first[1].Level, first[2].Level})
}
