package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
)

type mockRequirementStore struct {
	CreateFunc     func(ctx context.Context, req *repository.Requirement) error
	GetByIDFunc    func(ctx context.Context, id string) (*repository.Requirement, error)
	ListFunc       func(ctx context.Context, costCenterID string, limit, offset int) ([]*repository.Requirement, error)
	SoftDeleteFunc func(ctx context.Context, id string) error
}

func (m *mockRequirementStore) Create(ctx context.Context, req *repository.Requirement) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	req.ID = "req-1"
	return nil
}

func (m *mockRequirementStore) GetByID(ctx context.Context, id string) (*repository.Requirement, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &repository.Requirement{ID: id}, nil
}

func (m *mockRequirementStore) List(ctx context.Context, costCenterID string, limit, offset int) ([]*repository.Requirement, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, costCenterID, limit, offset)
	}
	return nil, nil
}

func (m *mockRequirementStore) SoftDelete(ctx context.Context, id string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateRequirementValidation(t *testing.T) {
	svc := NewRequirementService(&mockRequirementStore{}, logger.Nop())
	ctx := context.Background()

	// Articles need a destination warehouse.
	err := svc.Create(ctx, &repository.Requirement{
		Type:         repository.RequirementArticle,
		CostCenterID: "cc-1",
		RequestedBy:  "alice",
	})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	// Services do not.
	err = svc.Create(ctx, &repository.Requirement{
		Type:         repository.RequirementService,
		CostCenterID: "cc-1",
		RequestedBy:  "alice",
	})
	require.NoError(t, err)

	err = svc.Create(ctx, &repository.Requirement{
		Type:         "FURNITURE",
		CostCenterID: "cc-1",
		RequestedBy:  "alice",
	})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	err = svc.Create(ctx, &repository.Requirement{
		Type:        repository.RequirementService,
		RequestedBy: "alice",
	})
	require.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestCreateArticleRequirementWithWarehouse(t *testing.T) {
	svc := NewRequirementService(&mockRequirementStore{}, logger.Nop())

	req := &repository.Requirement{
		Type:         repository.RequirementArticle,
		CostCenterID: "cc-1",
		WarehouseID:  strPtr("wh-central"),
		RequestedBy:  "alice",
	}
	require.NoError(t, svc.Create(context.Background(), req))
	require.Equal(t, "req-1", req.ID)
}
