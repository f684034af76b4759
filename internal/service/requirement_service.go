package service

import (
	"context"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
)

// RequirementStore is the persistence surface for requirement intake.
type RequirementStore interface {
	Create(ctx context.Context, req *repository.Requirement) error
	GetByID(ctx context.Context, id string) (*repository.Requirement, error)
	List(ctx context.Context, costCenterID string, limit, offset int) ([]*repository.Requirement, error)
	SoftDelete(ctx context.Context, id string) error
}

// RequirementService handles requirement intake ahead of the quotation
// workflow.
type RequirementService struct {
	requirements RequirementStore
	log          *logger.Logger
}

func NewRequirementService(requirements RequirementStore, log *logger.Logger) *RequirementService {
	return &RequirementService{requirements: requirements, log: log}
}

// Create validates and stores a new requirement.
func (s *RequirementService) Create(ctx context.Context, req *repository.Requirement) error {
	switch req.Type {
	case repository.RequirementArticle:
		if req.WarehouseID == nil || *req.WarehouseID == "" {
			return apperrors.InvalidInput("warehouse_id", "destination warehouse is required for articles")
		}
	case repository.RequirementService:
	default:
		return apperrors.InvalidInput("type", "must be ARTICLE or SERVICE")
	}
	if req.CostCenterID == "" {
		return apperrors.InvalidInput("cost_center_id", "cost center is required")
	}
	if req.RequestedBy == "" {
		return apperrors.InvalidInput("requested_by", "requester is required")
	}

	if err := s.requirements.Create(ctx, req); err != nil {
		return err
	}
	s.log.Info().
		Str("requirement_id", req.ID).
		Str("type", string(req.Type)).
		Msg("requirement created")
	return nil
}

// Get returns one requirement.
func (s *RequirementService) Get(ctx context.Context, id string) (*repository.Requirement, error) {
	return s.requirements.GetByID(ctx, id)
}

// List returns requirements for a cost center.
func (s *RequirementService) List(ctx context.Context, costCenterID string, limit, offset int) ([]*repository.Requirement, error) {
	return s.requirements.List(ctx, costCenterID, limit, offset)
}

// Delete soft-deletes a requirement that has not been quoted yet.
func (s *RequirementService) Delete(ctx context.Context, id string) error {
	return s.requirements.SoftDelete(ctx, id)
}
