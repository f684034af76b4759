package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/database"
)

// ApprovalConfigRepository handles the global approval flow templates, the
// per-entity configuration overrides, and the general settings singleton.
type ApprovalConfigRepository struct {
	db *database.DB
}

func NewApprovalConfigRepository(db *database.DB) *ApprovalConfigRepository {
	return &ApprovalConfigRepository{db: db}
}

// ── Approval flow templates ──────────────────────────────────────────────────

// CreateTemplate inserts one template level.
func (r *ApprovalConfigRepository) CreateTemplate(ctx context.Context, t *ApprovalFlowTemplate) error {
	query := `
		INSERT INTO approval_flow_templates
		    (template_name, entity_type, level, required_role,
		     required, required_below_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		t.TemplateName, t.EntityType, t.Level, t.RequiredRole,
		t.Required, t.RequiredBelowThreshold, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.Newf(apperrors.CodeConflict,
			"template level %d already exists for %s", t.Level, t.EntityType)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create approval template")
	}
	return nil
}

// ListActiveTemplates returns active template rows for an entity type,
// ordered by level.
func (r *ApprovalConfigRepository) ListActiveTemplates(ctx context.Context, entityType string) ([]*ApprovalFlowTemplate, error) {
	query := `
		SELECT id, template_name, entity_type, level, required_role,
		       required, required_below_threshold, is_active, created_at, updated_at
		FROM approval_flow_templates
		WHERE entity_type = $1 AND is_active
		ORDER BY level ASC
	`
	rows, err := r.db.Query(ctx, query, entityType)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list approval templates")
	}
	defer rows.Close()

	var templates []*ApprovalFlowTemplate
	for rows.Next() {
		t := &ApprovalFlowTemplate{}
		if err := rows.Scan(&t.ID, &t.TemplateName, &t.EntityType, &t.Level, &t.RequiredRole,
			&t.Required, &t.RequiredBelowThreshold, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan approval template")
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// UpdateTemplate replaces the mutable fields of one template level.
func (r *ApprovalConfigRepository) UpdateTemplate(ctx context.Context, t *ApprovalFlowTemplate) error {
	query := `
		UPDATE approval_flow_templates
		SET template_name = $2,
		    required_role = $3,
		    required = $4,
		    required_below_threshold = $5,
		    is_active = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, t.ID, t.TemplateName, t.RequiredRole,
		t.Required, t.RequiredBelowThreshold, t.IsActive).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("approval_flow_template", t.ID)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update approval template")
	}
	return nil
}

// ── Per-entity overrides ─────────────────────────────────────────────────────

// UpsertEntityConfig creates or replaces the override for one
// (entityType, entityID, level) triple.
func (r *ApprovalConfigRepository) UpsertEntityConfig(ctx context.Context, c *DocumentApprovalConfig) error {
	query := `
		INSERT INTO document_approval_configs
		    (entity_type, entity_id, level, required_role,
		     required, required_below_threshold, is_active, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entity_type, entity_id, level) DO UPDATE
		SET required_role = EXCLUDED.required_role,
		    required = EXCLUDED.required,
		    required_below_threshold = EXCLUDED.required_below_threshold,
		    is_active = EXCLUDED.is_active,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.EntityType, c.EntityID, c.Level, c.RequiredRole,
		c.Required, c.RequiredBelowThreshold, c.IsActive, c.UpdatedBy).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to upsert approval config")
	}
	return nil
}

// ListActiveEntityConfigs returns active overrides for one entity instance,
// ordered by level.
func (r *ApprovalConfigRepository) ListActiveEntityConfigs(ctx context.Context, entityType, entityID string) ([]*DocumentApprovalConfig, error) {
	query := `
		SELECT id, entity_type, entity_id, level, required_role,
		       required, required_below_threshold, is_active, updated_by, created_at, updated_at
		FROM document_approval_configs
		WHERE entity_type = $1 AND entity_id = $2 AND is_active
		ORDER BY level ASC
	`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list approval configs")
	}
	defer rows.Close()

	var configs []*DocumentApprovalConfig
	for rows.Next() {
		c := &DocumentApprovalConfig{}
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.Level, &c.RequiredRole,
			&c.Required, &c.RequiredBelowThreshold, &c.IsActive, &c.UpdatedBy,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan approval config")
		}
		configs = append(configs, c)
	}
	return configs, nil
}

// ── General settings ─────────────────────────────────────────────────────────

// GetSettings reads the singleton settings row.
func (r *ApprovalConfigRepository) GetSettings(ctx context.Context) (*GeneralSettings, error) {
	query := `
		SELECT low_amount_threshold_cents, general_tax_rate, updated_at
		FROM general_settings
		WHERE id = TRUE
	`
	s := &GeneralSettings{}
	err := r.db.QueryRow(ctx, query).
		Scan(&s.LowAmountThresholdCents, &s.GeneralTaxRate, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeConfigurationMissing, "general settings not seeded")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get general settings")
	}
	return s, nil
}

// UpdateSettings replaces the singleton values.
func (r *ApprovalConfigRepository) UpdateSettings(ctx context.Context, s *GeneralSettings) error {
	query := `
		UPDATE general_settings
		SET low_amount_threshold_cents = $1,
		    general_tax_rate = $2,
		    updated_at = NOW()
		WHERE id = TRUE
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, s.LowAmountThresholdCents, s.GeneralTaxRate).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.CodeConfigurationMissing, "general settings not seeded")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to update general settings")
	}
	return nil
}
