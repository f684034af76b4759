package service

import (
	"context"
	"sort"

	"github.com/andina-erp/be-procurement/internal/apperrors"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/repository"
)

// ApprovalResolver computes the ordered list of required signature levels for
// a document from the global flow templates and the per-entity overrides.
// Resolution is a pure read; the caller persists the result as a frozen
// snapshot at signing-phase entry.
type ApprovalResolver struct {
	configStore ApprovalConfigStore
	log         *logger.Logger
}

func NewApprovalResolver(configStore ApprovalConfigStore, log *logger.Logger) *ApprovalResolver {
	return &ApprovalResolver{configStore: configStore, log: log}
}

// Resolve returns the ordered level list for (entityType, entityID) at the
// given amount. General settings are read once so the same inputs always
// yield the same output.
func (r *ApprovalResolver) Resolve(ctx context.Context, entityType, entityID string, amountCents int64) ([]repository.SnapshotLevel, error) {
	settings, err := r.configStore.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	templates, err := r.configStore.ListActiveTemplates(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		// Fail closed: no template means no implicit zero-approval path.
		return nil, apperrors.Newf(apperrors.CodeConfigurationMissing,
			"no approval flow template for entity type %s", entityType)
	}

	overrides, err := r.configStore.ListActiveEntityConfigs(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	levels := mergeLevels(templates, overrides, amountCents, settings)

	r.log.Debug().
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Int64("amount_cents", amountCents).
		Int("levels", len(levels)).
		Msg("approval configuration resolved")

	return levels, nil
}

// levelRow is the source-independent shape of one configured level.
type levelRow struct {
	level                  int
	role                   string
	required               bool
	requiredBelowThreshold bool
}

// mergeLevels applies the precedence and threshold rules. Per-entity override
// rows win per level; the highest level is dropped for amounts at or below
// the threshold unless it is flagged as required below it.
func mergeLevels(
	templates []*repository.ApprovalFlowTemplate,
	overrides []*repository.DocumentApprovalConfig,
	amountCents int64,
	settings *repository.GeneralSettings,
) []repository.SnapshotLevel {
	byLevel := make(map[int]levelRow)
	for _, t := range templates {
		byLevel[t.Level] = levelRow{
			level:                  t.Level,
			role:                   t.RequiredRole,
			required:               t.Required,
			requiredBelowThreshold: t.RequiredBelowThreshold,
		}
	}
	for _, o := range overrides {
		byLevel[o.Level] = levelRow{
			level:                  o.Level,
			role:                   o.RequiredRole,
			required:               o.Required,
			requiredBelowThreshold: o.RequiredBelowThreshold,
		}
	}

	rows := make([]levelRow, 0, len(byLevel))
	for _, row := range byLevel {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].level < rows[j].level })

	if amountCents <= settings.LowAmountThresholdCents && len(rows) > 0 {
		last := rows[len(rows)-1]
		// Unconditionally required levels are never dropped.
		if !last.required && !last.requiredBelowThreshold {
			rows = rows[:len(rows)-1]
		}
	}

	levels := make([]repository.SnapshotLevel, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, repository.SnapshotLevel{
			Level:    row.level,
			Role:     row.role,
			Required: row.required,
		})
	}
	return levels
}
