package store

import (
	"context"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// AuditRepository implements contracts.AuditRepository.
type AuditRepository struct {
	q database.Querier
}

func (r *AuditRepository) SaveOverride(ctx context.Context, audit contracts.OverrideAudit) error {
	query := `
		INSERT INTO override_audit (run_id, source, field, old_value, new_value, author, enabled, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.Exec(ctx, query,
		audit.RunID, audit.Source, audit.Field, audit.OldValue, audit.NewValue,
		audit.Author, audit.Enabled, audit.AppliedAt)
	return err
}

func (r *AuditRepository) SaveProviderLog(ctx context.Context, log contracts.ProviderLog) error {
	query := `
		INSERT INTO provider_logs (run_id, provider, endpoint, params_hash, response_hash, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.Exec(ctx, query,
		log.RunID, log.Provider, log.Endpoint, log.ParamsHash, log.ResponseHash, log.FetchedAt)
	return err
}
