package overrides

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// Result summarizes one apply pass.
type Result struct {
	Applied   int
	Skipped   []string
	Total     int
	AllowFlag bool
}

// Service gates override proposals on an explicit allow flag plus the
// configured field allow-list, audits every proposal, and writes accepted
// values into the file store.
type Service struct {
	store     contracts.Store
	policy    strategyconfig.OverridePolicy
	fileStore *FileStore
	log       *logger.Logger
}

// NewService creates an overrides service.
func NewService(store contracts.Store, policy strategyconfig.OverridePolicy, fileStore *FileStore, log *logger.Logger) *Service {
	if fileStore == nil {
		fileStore = NewFileStore("")
	}
	return &Service{store: store, policy: policy, fileStore: fileStore, log: log}
}

// Apply audits every proposal and applies the ones that are enabled,
// allow-listed and covered by the allow flag. Audit rows record whether a
// proposal was applied, never only the applied ones.
func (s *Service) Apply(ctx context.Context, run *contracts.Run, proposals []Proposal, allowOverrides bool) (*Result, error) {
	result := &Result{Total: len(proposals), AllowFlag: allowOverrides}

	err := s.store.WithTx(ctx, func(tx contracts.Store) error {
		for _, proposal := range proposals {
			shouldApply := allowOverrides && proposal.Enabled && s.policy.FieldAllowed(proposal.Field)

			audit := contracts.OverrideAudit{
				RunID:     run.ID,
				Source:    "workspace",
				Field:     proposal.Field,
				NewValue:  proposal.Value,
				Author:    proposal.Author,
				Enabled:   shouldApply,
				AppliedAt: time.Now().UTC(),
			}
			if err := tx.Audits().SaveOverride(ctx, audit); err != nil {
				return fmt.Errorf("audit override %s: %w", proposal.Field, err)
			}

			if !shouldApply {
				result.Skipped = append(result.Skipped, proposal.Field)
				continue
			}
			if err := s.fileStore.UpdateField(proposal.Field, CoerceValue(proposal.Value)); err != nil {
				return fmt.Errorf("apply override %s: %w", proposal.Field, err)
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"run_id":  run.ID,
		"applied": result.Applied,
		"skipped": len(result.Skipped),
		"allowed": allowOverrides,
	}).Info("overrides processed")
	return result, nil
}
