package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// RunRepository implements contracts.RunRepository.
type RunRepository struct {
	q database.Querier
}

// NewRunID generates a unique run ID.
func NewRunID() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102_150405"), hex.EncodeToString(suffix))
}

// Create inserts a run row. The ID is generated when empty.
func (r *RunRepository) Create(ctx context.Context, run *contracts.Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Stage == "" {
		run.Stage = contracts.StageInitialized
	}
	run.CreatedAt = time.Now().UTC()

	params, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}

	query := `
		INSERT INTO runs (run_id, as_of_date, rebalance_date, created_at, stage, params_json, survivorship_flag, config_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.q.Exec(ctx, query,
		run.ID, run.AsOfDate, run.RebalanceDate, run.CreatedAt,
		run.Stage, params, run.SurvivorshipFlag, run.ConfigHash,
	)
	return err
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*contracts.Run, error) {
	query := `
		SELECT run_id, as_of_date, rebalance_date, created_at, stage, params_json, survivorship_flag, COALESCE(config_hash, '')
		FROM runs
		WHERE run_id = $1
	`

	var run contracts.Run
	var params []byte
	err := r.q.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.AsOfDate, &run.RebalanceDate, &run.CreatedAt,
		&run.Stage, &params, &run.SurvivorshipFlag, &run.ConfigHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return nil, fmt.Errorf("unmarshal run params: %w", err)
		}
	}
	return &run, nil
}

// UpdateStage advances the run's progress label.
func (r *RunRepository) UpdateStage(ctx context.Context, id, stage string) error {
	tag, err := r.q.Exec(ctx, `UPDATE runs SET stage = $2 WHERE run_id = $1`, id, stage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", contracts.ErrRunNotFound, id)
	}
	return nil
}

// SetSurvivorship flags the run as survivorship biased.
func (r *RunRepository) SetSurvivorship(ctx context.Context, id string, flag bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE runs SET survivorship_flag = $2 WHERE run_id = $1`, id, flag)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", contracts.ErrRunNotFound, id)
	}
	return nil
}

func marshalParams(params map[string]any) ([]byte, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
