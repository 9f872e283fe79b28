// Package portfolio turns ranked signals into a long-only, liquidity-capped
// position set.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// Builder constructs and persists rebalance positions for a run.
type Builder struct {
	store  contracts.Store
	bundle *strategyconfig.Bundle
	log    *logger.Logger
}

// NewBuilder creates a portfolio builder.
func NewBuilder(store contracts.Store, bundle *strategyconfig.Bundle, log *logger.Logger) *Builder {
	return &Builder{store: store, bundle: bundle, log: log}
}

// Build selects the top-N signals, assigns score-proportional weights
// subject to a per-position liquidity cap, renormalizes to 1.0 and
// persists the result. Negative composite scores are clamped to zero for
// the proportional split; if every selected score clamps to zero the
// weight is split equally. Renormalization after capping can push a final
// weight above the original cap when every position was capped; that is
// intentional and covered by tests. An empty signal list returns an empty
// position set without persisting anything.
func (b *Builder) Build(ctx context.Context, run *contracts.Run, rebalanceDate time.Time, signals []contracts.Signal) ([]contracts.Position, error) {
	positions := b.Construct(signals)
	if len(positions) == 0 {
		return nil, nil
	}

	err := b.store.WithTx(ctx, func(tx contracts.Store) error {
		if err := tx.Portfolios().SaveBatch(ctx, run.ID, rebalanceDate, positions); err != nil {
			return fmt.Errorf("save positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.WithFields(map[string]interface{}{
		"run_id":    run.ID,
		"rebalance": rebalanceDate.Format("2006-01-02"),
		"positions": len(positions),
	}).Info("portfolio built")
	return positions, nil
}

// Construct is the pure weighting step, without persistence.
func (b *Builder) Construct(signals []contracts.Signal) []contracts.Position {
	topN := b.bundle.Strategy.TopN
	if topN <= 0 {
		topN = 15
	}
	selected := signals
	if len(selected) > topN {
		selected = selected[:topN]
	}
	if len(selected) == 0 {
		return nil
	}

	totalScore := 0.0
	for _, sig := range selected {
		if sig.Score > 0 {
			totalScore += sig.Score
		}
	}

	positions := make([]contracts.Position, 0, len(selected))
	for _, sig := range selected {
		var provisional float64
		if totalScore == 0 {
			provisional = 1 / float64(len(selected))
		} else {
			score := sig.Score
			if score < 0 {
				score = 0
			}
			provisional = score / totalScore
		}

		cap := b.liquidityCap(sig)
		weight := provisional
		if cap < weight {
			weight = cap
		}
		positions = append(positions, contracts.Position{
			Ticker:       sig.Ticker,
			Weight:       weight,
			LiquidityCap: cap,
		})
	}

	total := contracts.TotalWeight(positions)
	if total > 0 {
		for i := range positions {
			positions[i].Weight /= total
		}
	}
	return positions
}

// liquidityCap is 0 for symbols without positive liquidity, otherwise the
// single global ceiling derived from max_weight_pct_of_adv.
func (b *Builder) liquidityCap(sig contracts.Signal) float64 {
	if sig.Liquidity <= 0 {
		return 0
	}
	return b.bundle.Strategy.LiquidityFilters.MaxWeightPctOfADV / 100
}
