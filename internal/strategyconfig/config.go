package strategyconfig

// Bundle is the full YAML configuration consumed by the pipeline.
type Bundle struct {
	Provider  Provider  `yaml:"provider" json:"provider"`
	Strategy  Strategy  `yaml:"strategy" json:"strategy"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Workspace Workspace `yaml:"workspace" json:"workspace"`
}

// Provider selects and tunes the market data source.
type Provider struct {
	ID      string `yaml:"id" json:"id"` // "yahoo" or "bolsa"
	Retries int    `yaml:"retries" json:"retries"`
	Timeout int    `yaml:"timeout" json:"timeout"` // seconds
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// Strategy holds factor weights and the filters applied downstream.
type Strategy struct {
	Name             string             `yaml:"name" json:"name"`
	RebalanceCadence string             `yaml:"rebalance_cadence" json:"rebalance_cadence"`
	FactorWeights    map[string]float64 `yaml:"factor_weights" json:"factor_weights"`
	LiquidityFilters LiquidityFilters   `yaml:"liquidity_filters" json:"liquidity_filters"`
	ExecutionTiming  ExecutionTiming    `yaml:"execution_timing" json:"execution_timing"`
	TopN             int                `yaml:"top_n" json:"top_n"`
}

// LiquidityFilters gate symbols on traded value and cap position sizes.
type LiquidityFilters struct {
	MedianTradedValueCLP float64 `yaml:"median_traded_value_clp" json:"median_traded_value_clp"`
	LookbackDays         int     `yaml:"lookback_days" json:"lookback_days"`
	MaxWeightPctOfADV    float64 `yaml:"max_weight_pct_of_adv" json:"max_weight_pct_of_adv"`
}

// ExecutionTiming models the t/t+1 execution lag and trading costs.
type ExecutionTiming struct {
	SignalTime         string  `yaml:"signal_time" json:"signal_time"`
	ExecutionTime      string  `yaml:"execution_time" json:"execution_time"`
	TransactionCostBps float64 `yaml:"transaction_cost_bps" json:"transaction_cost_bps"`
	SlippageBps        float64 `yaml:"slippage_bps" json:"slippage_bps"`
}

// Universe is the statically configured stock universe. The membership
// table refines it with historical intervals; this list is the
// survivorship fallback.
type Universe struct {
	Name         string          `yaml:"name" json:"name"`
	Description  string          `yaml:"description" json:"description"`
	Constituents []UniverseEntry `yaml:"constituents" json:"constituents"`
}

// UniverseEntry is one configured constituent.
type UniverseEntry struct {
	Ticker   string `yaml:"ticker" json:"ticker"`
	Name     string `yaml:"name" json:"name"`
	Currency string `yaml:"currency" json:"currency"`
	Sector   string `yaml:"sector" json:"sector"`
	Notes    string `yaml:"notes" json:"notes"`
}

// Workspace maps pipeline artifacts to document-workspace databases and
// configures which strategy fields manual overrides may touch.
type Workspace struct {
	Databases WorkspaceDatabases `yaml:"databases" json:"databases"`
	Overrides OverridePolicy     `yaml:"overrides" json:"overrides"`
}

// WorkspaceDatabases holds the workspace database identifiers.
type WorkspaceDatabases struct {
	Universe       string `yaml:"universe" json:"universe"`
	Runs           string `yaml:"runs" json:"runs"`
	Signals        string `yaml:"signals" json:"signals"`
	PortfolioState string `yaml:"portfolio_state" json:"portfolio_state"`
	Backtests      string `yaml:"backtests" json:"backtests"`
	Overrides      string `yaml:"overrides" json:"overrides"`
}

// OverridePolicy gates which fields manual overrides may modify.
type OverridePolicy struct {
	AllowedFields   []string `yaml:"allowed_fields" json:"allowed_fields"`
	FieldProperty   string   `yaml:"field_property" json:"field_property"`
	ValueProperty   string   `yaml:"value_property" json:"value_property"`
	EnabledProperty string   `yaml:"enabled_property" json:"enabled_property"`
	AuthorProperty  string   `yaml:"author_property" json:"author_property"`
}

// FieldAllowed reports whether an override may touch the given field path.
func (p OverridePolicy) FieldAllowed(field string) bool {
	for _, allowed := range p.AllowedFields {
		if allowed == field {
			return true
		}
	}
	return false
}

// Default returns the built-in strategy parameters used when no YAML file
// overrides them.
func Default() Bundle {
	return Bundle{
		Provider: Provider{
			ID:      "yahoo",
			Retries: 3,
			Timeout: 30,
		},
		Strategy: Strategy{
			Name:             "default",
			RebalanceCadence: "monthly",
			FactorWeights: map[string]float64{
				"momentum_12_1": 0.4,
				"momentum_6_1":  0.4,
				"realized_vol":  -0.2,
			},
			LiquidityFilters: LiquidityFilters{
				MedianTradedValueCLP: 20_000_000,
				LookbackDays:         90,
				MaxWeightPctOfADV:    5,
			},
			ExecutionTiming: ExecutionTiming{
				SignalTime:         "month_end_close",
				ExecutionTime:      "next_open",
				TransactionCostBps: 20,
				SlippageBps:        5,
			},
			TopN: 15,
		},
	}
}
