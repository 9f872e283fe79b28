package contracts

import "time"

// PriceObservation is one adjusted daily bar for a symbol. At most one
// observation exists per (ticker, date); series handed to the factor
// engine are sorted ascending by date.
type PriceObservation struct {
	Ticker    string
	Date      time.Time
	AdjClose  float64
	Volume    float64
	HasVolume bool // false when the provider supplied no volume column
}

// TradedValue returns the observation's price-times-volume notional.
func (p PriceObservation) TradedValue() float64 {
	return p.AdjClose * p.Volume
}

// Symbol is one listed equity in the research universe.
type Symbol struct {
	Ticker   string
	Name     string
	Currency string
	Sector   string
}

// Membership is one interval of universe membership for a symbol. An open
// interval (EndDate nil) means the symbol is still a member.
type Membership struct {
	Ticker    string
	StartDate time.Time
	EndDate   *time.Time
	Source    string
}

// Active reports whether the membership interval contains asOf.
func (m Membership) Active(asOf time.Time) bool {
	if asOf.Before(m.StartDate) {
		return false
	}
	return m.EndDate == nil || !asOf.After(*m.EndDate)
}
