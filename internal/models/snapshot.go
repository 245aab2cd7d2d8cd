package models

// SnapshotHolding is a per-ticker valuation captured inside a snapshot.
type SnapshotHolding struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Snapshot is one recorded valuation of a portfolio for a calendar date.
// Date is the day string "2006-01-02" in the configured process timezone;
// at most one snapshot exists per (portfolio, date).
type Snapshot struct {
	PortfolioName string            `json:"portfolio_name"`
	Date          string            `json:"date"`
	TotalValue    float64           `json:"total_value"`
	Holdings      []SnapshotHolding `json:"holdings,omitempty"`
}
