// Package models defines the domain types stored and served by Kabuban.
package models

import "time"

// Holding is a single position within a portfolio.
type Holding struct {
	Ticker  string   `json:"ticker"`
	Shares  float64  `json:"shares"`
	AvgCost *float64 `json:"avg_cost,omitempty"`
}

// Portfolio is the aggregate document for a named portfolio. Holdings are
// embedded so a save replaces the whole composition in one write.
type Portfolio struct {
	Name      string    `json:"name"`
	Holdings  []Holding `json:"holdings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
