package models

import "time"

// AlertType identifies the condition an alert rule watches for.
type AlertType string

const (
	// AlertDailyChange fires when the absolute day-over-day percentage
	// change meets or exceeds the threshold.
	AlertDailyChange AlertType = "daily_change"
	// AlertValueBelow fires when total value drops strictly below the threshold.
	AlertValueBelow AlertType = "value_below"
	// AlertValueAbove fires when total value rises strictly above the threshold.
	AlertValueAbove AlertType = "value_above"
)

// Valid reports whether t is a recognised alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertDailyChange, AlertValueBelow, AlertValueAbove:
		return true
	}
	return false
}

// AlertRule is a threshold rule attached to a portfolio. One rule exists
// per (portfolio, type); setting again replaces threshold and recipient.
type AlertRule struct {
	PortfolioName string     `json:"portfolio_name"`
	Email         string     `json:"email"`
	Type          AlertType  `json:"alert_type"`
	Threshold     float64    `json:"threshold"`
	Enabled       bool       `json:"enabled"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

// Notification is a rendered alert message handed to the delivery sink.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
