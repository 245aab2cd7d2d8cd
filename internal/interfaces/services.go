package interfaces

import (
	"context"

	"github.com/mharuka/kabuban/internal/models"
)

// PortfolioService manages portfolio definitions.
type PortfolioService interface {
	ListPortfolios(ctx context.Context) ([]models.Portfolio, error)
	GetPortfolio(ctx context.Context, name string) (*models.Portfolio, error)
	// SavePortfolio creates or fully replaces the named portfolio's
	// holdings. CreatedAt survives replacement.
	SavePortfolio(ctx context.Context, name string, holdings []models.Holding) (*models.Portfolio, error)
	// DeletePortfolio removes the portfolio. Idempotent; history and
	// alert rules for the name are left in place.
	DeletePortfolio(ctx context.Context, name string) error
}

// HistoryService records and serves portfolio valuation snapshots.
type HistoryService interface {
	// SaveSnapshot records totalValue under today's date in the
	// configured timezone, replacing any same-day row, then evaluates
	// alert rules against the updated history. Returns the date used.
	SaveSnapshot(ctx context.Context, name string, totalValue float64, holdings []models.SnapshotHolding) (string, error)
	// GetHistory returns snapshots in ascending date order. When
	// days > 0 only the most recent `days` rows are returned.
	GetHistory(ctx context.Context, name string, days int) ([]models.Snapshot, error)
}

// AlertService manages threshold alert rules and notification delivery.
type AlertService interface {
	// SetAlert creates or replaces the rule for (portfolio, type).
	SetAlert(ctx context.Context, name, email string, alertType models.AlertType, threshold float64) (*models.AlertRule, error)
	// DeleteAlert removes the matching rule(s). Idempotent.
	DeleteAlert(ctx context.Context, name string, alertType models.AlertType) error
	// GetAlerts returns rules for one portfolio, or all rules when
	// name is empty.
	GetAlerts(ctx context.Context, name string) ([]models.AlertRule, error)
	// SendNotification delivers an ad-hoc message through the sink.
	SendNotification(ctx context.Context, recipient, subject, body string) error
}

// SnapshotEvaluator checks alert rules after a snapshot is recorded.
// It is invoked by the history service on each save.
type SnapshotEvaluator interface {
	// EvaluateSnapshot inspects the named portfolio's rules against its
	// latest history and dispatches notifications for triggered rules.
	// Per-rule delivery failures are logged, not returned.
	EvaluateSnapshot(ctx context.Context, name string) error
}

// KnowledgeService manages the knowledge base.
type KnowledgeService interface {
	ListKnowledge(ctx context.Context) ([]models.KnowledgeItem, error)
	// SaveKnowledge stores the item, assigning an ID when absent.
	SaveKnowledge(ctx context.Context, item *models.KnowledgeItem) (*models.KnowledgeItem, error)
	// DeleteKnowledge removes the item by ID. Idempotent.
	DeleteKnowledge(ctx context.Context, id string) error
}
