// Package alert provides threshold alert rules and snapshot evaluation
package alert

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
	"github.com/mharuka/kabuban/internal/models"
)

// Compile-time interface checks
var (
	_ interfaces.AlertService      = (*Service)(nil)
	_ interfaces.SnapshotEvaluator = (*Service)(nil)
)

// Service implements AlertService and SnapshotEvaluator
type Service struct {
	storage interfaces.StorageManager
	sink    interfaces.NotificationSink
	locks   *common.KeyedMutex
	logger  *common.Logger
}

// NewService creates a new alert service
func NewService(storage interfaces.StorageManager, sink interfaces.NotificationSink, locks *common.KeyedMutex, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		sink:    sink,
		locks:   locks,
		logger:  logger,
	}
}

// SetAlert creates or replaces the rule for (portfolio, type). A new rule
// starts enabled with no trigger history.
func (s *Service) SetAlert(ctx context.Context, name, email string, alertType models.AlertType, threshold float64) (*models.AlertRule, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if email == "" {
		return nil, fmt.Errorf("email required")
	}
	if !alertType.Valid() {
		return nil, fmt.Errorf("invalid alert type: %s", alertType)
	}

	rule := &models.AlertRule{
		PortfolioName: name,
		Email:         email,
		Type:          alertType,
		Threshold:     threshold,
		Enabled:       true,
	}

	if err := s.storage.Alerts().Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to set alert: %w", err)
	}

	s.logger.Info().
		Str("portfolio", name).
		Str("type", string(alertType)).
		Float64("threshold", threshold).
		Msg("Alert rule set")

	return rule, nil
}

// DeleteAlert removes the matching rule(s). Success-idempotent: deleting
// a rule that does not exist, or passing an unrecognised type, still
// succeeds. Callers treat delete as "ensure absent".
func (s *Service) DeleteAlert(ctx context.Context, name string, alertType models.AlertType) error {
	if name == "" {
		return fmt.Errorf("name required")
	}

	count, err := s.storage.Alerts().DeleteMatching(ctx, name, alertType)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	s.logger.Info().
		Str("portfolio", name).
		Str("type", string(alertType)).
		Int("removed", count).
		Msg("Alert rule deleted")

	return nil
}

// GetAlerts returns rules for one portfolio, or all rules when name is empty.
func (s *Service) GetAlerts(ctx context.Context, name string) ([]models.AlertRule, error) {
	var (
		rules []models.AlertRule
		err   error
	)
	if name == "" {
		rules, err = s.storage.Alerts().Scan(ctx)
	} else {
		rules, err = s.storage.Alerts().ScanByPortfolio(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].PortfolioName != rules[j].PortfolioName {
			return rules[i].PortfolioName < rules[j].PortfolioName
		}
		return rules[i].Type < rules[j].Type
	})
	return rules, nil
}

// SendNotification delivers an ad-hoc message through the sink.
func (s *Service) SendNotification(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("email required")
	}
	if err := s.sink.Send(ctx, recipient, subject, body); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// EvaluateSnapshot checks the portfolio's rules against its latest history
// and dispatches notifications for triggered rules. Evaluation needs at
// least two recorded snapshots; with fewer, no rule of any type fires.
// Per-rule dispatch failures are logged and do not affect other rules;
// last_triggered is only advanced after a successful send.
func (s *Service) EvaluateSnapshot(ctx context.Context, name string) error {
	unlock := s.locks.RLock(name)
	snapshots, err := s.storage.History().ScanByPortfolio(ctx, name)
	if err != nil {
		unlock()
		return fmt.Errorf("failed to load history: %w", err)
	}
	rules, err := s.storage.Alerts().ScanByPortfolio(ctx, name)
	unlock()
	if err != nil {
		return fmt.Errorf("failed to load alert rules: %w", err)
	}

	if len(snapshots) < 2 {
		s.logger.Debug().
			Str("portfolio", name).
			Int("snapshots", len(snapshots)).
			Msg("Not enough history to evaluate alerts")
		return nil
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Date < snapshots[j].Date
	})
	current := snapshots[len(snapshots)-1]
	previous := snapshots[len(snapshots)-2]

	changePct := 0.0
	if previous.TotalValue != 0 {
		changePct = (current.TotalValue - previous.TotalValue) / previous.TotalValue * 100
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		triggered := false
		switch rule.Type {
		case models.AlertDailyChange:
			// A zero previous value makes the percentage undefined; skip.
			triggered = previous.TotalValue != 0 && math.Abs(changePct) >= rule.Threshold
		case models.AlertValueBelow:
			triggered = current.TotalValue < rule.Threshold
		case models.AlertValueAbove:
			triggered = current.TotalValue > rule.Threshold
		}
		if !triggered {
			continue
		}

		subject, body := renderNotification(name, rule, current, previous, changePct)
		if err := s.sink.Send(ctx, rule.Email, subject, body); err != nil {
			s.logger.Error().
				Err(err).
				Str("portfolio", name).
				Str("type", string(rule.Type)).
				Str("recipient", rule.Email).
				Msg("Failed to send alert notification")
			continue
		}

		now := time.Now().UTC()
		rule.LastTriggered = &now
		if err := s.storage.Alerts().SetLastTriggered(ctx, &rule); err != nil {
			s.logger.Warn().
				Err(err).
				Str("portfolio", name).
				Str("type", string(rule.Type)).
				Msg("Failed to record last_triggered")
		}

		s.logger.Info().
			Str("portfolio", name).
			Str("type", string(rule.Type)).
			Float64("threshold", rule.Threshold).
			Float64("total_value", current.TotalValue).
			Float64("change_pct", changePct).
			Msg("Alert triggered")
	}

	return nil
}

func renderNotification(name string, rule models.AlertRule, current, previous models.Snapshot, changePct float64) (string, string) {
	var subject, detail string
	switch rule.Type {
	case models.AlertDailyChange:
		subject = fmt.Sprintf("[Kabuban] %s moved %.2f%% in a day", name, changePct)
		detail = fmt.Sprintf("Daily change of %.2f%% crossed your %.2f%% threshold.", changePct, rule.Threshold)
	case models.AlertValueBelow:
		subject = fmt.Sprintf("[Kabuban] %s dropped below %.2f", name, rule.Threshold)
		detail = fmt.Sprintf("Total value %.2f is below your %.2f threshold.", current.TotalValue, rule.Threshold)
	case models.AlertValueAbove:
		subject = fmt.Sprintf("[Kabuban] %s rose above %.2f", name, rule.Threshold)
		detail = fmt.Sprintf("Total value %.2f is above your %.2f threshold.", current.TotalValue, rule.Threshold)
	}

	body := fmt.Sprintf(
		"Portfolio: %s\nDate: %s\nTotal value: %.2f\nPrevious value: %.2f (%s)\nChange: %.2f%%\n\n%s\n",
		name, current.Date, current.TotalValue, previous.TotalValue, previous.Date, changePct, detail,
	)
	return subject, body
}
