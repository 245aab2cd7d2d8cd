package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
)

// AlertStore persists threshold rules. The record ID combines portfolio
// name and alert type, enforcing one rule per (portfolio, type).
type AlertStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewAlertStore(db *surrealdb.DB, logger *common.Logger) *AlertStore {
	return &AlertStore{
		db:     db,
		logger: logger,
	}
}

func ruleID(name string, alertType models.AlertType) string {
	return name + "_" + string(alertType)
}

func (s *AlertStore) Scan(ctx context.Context) ([]models.AlertRule, error) {
	sql := "SELECT * FROM alert"

	results, err := surrealdb.Query[[]models.AlertRule](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert rules: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

func (s *AlertStore) ScanByPortfolio(ctx context.Context, name string) ([]models.AlertRule, error) {
	sql := "SELECT * FROM alert WHERE portfolio_name = $name"
	vars := map[string]any{"name": name}

	results, err := surrealdb.Query[[]models.AlertRule](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert rules: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

func (s *AlertStore) Upsert(ctx context.Context, r *models.AlertRule) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("alert", ruleID(r.PortfolioName, r.Type)),
		"record": r,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.AlertRule](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert alert rule after retries: %w", lastErr)
}

// DeleteMatching removes by predicate rather than record ID so stray
// duplicate rows from older data are cleaned up in the same pass.
func (s *AlertStore) DeleteMatching(ctx context.Context, name string, alertType models.AlertType) (int, error) {
	sql := "DELETE alert WHERE portfolio_name = $name AND alert_type = $type RETURN BEFORE"
	vars := map[string]any{
		"name": name,
		"type": string(alertType),
	}

	results, err := surrealdb.Query[[]models.AlertRule](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to delete alert rules: %w", err)
	}

	count := 0
	if results != nil && len(*results) > 0 {
		count = len((*results)[0].Result)
	}
	return count, nil
}

func (s *AlertStore) SetLastTriggered(ctx context.Context, r *models.AlertRule) error {
	sql := "UPDATE $rid SET last_triggered = $when"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("alert", ruleID(r.PortfolioName, r.Type)),
		"when": r.LastTriggered,
	}

	if _, err := surrealdb.Query[[]models.AlertRule](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update last_triggered: %w", err)
	}
	return nil
}
