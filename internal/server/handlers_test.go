package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharuka/kabuban/internal/app"
	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
	"github.com/mharuka/kabuban/internal/services/alert"
	"github.com/mharuka/kabuban/internal/services/history"
	"github.com/mharuka/kabuban/internal/services/knowledge"
	"github.com/mharuka/kabuban/internal/services/portfolio"
	tcommon "github.com/mharuka/kabuban/tests/common"
)

func newTestServer(t *testing.T) (*Server, *tcommon.MemoryStorage, *tcommon.MockSink) {
	t.Helper()

	storage := tcommon.NewMemoryStorage()
	sink := tcommon.NewMockSink()
	logger := common.NewSilentLogger()
	locks := common.NewKeyedMutex()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	alertService := alert.NewService(storage, sink, locks, logger)

	a := &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           logger,
		Storage:          storage,
		Sink:             sink,
		PortfolioService: portfolio.NewService(storage, locks, logger),
		HistoryService:   history.NewService(storage, alertService, locks, loc, logger),
		AlertService:     alertService,
		KnowledgeService: knowledge.NewService(storage, logger),
		StartupTime:      time.Now(),
	}

	return NewServer(a), storage, sink
}

func doGet(t *testing.T, srv *Server, query url.Values) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/exec?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func doPost(t *testing.T, srv *Server, payload string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/exec", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func errField(body map[string]json.RawMessage) string {
	raw, ok := body["error"]
	if !ok {
		return ""
	}
	var msg string
	json.Unmarshal(raw, &msg)
	return msg
}

func successField(t *testing.T, body map[string]json.RawMessage) bool {
	t.Helper()
	raw, ok := body["success"]
	if !ok {
		return false
	}
	var v bool
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestExec_UnknownAction(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doGet(t, srv, url.Values{"action": {"frobnicate"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unknown action", errField(body))
}

func TestExec_ActionRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doGet(t, srv, url.Values{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "action required", errField(body))
}

func TestExec_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/exec?action=list", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExec_PortfolioLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// Save
	rec, body := doPost(t, srv, `{
		"action": "save",
		"name": "growth",
		"holdings": [{"ticker": "7203.T", "shares": 100}]
	}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, successField(t, body))

	// Load
	rec, _ = doGet(t, srv, url.Values{"action": {"load"}, "name": {"growth"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	var p models.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "growth", p.Name)
	require.Len(t, p.Holdings, 1)

	// List returns names only
	rec, body = doGet(t, srv, url.Values{"action": {"list"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(body["portfolios"], &names))
	assert.Equal(t, []string{"growth"}, names)

	// Delete (twice, idempotent)
	for i := 0; i < 2; i++ {
		rec, body = doGet(t, srv, url.Values{"action": {"delete"}, "name": {"growth"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, successField(t, body))
	}

	rec, body = doGet(t, srv, url.Values{"action": {"load"}, "name": {"growth"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "portfolio not found", errField(body))
}

func TestExec_SaveAndLoadValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, body := doPost(t, srv, `{"action": "save"}`)
	assert.Equal(t, "name required", errField(body))

	_, body = doPost(t, srv, `{"action": "save", "name": "x", "holdings": [{"shares": 1}]}`)
	assert.Equal(t, "ticker required", errField(body))

	_, body = doGet(t, srv, url.Values{"action": {"load"}})
	assert.Equal(t, "name required", errField(body))
}

func TestExec_SnapshotAndHistory(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doPost(t, srv, `{"action": "save_snapshot", "name": "growth", "total_value": 1000}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, successField(t, body))
	var date string
	require.NoError(t, json.Unmarshal(body["date"], &date))
	loc, _ := time.LoadLocation("Asia/Tokyo")
	assert.Equal(t, time.Now().In(loc).Format("2006-01-02"), date)

	// Same-day save replaces
	_, body = doPost(t, srv, `{"action": "save_snapshot", "name": "growth", "total_value": 1100}`)
	assert.True(t, successField(t, body))

	rec, body = doGet(t, srv, url.Values{"action": {"history"}, "name": {"growth"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	var snapshots []models.Snapshot
	require.NoError(t, json.Unmarshal(body["history"], &snapshots))
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1100.0, snapshots[0].TotalValue)

	_, body = doPost(t, srv, `{"action": "save_snapshot", "name": "growth"}`)
	assert.Equal(t, "total_value required", errField(body))

	_, body = doPost(t, srv, `{"action": "save_snapshot", "total_value": 1}`)
	assert.Equal(t, "name required", errField(body))
}

func TestExec_SnapshotHoldingsStored(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, body := doPost(t, srv, `{
		"action": "save_snapshot",
		"name": "growth",
		"total_value": 1000,
		"holdings": [{"ticker": "7203.T", "shares": 100, "value": 1000, "weight": 100}]
	}`)
	assert.True(t, successField(t, body))

	_, body = doGet(t, srv, url.Values{"action": {"history"}, "name": {"growth"}})
	var snapshots []models.Snapshot
	require.NoError(t, json.Unmarshal(body["history"], &snapshots))
	require.Len(t, snapshots, 1)
	require.Len(t, snapshots[0].Holdings, 1)
	assert.Equal(t, "7203.T", snapshots[0].Holdings[0].Ticker)
	assert.Equal(t, 1000.0, snapshots[0].Holdings[0].Value)

	_, body = doPost(t, srv, `{"action": "save_snapshot", "name": "growth", "total_value": 1000, "holdings": {"bad": true}}`)
	assert.Contains(t, errField(body), "invalid holdings")
}

func TestExec_HistoryDaysTruncation(t *testing.T) {
	srv, storage, _ := newTestServer(t)

	for day := 1; day <= 5; day++ {
		require.NoError(t, storage.HistoryStore.Upsert(context.Background(), &models.Snapshot{
			PortfolioName: "growth",
			Date:          fmt.Sprintf("2026-08-%02d", day),
			TotalValue:    float64(day),
		}))
	}

	_, body := doGet(t, srv, url.Values{"action": {"history"}, "name": {"growth"}, "days": {"2"}})
	var snapshots []models.Snapshot
	require.NoError(t, json.Unmarshal(body["history"], &snapshots))
	require.Len(t, snapshots, 2)
	assert.Equal(t, "2026-08-04", snapshots[0].Date)
	assert.Equal(t, "2026-08-05", snapshots[1].Date)
}

func TestExec_AlertLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doGet(t, srv, url.Values{
		"action":         {"set_alert"},
		"portfolio_name": {"growth"},
		"email":          {"a@example.com"},
		"alert_type":     {"daily_change"},
		"threshold":      {"5"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, successField(t, body))

	_, body = doGet(t, srv, url.Values{"action": {"alerts"}, "portfolio_name": {"growth"}})
	var rules []models.AlertRule
	require.NoError(t, json.Unmarshal(body["alerts"], &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, models.AlertDailyChange, rules[0].Type)
	assert.Equal(t, "a@example.com", rules[0].Email)

	// All alerts when portfolio_name omitted
	_, body = doGet(t, srv, url.Values{"action": {"alerts"}})
	require.NoError(t, json.Unmarshal(body["alerts"], &rules))
	assert.Len(t, rules, 1)

	// Delete is success-idempotent
	for i := 0; i < 2; i++ {
		_, body = doGet(t, srv, url.Values{"action": {"delete_alert"}, "portfolio_name": {"growth"}, "alert_type": {"daily_change"}})
		assert.True(t, successField(t, body))
	}

	_, body = doGet(t, srv, url.Values{"action": {"alerts"}, "portfolio_name": {"growth"}})
	require.NoError(t, json.Unmarshal(body["alerts"], &rules))
	assert.Empty(t, rules)
}

func TestExec_SetAlertValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, body := doGet(t, srv, url.Values{"action": {"set_alert"}, "portfolio_name": {"g"}, "email": {"a@example.com"}, "alert_type": {"daily_change"}})
	assert.Equal(t, "threshold required", errField(body))

	_, body = doGet(t, srv, url.Values{"action": {"set_alert"}, "portfolio_name": {"g"}, "email": {"a@example.com"}, "alert_type": {"weekly"}, "threshold": {"5"}})
	assert.Contains(t, errField(body), "invalid alert type")

	_, body = doGet(t, srv, url.Values{"action": {"set_alert"}, "portfolio_name": {"g"}, "email": {"a@example.com"}, "alert_type": {"daily_change"}, "threshold": {"abc"}})
	assert.Contains(t, errField(body), "invalid threshold")

	_, body = doGet(t, srv, url.Values{"action": {"set_alert"}, "email": {"a@example.com"}, "alert_type": {"daily_change"}, "threshold": {"5"}})
	assert.Equal(t, "name required", errField(body))
}

func TestExec_SnapshotTriggersAlert(t *testing.T) {
	srv, storage, sink := newTestServer(t)

	require.NoError(t, storage.AlertStore.Upsert(context.Background(), &models.AlertRule{
		PortfolioName: "growth",
		Email:         "a@example.com",
		Type:          models.AlertValueBelow,
		Threshold:     900,
		Enabled:       true,
	}))
	require.NoError(t, storage.HistoryStore.Upsert(context.Background(), &models.Snapshot{
		PortfolioName: "growth", Date: "2000-01-01", TotalValue: 1000,
	}))

	_, body := doPost(t, srv, `{"action": "save_snapshot", "name": "growth", "total_value": 850}`)
	assert.True(t, successField(t, body))

	require.Len(t, sink.Messages(), 1)
	assert.Equal(t, "a@example.com", sink.Messages()[0].Recipient)
}

func TestExec_SendAlert(t *testing.T) {
	srv, _, sink := newTestServer(t)

	_, body := doPost(t, srv, `{"action": "send_alert", "email": "a@example.com", "subject": "s", "body": "b"}`)
	assert.True(t, successField(t, body))
	require.Len(t, sink.Messages(), 1)
	assert.Equal(t, "s", sink.Messages()[0].Subject)

	_, body = doPost(t, srv, `{"action": "send_alert", "subject": "s"}`)
	assert.Equal(t, "email required", errField(body))
}

func TestExec_KnowledgeLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, body := doPost(t, srv, `{"action": "save_knowledge", "item": {"title": "BOJ notes", "summary": "held"}}`)
	assert.True(t, successField(t, body))
	var id string
	require.NoError(t, json.Unmarshal(body["id"], &id))
	assert.NotEmpty(t, id)

	_, body = doGet(t, srv, url.Values{"action": {"get_knowledge"}})
	var items []models.KnowledgeItem
	require.NoError(t, json.Unmarshal(body["items"], &items))
	require.Len(t, items, 1)
	assert.Equal(t, "BOJ notes", items[0].Title)

	_, body = doGet(t, srv, url.Values{"action": {"delete_knowledge"}, "id": {id}})
	assert.True(t, successField(t, body))

	_, body = doGet(t, srv, url.Values{"action": {"get_knowledge"}})
	require.NoError(t, json.Unmarshal(body["items"], &items))
	assert.Empty(t, items)

	_, body = doPost(t, srv, `{"action": "save_knowledge"}`)
	assert.Equal(t, "item required", errField(body))
}

func TestExec_InvalidJSONBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doPost(t, srv, `{not json`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, errField(body), "Invalid JSON")
}

func TestHealthAndVersion(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestMiddleware_CorrelationIDAndCORS(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Provided request ID is echoed back
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Correlation-ID"))

	// OPTIONS preflight short-circuits
	req = httptest.NewRequest(http.MethodOptions, "/exec", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
