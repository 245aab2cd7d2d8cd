package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
)

// execRequest is the union of all action channel parameters. GET requests
// carry them as query parameters, POST requests as a JSON body. Holdings
// stays raw because its element shape depends on the action: portfolio
// holdings for save, valued snapshot holdings for save_snapshot.
type execRequest struct {
	Action        string                `json:"action"`
	Name          string                `json:"name"`
	PortfolioName string                `json:"portfolio_name"`
	Email         string                `json:"email"`
	AlertType     string                `json:"alert_type"`
	Threshold     *float64              `json:"threshold,omitempty"`
	TotalValue    *float64              `json:"total_value,omitempty"`
	Days          int                   `json:"days,omitempty"`
	Subject       string                `json:"subject,omitempty"`
	Body          string                `json:"body,omitempty"`
	Holdings      json.RawMessage       `json:"holdings,omitempty"`
	ID            string                `json:"id,omitempty"`
	Item          *models.KnowledgeItem `json:"item,omitempty"`
}

// successResponse is the standard success envelope for write actions.
type successResponse struct {
	Success bool   `json:"success"`
	Name    string `json:"name,omitempty"`
	Date    string `json:"date,omitempty"`
	ID      string `json:"id,omitempty"`
}

// handleExec is the single action-discriminated endpoint. Domain errors are
// reported in-band at HTTP 200; only transport-level problems get non-200.
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var req execRequest
	switch r.Method {
	case http.MethodGet:
		if !parseExecQuery(w, r, &req) {
			return
		}
	case http.MethodPost:
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	if req.Action == "" {
		WriteActionError(w, "action required")
		return
	}

	ctx := r.Context()

	switch req.Action {
	case "list":
		portfolios, err := s.app.PortfolioService.ListPortfolios(ctx)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		names := make([]string, 0, len(portfolios))
		for _, p := range portfolios {
			names = append(names, p.Name)
		}
		WriteJSON(w, http.StatusOK, map[string]any{"portfolios": names})

	case "load":
		if req.Name == "" {
			WriteActionError(w, "name required")
			return
		}
		p, err := s.app.PortfolioService.GetPortfolio(ctx, req.Name)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				WriteActionError(w, "portfolio not found")
				return
			}
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, p)

	case "save":
		var holdings []models.Holding
		if len(req.Holdings) > 0 {
			if err := json.Unmarshal(req.Holdings, &holdings); err != nil {
				WriteActionError(w, "invalid holdings: "+err.Error())
				return
			}
		}
		p, err := s.app.PortfolioService.SavePortfolio(ctx, req.Name, holdings)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true, Name: p.Name})

	case "delete":
		if err := s.app.PortfolioService.DeletePortfolio(ctx, req.Name); err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true})

	case "save_snapshot":
		if req.TotalValue == nil {
			WriteActionError(w, "total_value required")
			return
		}
		var holdings []models.SnapshotHolding
		if len(req.Holdings) > 0 {
			if err := json.Unmarshal(req.Holdings, &holdings); err != nil {
				WriteActionError(w, "invalid holdings: "+err.Error())
				return
			}
		}
		date, err := s.app.HistoryService.SaveSnapshot(ctx, req.Name, *req.TotalValue, holdings)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true, Date: date})

	case "history":
		snapshots, err := s.app.HistoryService.GetHistory(ctx, req.Name, req.Days)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		if snapshots == nil {
			snapshots = []models.Snapshot{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"history": snapshots})

	case "set_alert":
		if req.Threshold == nil {
			WriteActionError(w, "threshold required")
			return
		}
		_, err := s.app.AlertService.SetAlert(ctx, req.PortfolioName, req.Email, models.AlertType(req.AlertType), *req.Threshold)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true})

	case "delete_alert":
		if err := s.app.AlertService.DeleteAlert(ctx, req.PortfolioName, models.AlertType(req.AlertType)); err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true})

	case "alerts":
		rules, err := s.app.AlertService.GetAlerts(ctx, req.PortfolioName)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		if rules == nil {
			rules = []models.AlertRule{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"alerts": rules})

	case "send_alert":
		if err := s.app.AlertService.SendNotification(ctx, req.Email, req.Subject, req.Body); err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true})

	case "get_knowledge":
		items, err := s.app.KnowledgeService.ListKnowledge(ctx)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		if items == nil {
			items = []models.KnowledgeItem{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items})

	case "save_knowledge":
		if req.Item == nil {
			WriteActionError(w, "item required")
			return
		}
		item, err := s.app.KnowledgeService.SaveKnowledge(ctx, req.Item)
		if err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true, ID: item.ID})

	case "delete_knowledge":
		if err := s.app.KnowledgeService.DeleteKnowledge(ctx, req.ID); err != nil {
			WriteActionError(w, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, successResponse{Success: true})

	default:
		WriteActionError(w, "Unknown action")
	}
}

// parseExecQuery fills req from GET query parameters.
func parseExecQuery(w http.ResponseWriter, r *http.Request, req *execRequest) bool {
	q := r.URL.Query()
	req.Action = q.Get("action")
	req.Name = q.Get("name")
	req.PortfolioName = q.Get("portfolio_name")
	req.Email = q.Get("email")
	req.AlertType = q.Get("alert_type")
	req.Subject = q.Get("subject")
	req.Body = q.Get("body")
	req.ID = q.Get("id")

	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteActionError(w, "invalid threshold: "+v)
			return false
		}
		req.Threshold = &f
	}
	if v := q.Get("total_value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteActionError(w, "invalid total_value: "+v)
			return false
		}
		req.TotalValue = &f
	}
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteActionError(w, "invalid days: "+v)
			return false
		}
		req.Days = n
	}
	return true
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion reports build information.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
