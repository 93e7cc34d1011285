package http

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"chipdash/internal/core"
	"chipdash/internal/services"
)

// dashboardFromRequest reads the dashboard filter state: store, period
// range (calendar year to date by default), top-N and the empty-key
// toggle.
func dashboardFromRequest(r *http.Request) services.DashboardQuery {
	sq := salesQueryFromRequest(r, 0)
	return services.DashboardQuery{
		StoreID:      sq.StoreID,
		Start:        sq.Start,
		End:          sq.End,
		TopN:         formInt(r.URL.Query().Get("top"), core.DefaultTopN),
		IncludeEmpty: r.URL.Query().Get("include_empty") == "1",
	}
}

// dashboardData feeds the dashboard partial.
type dashboardData struct {
	Query    services.DashboardQuery
	Data     services.DashboardData
	Stores   []core.Store
	Failed   bool
	DataJSON template.JS
}

func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	q := dashboardFromRequest(r)

	data, err := s.dashboard.Compute(r.Context(), q)
	failed := err != nil
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard compute failed", "error", err)
	}

	// The chart script reads its input from an embedded JSON blob.
	blob, _ := json.Marshal(data)

	s.render(w, r, "dashboard.html", dashboardData{
		Query:    q,
		Data:     data,
		Stores:   s.storeOptions(r),
		Failed:   failed,
		DataJSON: template.JS(blob),
	})
}

// handleAPIDashboard returns every aggregate in one payload so a single
// fetch snapshots the whole dashboard.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	q := dashboardFromRequest(r)

	data, err := s.dashboard.Compute(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard compute failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"dashboard": data,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
