package http

import (
	"log/slog"
	"net/http"

	"chipdash/internal/core"
)

// handleAPIStores lists stores as JSON. Failure keeps the uniform
// shape with an empty list so clients render a degraded picker.
func (s *Server) handleAPIStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.sales.ListStores(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list stores", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     false,
			"error":  err.Error(),
			"stores": []core.Store{},
		})
		return
	}
	if stores == nil {
		stores = []core.Store{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"stores": stores,
	})
}

// handleAPIRows lists filtered sale rows as JSON.
func (s *Server) handleAPIRows(w http.ResponseWriter, r *http.Request) {
	q := salesQueryFromRequest(r, s.cfg.LedgerFetchLimit)

	rows, err := s.sales.ListSales(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list sales", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    false,
			"error": err.Error(),
			"rows":  []core.Sale{},
		})
		return
	}
	if rows == nil {
		rows = []core.Sale{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"rows": rows,
	})
}
