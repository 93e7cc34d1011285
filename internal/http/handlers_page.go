package http

import (
	"log/slog"
	"net/http"

	"chipdash/internal/appstate"
	"chipdash/internal/core"
)

// indexData drives the page shell: tab selection plus everything the
// initially visible tab needs.
type indexData struct {
	ActiveTab string
	Tabs      []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		ActiveTab: s.uiState.ActiveTab(),
		Tabs: []string{
			appstate.TabForm,
			appstate.TabLedger,
			appstate.TabStores,
			appstate.TabDashboard,
		},
	}
	s.render(w, r, "index.html", data)
}

// handleTabChange persists the active tab. Unknown tabs 400 without
// touching the stored state.
func (s *Server) handleTabChange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid request").Write(w)
		return
	}
	tab := sanitizeInput(r.Form.Get("tab"))
	if err := s.uiState.SetActiveTab(tab); err != nil {
		ErrorResponse(http.StatusBadRequest, "unknown tab").Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// render executes one of the embedded templates, logging failures and
// falling back to a bare 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template render failed",
			"template", name, "error", err)
	}
}

// storeOptions loads the store picker list. A storage failure degrades
// to an empty list so the page still renders.
func (s *Server) storeOptions(r *http.Request) []core.Store {
	stores, err := s.sales.ListStores(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list stores for picker", "error", err)
		return nil
	}
	return stores
}
