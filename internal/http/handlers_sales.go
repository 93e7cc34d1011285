package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"chipdash/internal/core"
	"chipdash/internal/storage"
	"chipdash/internal/view"
)

// saleFormData feeds the entry form partial.
type saleFormData struct {
	Form          view.FormState
	ChipTypes     []string
	SizeClasses   []core.SizeClass
	Options       storeOptionsData
	StoreRequired bool
}

func (s *Server) handleSaleForm(w http.ResponseWriter, r *http.Request) {
	form := view.NewFormState()

	// The partial re-renders on two occasions, both carrying the form
	// fields in the query: a size-class change keeps everything typed,
	// a reset after a successful submit keeps only the sticky fields
	// (chip type, size class, store). Digits always derive from the
	// size class here, so a manual override resets on both paths.
	q := r.URL.Query()
	if v := q.Get("chip_type"); v != "" {
		form.ChipType = sanitizeInput(v)
	}
	if id, err := strconv.ParseInt(q.Get("store_id"), 10, 64); err == nil {
		form.StoreID = id
	}
	if q.Get("reset") != "1" {
		form.ChipNumber = sanitizeInput(q.Get("chip_number"))
		form.PriceTotal = sanitizeInput(q.Get("price_total"))
		form.ManualMonth = sanitizeInput(q.Get("manual_month"))
		form.Note = sanitizeInput(q.Get("note"))
	}
	if c := core.SizeClass(q.Get("size_cls")); c != "" {
		form = form.SizeClassChanged(c)
	}

	s.render(w, r, "sale_form.html", saleFormData{
		Form:        form,
		ChipTypes:   core.ChipTypes,
		SizeClasses: []core.SizeClass{core.SizeS, core.SizeM, core.SizeL},
		Options: storeOptionsData{
			Stores:        s.storeOptions(r),
			Selected:      form.StoreID,
			StoreRequired: s.cfg.StoreRequired,
		},
		StoreRequired: s.cfg.StoreRequired,
	})
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		ErrorResponse(http.StatusBadRequest, "invalid request body").Write(w)
		return
	}

	sale := saleFromForm(r)
	saved, err := s.sales.CreateSale(r.Context(), sale)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save sale",
			"error", err,
			"chip_type", sale.ChipType,
			"price_total", sale.PriceTotal,
			"store_id", sale.StoreID)
		ErrorResponse(saleErrorStatus(err), "保存に失敗しました: "+err.Error()).Write(w)
		return
	}

	s.dashboard.Invalidate()
	slog.InfoContext(r.Context(), "Sale created",
		"id", saved.ID,
		"chip_type", saved.ChipType,
		"price_total", saved.PriceTotal,
		"store_id", saved.StoreID)

	msg := fmt.Sprintf("登録しました: %s %s",
		template.HTMLEscapeString(saved.ChipType), formatYen(saved.PriceTotal))
	NewHTMXResponse().
		TriggerSaleCreated(saved.ID).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}

// ledgerData feeds the ledger table partial.
type ledgerData struct {
	Rows    []core.Sale
	Stores  []core.Store
	StoreID int64
	Start   core.Period
	End     core.Period
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := salesQueryFromRequest(r, s.cfg.LedgerFetchLimit)

	rows, err := s.sales.ListSales(r.Context(), q)
	if err != nil {
		// Degraded mode: the table renders empty, no error banner.
		slog.ErrorContext(r.Context(), "Failed to list sales", "error", err)
		rows = nil
	}

	s.render(w, r, "ledger.html", ledgerData{
		Rows:    rows,
		Stores:  s.storeOptions(r),
		StoreID: q.StoreID,
		Start:   q.Start,
		End:     q.End,
	})
}

// ledgerRowData feeds one row, viewing or editing.
type ledgerRowData struct {
	State       view.RowState
	ChipTypes   []string
	SizeClasses []core.SizeClass
	Stores      []core.Store
}

func (s *Server) handleLedgerRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid sale id").Write(w)
		return
	}
	sale, err := s.sales.GetSale(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if storage.IsNotFound(err) {
			status = http.StatusNotFound
		}
		ErrorResponse(status, "sale not found").Write(w)
		return
	}
	s.render(w, r, "ledger_row.html", ledgerRowData{State: view.NewRowState(sale)})
}

func (s *Server) handleLedgerEditRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid sale id").Write(w)
		return
	}
	sale, err := s.sales.GetSale(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if storage.IsNotFound(err) {
			status = http.StatusNotFound
		}
		ErrorResponse(status, "sale not found").Write(w)
		return
	}

	s.render(w, r, "ledger_row_edit.html", ledgerRowData{
		State:       view.NewRowState(sale).StartEdit(),
		ChipTypes:   core.ChipTypes,
		SizeClasses: []core.SizeClass{core.SizeS, core.SizeM, core.SizeL},
		Stores:      s.storeOptions(r),
	})
}

func (s *Server) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid sale id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid request body").Write(w)
		return
	}

	patch := saleFromForm(r)
	saved, err := s.sales.UpdateSale(r.Context(), id, patch)
	if err != nil {
		if storage.IsNotFound(err) {
			ErrorResponse(http.StatusNotFound, "sale not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update sale", "id", id, "error", err)
		// Failure returns to editing with the draft intact.
		state := view.NewRowState(core.Sale{ID: id}).StartEdit()
		state.Draft = patch
		state.Draft.ID = id
		state = state.BeginSave().SaveFailed(err.Error())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerErrorNotification("更新に失敗しました: " + err.Error()).
			Write(w)
		s.renderInline(w, r, "ledger_row_edit.html", ledgerRowData{
			State:       state,
			ChipTypes:   core.ChipTypes,
			SizeClasses: []core.SizeClass{core.SizeS, core.SizeM, core.SizeL},
			Stores:      s.storeOptions(r),
		})
		return
	}

	s.dashboard.Invalidate()
	slog.InfoContext(r.Context(), "Sale updated", "id", id)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	NewHTMXResponse().
		TriggerSaleUpdated(id).
		TriggerSuccessNotification("更新しました").
		Write(w)
	s.renderInline(w, r, "ledger_row.html", ledgerRowData{State: view.NewRowState(saved)})
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid sale id").Write(w)
		return
	}

	if err := s.sales.DeleteSale(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			ErrorResponse(http.StatusNotFound, "sale not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete sale", "id", id, "error", err)
		ErrorResponse(http.StatusInternalServerError, "削除に失敗しました").Write(w)
		return
	}

	s.dashboard.Invalidate()
	slog.InfoContext(r.Context(), "Sale deleted", "id", id)
	NewHTMXResponse().
		TriggerSaleDeleted(id).
		TriggerSuccessNotification("削除しました").
		Write(w)
}

// renderInline executes a template after headers are already written.
func (s *Server) renderInline(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template render failed",
			"template", name, "error", err)
	}
}

// saleErrorStatus maps domain validation failures to 422 and the rest
// to 500.
func saleErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidChipType),
		errors.Is(err, core.ErrInvalidSize),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrNegativePrice),
		errors.Is(err, core.ErrStoreRequired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
