package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"chipdash/internal/core"
	"chipdash/internal/storage"
)

// storeListData feeds the store registry partial.
type storeListData struct {
	Stores []core.Store
}

func (s *Server) handleStoreList(w http.ResponseWriter, r *http.Request) {
	stores, err := s.sales.ListStores(r.Context())
	if err != nil {
		// Degraded mode: empty registry, no error banner.
		slog.ErrorContext(r.Context(), "Failed to list stores", "error", err)
		stores = nil
	}
	s.render(w, r, "stores.html", storeListData{Stores: stores})
}

type storeRowData struct {
	Store core.Store
}

// storeOptionsData feeds the option list of a store picker.
type storeOptionsData struct {
	Stores        []core.Store
	Selected      int64
	StoreRequired bool
}

// handleStoreOptions re-renders just the picker options, so a
// stores:changed event refreshes the select without touching the
// rest of the form.
func (s *Server) handleStoreOptions(w http.ResponseWriter, r *http.Request) {
	selected, _ := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	s.render(w, r, "store_options.html", storeOptionsData{
		Stores:        s.storeOptions(r),
		Selected:      selected,
		StoreRequired: s.cfg.StoreRequired,
	})
}

func (s *Server) handleStoreRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid store id").Write(w)
		return
	}
	store, ok := s.findStore(r, id)
	if !ok {
		ErrorResponse(http.StatusNotFound, "store not found").Write(w)
		return
	}
	s.render(w, r, "store_row.html", storeRowData{Store: store})
}

func (s *Server) handleStoreEditRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid store id").Write(w)
		return
	}
	store, ok := s.findStore(r, id)
	if !ok {
		ErrorResponse(http.StatusNotFound, "store not found").Write(w)
		return
	}
	s.render(w, r, "store_row_edit.html", storeRowData{Store: store})
}

func (s *Server) findStore(r *http.Request, id int64) (core.Store, bool) {
	stores, err := s.sales.ListStores(r.Context())
	if err != nil {
		return core.Store{}, false
	}
	for _, st := range stores {
		if st.ID == id {
			return st, true
		}
	}
	return core.Store{}, false
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid request body").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	store, err := s.sales.CreateStore(r.Context(), name)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create store", "name", name, "error", err)
		ErrorResponse(http.StatusUnprocessableEntity, "店舗の追加に失敗しました: "+err.Error()).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Store created", "id", store.ID, "name", store.Name)
	NewHTMXResponse().
		TriggerStoresChanged().
		TriggerSuccessNotification("店舗を追加しました: " + store.Name).
		Write(w)
}

func (s *Server) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid store id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid request body").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	store, err := s.sales.UpdateStore(r.Context(), id, name)
	if err != nil {
		if storage.IsNotFound(err) {
			ErrorResponse(http.StatusNotFound, "store not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to rename store", "id", id, "error", err)
		ErrorResponse(http.StatusUnprocessableEntity, "店舗名の変更に失敗しました: "+err.Error()).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Store renamed", "id", id, "name", store.Name)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	NewHTMXResponse().
		TriggerStoresChanged().
		TriggerSuccessNotification("店舗名を変更しました").
		Write(w)
	s.renderInline(w, r, "store_row.html", storeRowData{Store: store})
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		ErrorResponse(http.StatusBadRequest, "invalid store id").Write(w)
		return
	}

	if err := s.sales.DeleteStore(r.Context(), id); err != nil {
		switch {
		case storage.IsNotFound(err):
			ErrorResponse(http.StatusNotFound, "store not found").Write(w)
		case storage.IsConstraint(err):
			// Referenced by sales: tell the user what to do about it.
			slog.WarnContext(r.Context(), "Store delete blocked by sales", "id", id)
			ErrorResponse(http.StatusConflict,
				"この店舗には売上が登録されています。先に売上を削除するか別の店舗に付け替えてください。").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to delete store", "id", id, "error", err)
			ErrorResponse(http.StatusInternalServerError, "店舗の削除に失敗しました").Write(w)
		}
		return
	}

	slog.InfoContext(r.Context(), "Store deleted", "id", id)
	NewHTMXResponse().
		TriggerStoresChanged().
		TriggerSuccessNotification("店舗を削除しました").
		Write(w)
}
