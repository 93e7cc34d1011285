package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chipdash/internal/appstate"
	"chipdash/internal/config"
	"chipdash/internal/core"
	"chipdash/internal/services"
	"chipdash/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	cfg := config.Config{
		Port:                "8081",
		SQLiteDBPath:        filepath.Join(dir, "test.db"),
		DataDir:             dir,
		LedgerFetchLimit:    500,
		DashboardFetchLimit: 2000,
		RateLimitPerMinute:  1000,
	}

	sales := services.NewSaleService(repo, nil, false)
	dashboard := services.NewDashboardService(repo, cfg.DashboardFetchLimit)
	uiState := appstate.New(appstate.NewFilePort(dir))

	srv := NewServer(cfg, sales, dashboard, uiState)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = repo.Close()
	})
	return srv, repo
}

func doForm(t *testing.T, srv *Server, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doGet(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if rec := doGet(t, srv, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestIndexRendersTabs(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, tab := range []string{"tab-form", "tab-ledger", "tab-stores", "tab-dashboard"} {
		if !strings.Contains(body, tab) {
			t.Errorf("index missing %q", tab)
		}
	}
}

func TestCreateSale(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	st, _ := repo.CreateStore(ctx, "金沢店")

	rec := doForm(t, srv, http.MethodPost, "/sales", url.Values{
		"chip_type":   {core.ChipTypes[0]},
		"size_cls":    {"M"},
		"size_digits": {"15458"},
		"price_total": {"3200"},
		"store_id":    {"1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	trigger := rec.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "sale:created") || !strings.Contains(trigger, "form:reset") {
		t.Errorf("HX-Trigger missing events: %s", trigger)
	}

	rows, err := repo.ListSales(ctx, storage.SalesQuery{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].StoreID != st.ID || rows[0].PriceTotal != 3200 {
		t.Fatalf("sale not persisted as submitted: %+v", rows)
	}
}

func TestCreateSaleRejectsUnknownChipType(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doForm(t, srv, http.MethodPost, "/sales", url.Values{
		"chip_type":   {"スクエア"},
		"price_total": {"1000"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "show-notification") {
		t.Error("validation failure should notify")
	}
}

func TestUpdateAndDeleteSale(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	sale, _ := repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], PriceTotal: 3200})

	rec := doForm(t, srv, http.MethodPost, "/sales/1", url.Values{
		"chip_type":   {core.ChipTypes[1]},
		"price_total": {"2800"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body: %s", rec.Code, rec.Body.String())
	}
	updated, err := repo.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.ChipType != core.ChipTypes[1] || updated.PriceTotal != 2800 {
		t.Fatalf("update not applied: %+v", updated)
	}

	req := httptest.NewRequest(http.MethodDelete, "/sales/1", nil)
	del := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(del, req)
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d", del.Code)
	}
	if _, err := repo.GetSale(ctx, sale.ID); !storage.IsNotFound(err) {
		t.Fatalf("sale should be gone, got %v", err)
	}
}

func TestUpdateMissingSaleReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doForm(t, srv, http.MethodPost, "/sales/999", url.Values{
		"chip_type":   {core.ChipTypes[0]},
		"price_total": {"1"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStoreLifecycle(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	if rec := doForm(t, srv, http.MethodPost, "/stores", url.Values{"name": {"銀座店"}}); rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}
	stores, _ := repo.ListStores(ctx)
	if len(stores) != 1 || stores[0].Name != "銀座店" {
		t.Fatalf("store not created: %+v", stores)
	}

	if rec := doForm(t, srv, http.MethodPost, "/stores/1", url.Values{"name": {"渋谷店"}}); rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	stores, _ = repo.ListStores(ctx)
	if stores[0].Name != "渋谷店" {
		t.Fatalf("rename not applied: %+v", stores)
	}

	// A referencing sale blocks the delete with a conflict.
	if _, err := repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], StoreID: stores[0].ID}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/stores/1", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("blocked delete status = %d, want 409", rec.Code)
	}
	stores, _ = repo.ListStores(ctx)
	if len(stores) != 1 {
		t.Fatalf("blocked delete removed the store: %+v", stores)
	}
}

func TestCreateStoreRejectsBlankName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doForm(t, srv, http.MethodPost, "/stores", url.Values{"name": {"   "}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestTabChange(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doForm(t, srv, http.MethodPost, "/ui/tab", url.Values{"tab": {"ledger"}}); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := srv.uiState.ActiveTab(); got != appstate.TabLedger {
		t.Errorf("ActiveTab = %q", got)
	}

	if rec := doForm(t, srv, http.MethodPost, "/ui/tab", url.Values{"tab": {"nope"}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tab status = %d", rec.Code)
	}
}

func TestAPIStores(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.CreateStore(context.Background(), "A")

	rec := doGet(t, srv, "/api/stores")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		OK     bool         `json:"ok"`
		Stores []core.Store `json:"stores"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.OK || len(payload.Stores) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAPIDashboard(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], ChipNumber: "N-01", PriceTotal: 3200})
	repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], ChipNumber: "N-01", PriceTotal: 2800})
	repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[1], PriceTotal: 1000})

	rec := doGet(t, srv, "/api/dashboard?top=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		OK        bool `json:"ok"`
		Dashboard struct {
			Count               int              `json:"count"`
			Revenue             int64            `json:"revenue"`
			ByType              []core.TypeCount `json:"by_type"`
			ByChipNumber        []core.Bucket    `json:"by_chip_number"`
			ByChipNumberRevenue []core.Bucket    `json:"by_chip_number_revenue"`
			BySizeClass         []core.Bucket    `json:"by_size_class"`
		} `json:"dashboard"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.OK {
		t.Fatal("expected ok payload")
	}
	if payload.Dashboard.Count != 3 || payload.Dashboard.Revenue != 7000 {
		t.Fatalf("totals wrong: %+v", payload.Dashboard)
	}
	if len(payload.Dashboard.ByType) != 2 {
		t.Fatalf("by_type wrong: %+v", payload.Dashboard.ByType)
	}
	// Empty chip numbers stay out without the toggle.
	for _, b := range payload.Dashboard.ByChipNumber {
		if b.Key == core.EmptyKeyLabel {
			t.Fatalf("empty key leaked without include_empty: %+v", b)
		}
	}
	if len(payload.Dashboard.BySizeClass) != 3 {
		t.Fatalf("size class buckets must always be S/M/L: %+v", payload.Dashboard.BySizeClass)
	}
	if len(payload.Dashboard.ByChipNumberRevenue) != 1 || payload.Dashboard.ByChipNumberRevenue[0].Revenue != 6000 {
		t.Fatalf("by_chip_number_revenue wrong: %+v", payload.Dashboard.ByChipNumberRevenue)
	}
}

func TestAPIRowsPeriodFilter(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], ManualMonth: "2024-01", PriceTotal: 1})
	repo.InsertSale(ctx, core.Sale{ChipType: core.ChipTypes[0], ManualMonth: "2024-05", PriceTotal: 2})

	rec := doGet(t, srv, "/api/rows?start=2024-01&end=2024-03")
	var payload struct {
		OK   bool        `json:"ok"`
		Rows []core.Sale `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.OK || len(payload.Rows) != 1 {
		t.Fatalf("expected one row in range, got %+v", payload)
	}
	if payload.Rows[0].ManualMonth != "2024-01" {
		t.Fatalf("wrong row: %+v", payload.Rows[0])
	}
}

func TestLedgerPartialRenders(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.InsertSale(context.Background(), core.Sale{ChipType: core.ChipTypes[0], PriceTotal: 12800})

	rec := doGet(t, srv, "/ui/ledger")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, core.ChipTypes[0]) {
		t.Error("ledger missing the sale row")
	}
	if !strings.Contains(body, "¥12,800") {
		t.Errorf("yen formatting missing: %s", body)
	}
}

func TestSaleFormResetKeepsStickyFields(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.CreateStore(context.Background(), "金沢店")

	// The post-submit refresh sends the whole form plus reset=1; only
	// chip type, size class and store survive, and a manually edited
	// digits value falls back to the size-class lookup.
	q := url.Values{
		"reset":       {"1"},
		"chip_type":   {core.ChipTypes[1]},
		"size_cls":    {"L"},
		"size_digits": {"99999"},
		"price_total": {"3200"},
		"note":        {"リピーター"},
		"store_id":    {"1"},
	}
	rec := doGet(t, srv, "/ui/sale-form?"+q.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	if !strings.Contains(body, `value="`+core.ChipTypes[1]+`" selected`) {
		t.Error("chip type not retained after reset")
	}
	if !strings.Contains(body, `value="L" selected`) {
		t.Error("size class not retained after reset")
	}
	if !strings.Contains(body, `value="1" selected`) {
		t.Error("store selection not retained after reset")
	}
	if !strings.Contains(body, `name="size_digits" value="04347"`) {
		t.Error("digits should reset to the lookup of the retained size class")
	}
	if !strings.Contains(body, `name="price_total" value=""`) {
		t.Error("price should clear after reset")
	}
	if strings.Contains(body, "リピーター") {
		t.Error("note should clear after reset")
	}
}

func TestIndexFormPanelRefreshTriggers(t *testing.T) {
	srv, _ := newTestServer(t)

	body := doGet(t, srv, "/").Body.String()
	start := strings.Index(body, `id="tab-form"`)
	if start < 0 {
		t.Fatal("form panel missing")
	}
	end := strings.Index(body[start:], "</section>")
	if end < 0 {
		t.Fatal("form panel not closed")
	}
	section := body[start : start+end]

	// Reloading on sale:created would replace the sticky fields with
	// defaults; the panel refreshes on form:reset only.
	if strings.Contains(section, "sale:created") {
		t.Error("form panel must not reload on sale:created")
	}
	if strings.Contains(section, "stores:changed") {
		t.Error("store changes refresh the picker options, not the whole form")
	}
	if !strings.Contains(section, "form:reset from:body") {
		t.Error("form panel should refresh on form:reset")
	}
	if !strings.Contains(section, `hx-include="#sale-form"`) {
		t.Error("reset refresh must carry the sticky fields through the query")
	}
}

func TestStoreOptionsMarksSelection(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()
	repo.CreateStore(ctx, "A")
	repo.CreateStore(ctx, "B")

	rec := doGet(t, srv, "/ui/store-options?store_id=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="2" selected`) {
		t.Errorf("current selection not preserved: %s", body)
	}
	if !strings.Contains(body, ">A<") || !strings.Contains(body, ">B<") {
		t.Errorf("options missing stores: %s", body)
	}
	if strings.Contains(body, "<select") {
		t.Error("partial should render options only")
	}
}

func TestSaleFormPrefillsDigitsOnSizeChange(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/ui/sale-form?size_cls=M")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "15458") {
		t.Error("size digits not pre-filled for M")
	}
}

func TestFormatYen(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "¥0"},
		{100, "¥100"},
		{3200, "¥3,200"},
		{1234567, "¥1,234,567"},
		{-500, "-¥500"},
	}
	for _, tt := range tests {
		if got := formatYen(tt.in); got != tt.want {
			t.Errorf("formatYen(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
