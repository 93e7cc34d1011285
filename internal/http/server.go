package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"chipdash/internal/appstate"
	"chipdash/internal/config"
	"chipdash/internal/middleware/ratelimit"
	"chipdash/internal/middleware/security"
	"chipdash/internal/middleware/trace"
	"chipdash/internal/services"
	appweb "chipdash/web"
)

// Server wires the HTMX UI, the JSON API and the operational endpoints
// over the sale and dashboard services.
type Server struct {
	http.Server
	templates *template.Template

	sales     *services.SaleService
	dashboard *services.DashboardService
	uiState   *appstate.State
	cfg       config.Config

	tracer  *trace.Middleware
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg config.Config, sales *services.SaleService, dashboard *services.DashboardService, uiState *appstate.State) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           nil, // set below, after the middleware chain
			ReadHeaderTimeout: 10 * time.Second,
		},
		sales:     sales,
		dashboard: dashboard,
		uiState:   uiState,
		cfg:       cfg,
		tracer:    trace.NewMiddleware(extractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// UI partials
	mux.HandleFunc("GET /ui/sale-form", s.handleSaleForm)
	mux.HandleFunc("GET /ui/ledger", s.handleLedger)
	mux.HandleFunc("GET /ui/ledger/{id}/edit", s.handleLedgerEditRow)
	mux.HandleFunc("GET /ui/ledger/{id}/row", s.handleLedgerRow)
	mux.HandleFunc("GET /ui/store-options", s.handleStoreOptions)
	mux.HandleFunc("GET /ui/stores", s.handleStoreList)
	mux.HandleFunc("GET /ui/stores/{id}/edit", s.handleStoreEditRow)
	mux.HandleFunc("GET /ui/stores/{id}/row", s.handleStoreRow)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.HandleFunc("POST /ui/tab", s.handleTabChange)

	// Mutations
	mux.HandleFunc("POST /sales", s.handleCreateSale)
	mux.HandleFunc("POST /sales/{id}", s.handleUpdateSale)
	mux.HandleFunc("DELETE /sales/{id}", s.handleDeleteSale)
	mux.HandleFunc("POST /stores", s.handleCreateStore)
	mux.HandleFunc("POST /stores/{id}", s.handleUpdateStore)
	mux.HandleFunc("DELETE /stores/{id}", s.handleDeleteStore)

	// JSON API
	mux.HandleFunc("GET /api/stores", s.handleAPIStores)
	mux.HandleFunc("GET /api/rows", s.handleAPIRows)
	mux.HandleFunc("GET /api/dashboard", s.handleAPIDashboard)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(extractClientIP, nil)

	// Rate limiting applies to mutations only; reads stay cheap.
	var handler http.Handler = mux
	handler = mutationOnly(limited)(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	s.Server.Handler = handler

	return s
}

// mutationOnly applies mw to state-changing methods and passes reads through.
func mutationOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				limited.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// extractClientIP resolves the client address, preferring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready when a trivial storage read succeeds.
	if _, err := s.sales.ListStores(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "http_requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "http_last_response_micros %d\n", m.LastResponseMicros)
	fmt.Fprintf(w, "ratelimit_active_clients %d\n", s.limiter.ActiveClients())
}
