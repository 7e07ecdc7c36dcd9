// Package webui serves the thin HTML front end and the JSON API the UI
// calls: part search, light-up, and inventory listing. It is a
// presentation layer over the search and light packages and holds no
// business rules of its own.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/picklight/picklight/internal/light"
	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/movement"
	"github.com/picklight/picklight/internal/search"
	"github.com/picklight/picklight/pkg/catalog"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the HTTP front end.
type Server struct {
	repo      *master.Repository
	searcher  *search.Searcher
	resolver  *light.Resolver
	gateway   light.Gateway
	ledger    *movement.Ledger
	log       *zap.Logger
	metrics   bool
	templates *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics exposes the Prometheus endpoint at /metrics.
func WithMetrics() Option {
	return func(s *Server) {
		s.metrics = true
	}
}

// New builds the server.
func New(repo *master.Repository, searcher *search.Searcher, resolver *light.Resolver, gateway light.Gateway, ledger *movement.Ledger, opts ...Option) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s := &Server{
		repo:      repo,
		searcher:  searcher,
		resolver:  resolver,
		gateway:   gateway,
		ledger:    ledger,
		log:       zap.NewNop(),
		templates: tmpl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /inventory", s.handleInventory)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/light", s.handleLight)
	mux.HandleFunc("POST /api/off", s.handleOff)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return s.logRequests(mux)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.ExecuteTemplate(w, "home.html", nil); err != nil {
		s.fail(w, "failed to render page", err)
	}
}

// inventoryRow is one line of the inventory table.
type inventoryRow struct {
	Part     catalog.Part
	Category string
	Rack     string
	Drawer   string
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		s.fail(w, "failed to load inventory", err)
		return
	}
	rows := make([]inventoryRow, 0, len(snap.Parts))
	for _, p := range snap.Parts {
		row := inventoryRow{Part: p, Category: p.CategoryID}
		if c, ok := snap.CategoryByID(p.CategoryID); ok {
			row.Category = c.Name
		}
		if d, ok := snap.DrawerByID(p.DrawerID); ok {
			row.Drawer = d.Label
			if rack, ok := snap.RackByID(d.RackID); ok {
				row.Rack = rack.Name
			}
		}
		rows = append(rows, row)
	}
	if err := s.templates.ExecuteTemplate(w, "inventory.html", rows); err != nil {
		s.fail(w, "failed to render page", err)
	}
}

// criteriaFromQuery reads search criteria from URL parameters.
func criteriaFromQuery(r *http.Request) (search.Criteria, error) {
	q := r.URL.Query()
	c := search.Criteria{
		Query:          q.Get("q"),
		CategoryID:     q.Get("category"),
		ManufacturerID: q.Get("manufacturer"),
		DrawerID:       q.Get("drawer"),
		TagsAny:        q["tag_any"],
		TagsAll:        q["tag"],
	}
	for name, dst := range map[string]**int{"min_qty": &c.MinQuantity, "max_qty": &c.MaxQuantity} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return c, fmt.Errorf("invalid %s: %q", name, raw)
			}
			*dst = &n
		}
	}
	return c, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	parts, err := s.searcher.Find(r.Context(), criteria)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	if parts == nil {
		parts = []catalog.Part{}
	}
	s.writeJSON(w, map[string]any{"parts": parts})
}

// lightResponse summarizes what a light-up did.
type lightResponse struct {
	Matched   int            `json:"matched"`
	Lit       []string       `json:"lit"` // drawer ids now active
	Unlocated []catalog.Part `json:"unlocated"`
}

func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	parts, err := s.searcher.Find(r.Context(), criteria)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	plan, err := s.resolver.Resolve(r.Context(), parts)
	if err != nil {
		s.fail(w, "failed to resolve pixel state", err)
		return
	}
	if err := plan.Send(r.Context(), s.gateway); err != nil {
		s.fail(w, "failed to update controllers", err)
		return
	}

	resp := lightResponse{Matched: len(parts), Lit: []string{}, Unlocated: plan.Unlocated}
	if resp.Unlocated == nil {
		resp.Unlocated = []catalog.Part{}
	}
	for _, state := range plan.Controllers {
		for _, seg := range state.Segments {
			if seg.Active {
				resp.Lit = append(resp.Lit, seg.DrawerID)
			}
		}
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	plan, err := s.resolver.Off(r.Context())
	if err != nil {
		s.fail(w, "failed to resolve pixel state", err)
		return
	}
	if err := plan.Send(r.Context(), s.gateway); err != nil {
		s.fail(w, "failed to update controllers", err)
		return
	}
	s.writeJSON(w, map[string]any{"off": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.Snapshot(r.Context()); err != nil {
		s.fail(w, "data directory unreadable", err)
		return
	}
	s.writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, zap.Error(err))
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
}
