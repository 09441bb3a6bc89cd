// internal/api/api.go
//
// Read-only admin HTTP API.
//
// Context
// -------
// A thin JSON surface over the gateways for dashboards and operators:
//
//	GET /healthz               – pool ping
//	GET /metrics               – Prometheus exposition
//	GET /sites                 – sites visible to the caller (?q=, ?limit=)
//	GET /sites/{id}            – one site plus its URLs
//	GET /sites/{id}/reports    – active reports of one site
//	GET /tables                – tables holding at least one row
//
// The caller's login comes from middleware.Login.  With a login every site
// lookup is restricted to the sites it holds a grant on; without one the
// call is treated as a super user.  A site the caller may not see is a 404,
// not a 403, so ids do not leak.
//
// Notes
// -----
// • Handlers never write SQL; they only compose gateway calls.
// • Driver errors are logged and surfaced as 500 with a generic body.
// • Oxford commas, two spaces after periods.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/metrica/internal/access"
	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/middleware"
	"github.com/yanizio/metrica/internal/report"
	"github.com/yanizio/metrica/internal/schema"
	"github.com/yanizio/metrica/internal/site"
)

const pingTimeout = 2 * time.Second

// Server holds the gateways the handlers compose.
type Server struct {
	conn    *database.Conn
	access  *access.Store
	sites   *site.Gateway
	reports *report.Store
}

// New wires every gateway to conn.
func New(conn *database.Conn) *Server {
	acc := access.New(conn)
	return &Server{
		conn:    conn,
		access:  acc,
		sites:   site.New(conn, acc),
		reports: report.New(conn),
	}
}

// Routes returns the router with the full middleware chain installed.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument)
	r.Use(middleware.Security)
	r.Use(middleware.Login)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/tables", s.tables)

	r.Route("/sites", func(r chi.Router) {
		r.Get("/", s.listSites)
		r.Get("/{id}", s.getSite)
		r.Get("/{id}/reports", s.siteReports)
	})
	return r
}

/*──────────────────────────── handlers ─────────────────────────────────────*/

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := s.conn.DB().PingContext(ctx); err != nil {
		zap.S().Warnw("health ping failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) tables(w http.ResponseWriter, r *http.Request) {
	names, err := database.TablesWithData(r.Context(), schema.Tables(s.conn)...)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": names})
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ids, err := s.visibleIDs(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}

	var recs []site.Record
	if pattern := q.Get("q"); pattern != "" {
		recs, err = s.sites.Search(ctx, ids, pattern, limit)
	} else {
		recs, err = s.sites.ByIDs(ctx, ids, limit)
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type siteResponse struct {
	Site *site.Record `json:"site"`
	URLs []string     `json:"urls"`
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizedSite(w, r)
	if !ok {
		return
	}

	var (
		rec     *site.Record
		aliases []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		rec, err = s.sites.ByID(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		aliases, err = s.sites.Aliases.BySite(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		serverError(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}

	writeJSON(w, http.StatusOK, siteResponse{
		Site: rec,
		URLs: append([]string{rec.MainURL}, aliases...),
	})
}

func (s *Server) siteReports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizedSite(w, r)
	if !ok {
		return
	}
	login := middleware.LoginFrom(r.Context())

	recs, err := s.reports.AllActive(r.Context(), report.Filter{
		IDSite: id,
		Login:  report.OwnerLogin(login, login == "", false),
	})
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// visibleIDs lists the sites the caller may see.
func (s *Server) visibleIDs(ctx context.Context) ([]int64, error) {
	if login := middleware.LoginFrom(ctx); login != "" {
		return s.access.Sites(ctx, login)
	}
	return s.sites.IDs(ctx)
}

// authorizedSite parses {id} and checks the caller's grant.  On failure it
// writes the response and returns ok == false.
func (s *Server) authorizedSite(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	login := middleware.LoginFrom(r.Context())
	if login == "" {
		return id, true
	}
	allowed, err := s.access.Allowed(r.Context(), login, id)
	if err != nil {
		serverError(w, r, err)
		return 0, false
	}
	if !allowed {
		writeError(w, http.StatusNotFound, "site not found")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Debugw("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.S().Errorw("admin api query failed",
		"path", r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()),
		"err", err,
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
