package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

// DefaultOptionLimit caps filter-options responses without a limit.
const DefaultOptionLimit = 50

// maxUpload bounds import bodies.
const maxUpload = 10 << 20

// Server serves the fleet API over a Store.
type Server struct {
	store  *Store
	token  string
	now    func() time.Time
	log    logr.Logger
	router *mux.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) ServerOption {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// WithLogger sets the request logger.
func WithLogger(l logr.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithNow overrides the clock used for export file names.
func WithNow(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer builds the router over store.
func NewServer(store *Store, opts ...ServerOption) *Server {
	s := &Server{store: store, now: time.Now, log: logr.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	chain := func(h http.HandlerFunc) http.Handler {
		return s.withRequestLog(s.withAuth(withResource(h)))
	}
	r.Handle("/{resource}", chain(s.handleList)).Methods(http.MethodGet)
	r.Handle("/{resource}/filter-options", chain(s.handleFilterOptions)).Methods(http.MethodGet)
	r.Handle("/{resource}/export", chain(s.handleExport)).Methods(http.MethodGet)
	r.Handle("/{resource}/import", chain(s.handleImport)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ready != nil {
		ready(ln.Addr())
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type resourceKey struct{}

func withResource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := resources.Lookup(mux.Vars(r)["resource"])
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resourceKey{}, res)))
	})
}

func resourceOf(r *http.Request) resources.Resource {
	res, _ := r.Context().Value(resourceKey{}).(resources.Resource)
	return res
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(api.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(api.RequestIDHeader, id)
		lgr := s.log.WithValues(logger.RequestIDKey, id, "method", r.Method, "path", r.URL.Path)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithLogger(r.Context(), &lgr)))
		lgr.V(1).Info("served", "status", rec.status, "duration", time.Since(start).String())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData[T any](w http.ResponseWriter, data T) {
	writeJSON(w, http.StatusOK, api.Envelope[T]{Success: true, StatusCode: http.StatusOK, Message: "OK", Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.Envelope[any]{StatusCode: status, Message: msg})
}

// query builds a client-mode grid over the resource rows with the request's
// search, filters and sort applied. The caller closes it.
func (s *Server) query(res resources.Resource, q api.ListQuery) (*grid.Grid, error) {
	g, err := grid.New(res.Columns, grid.WithPageSize(q.Limit))
	if err != nil {
		return nil, err
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		g.AddPredicate(func(r grid.Row) bool { return res.Matches(r, search) })
	}
	conds, values, err := api.DecodeFilters(q.Filters)
	if err == nil {
		for _, c := range conds {
			if err = g.SetCondition(c); err != nil {
				break
			}
		}
	}
	if err == nil {
		for _, v := range values {
			if err = g.SetValueFilter(v); err != nil {
				break
			}
		}
	}
	if err == nil && q.Sort != nil {
		err = g.SetSort(q.Sort)
	}
	if err != nil {
		g.Close()
		return nil, err
	}
	g.SetRows(s.store.Rows(res.Name))
	g.GoToPage(q.Page)
	return g, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := api.ParseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.query(resourceOf(r), q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer g.Close()

	p := g.Pager()
	rows := g.PageRows()
	if rows == nil {
		rows = []grid.Row{}
	}
	writeData(w, api.ListResult{
		Rows: rows,
		Pagination: api.PageInfo{
			Page:       p.Page(),
			Limit:      p.PageSize(),
			Total:      p.Total(),
			TotalPages: p.TotalPages(),
			HasNext:    p.HasNext(),
			HasPrev:    p.HasPrev(),
		},
	})
}

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	res := resourceOf(r)
	v := r.URL.Query()
	field := v.Get("column")
	col, ok := res.Column(field)
	if !ok || !col.Filterable {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("column %q is not filterable", field))
		return
	}
	limit := DefaultOptionLimit
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", s))
			return
		}
		limit = n
	}
	search := strings.ToLower(strings.TrimSpace(v.Get("search")))

	all := grid.DistinctOptions(s.store.Rows(res.Name), field)
	opts := make([]grid.FilterOption, 0, len(all))
	for _, o := range all {
		if search == "" || strings.Contains(strings.ToLower(o.Label), search) {
			opts = append(opts, o)
		}
	}
	total := len(opts)
	if limit > 0 && len(opts) > limit {
		opts = opts[:limit]
	}
	writeData(w, api.OptionsResult{Options: opts, Total: total})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res := resourceOf(r)
	v := r.URL.Query()
	format, err := grid.ParseExportFormat(v.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := api.ParseListQuery(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Limit = grid.AllRows
	g, err := s.query(res, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer g.Close()

	data, err := export.Bytes(format, export.FromGrid(g, res.Title, true))
	if err != nil {
		logger.FromContext(r.Context()).Error(err, "export failed", logger.ResourceKey, res.Name)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	name := api.ExportFilename(res.Name, format, s.now())
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res := resourceOf(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer f.Close()

	headers, lines, err := export.ReadTable(hdr.Filename, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := importRows(res, headers, lines)
	if result.Imported > 0 {
		s.store.Insert(res.Name, result.rows...)
	}
	logger.FromContext(r.Context()).Info("import", logger.ResourceKey, res.Name, "imported", result.Imported, "rejected", len(result.Errors))
	writeJSON(w, http.StatusOK, result.ImportResult)
}

type importOutcome struct {
	api.ImportResult
	rows []grid.Row
}

// importRows maps header titles or fields to columns and validates each line.
// Line numbers in errors count the header as row 1.
func importRows(res resources.Resource, headers []string, lines [][]string) importOutcome {
	fieldAt := make([]string, len(headers))
	known := make(map[string]bool)
	for i, h := range headers {
		for _, c := range res.Columns {
			if c.Type == grid.TypeActions {
				continue
			}
			if strings.EqualFold(h, c.Field) || strings.EqualFold(h, c.Title()) {
				fieldAt[i] = c.Field
				known[c.Field] = true
				break
			}
		}
	}
	var out importOutcome
	for _, f := range res.Required {
		if !known[f] {
			out.Errors = append(out.Errors, api.ImportError{Row: 1, Field: f, Message: "missing required column"})
		}
	}
	if len(out.Errors) > 0 {
		out.Message = "import rejected: missing required columns"
		return out
	}

	for i, line := range lines {
		row := grid.Row{}
		var lineErrs []api.ImportError
		for j, field := range fieldAt {
			if field == "" || j >= len(line) {
				continue
			}
			cell := strings.TrimSpace(line[j])
			if cell == "" {
				continue
			}
			col, _ := res.Column(field)
			v, err := parseCell(col, cell)
			if err != nil {
				lineErrs = append(lineErrs, api.ImportError{Row: i + 2, Field: field, Message: err.Error()})
				continue
			}
			row[field] = v
		}
		for _, f := range res.Required {
			if row.Value(f) == nil {
				lineErrs = append(lineErrs, api.ImportError{Row: i + 2, Field: f, Message: "value is required"})
			}
		}
		if len(lineErrs) > 0 {
			out.Errors = append(out.Errors, lineErrs...)
			continue
		}
		out.rows = append(out.rows, row)
	}
	out.Imported = len(out.rows)
	out.Success = len(out.Errors) == 0
	out.Message = fmt.Sprintf("imported %d of %d rows", out.Imported, len(lines))
	return out
}

func parseCell(col grid.Column, s string) (any, error) {
	switch col.Type {
	case grid.TypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return n, nil
	case grid.TypeBoolean:
		switch strings.ToLower(s) {
		case "yes", "true", "1":
			return true, nil
		case "no", "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not yes/no", s)
	case grid.TypeDate:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", s)
	}
	return s, nil
}
