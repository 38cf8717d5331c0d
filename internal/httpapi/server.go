// Package httpapi exposes one query endpoint per table over HTTP.
//
// The accepted parameter names and types are exactly the table's grammar;
// the schema endpoint publishes them as a static, declarative parameter
// list built once at startup.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"csvapi/internal/grammar"
	"csvapi/internal/query"
	"csvapi/internal/store"
)

// Server serves the generated query API for one table.
type Server struct {
	mgr     *store.Manager
	grammar *grammar.Grammar
	log     *slog.Logger
	mux     *http.ServeMux
}

// New builds the server and its route schema from the manager's
// construction-time columns. Grammar generation failures (e.g. parameter
// name collisions) are fatal here, before any route is exposed.
func New(mgr *store.Manager, logger *slog.Logger) (*Server, error) {
	g, err := grammar.Generate(mgr.Table(), mgr.Columns())
	if err != nil {
		return nil, fmt.Errorf("build grammar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mgr:     mgr,
		grammar: g,
		log:     logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /"+mgr.Table(), s.handleQuery)
	s.mux.HandleFunc("GET /"+mgr.Table()+"/schema", s.handleSchema)
	return s, nil
}

// Handler returns the route handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Grammar returns the generated parameter surface.
func (s *Server) Grammar() *grammar.Grammar { return s.grammar }

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	params, err := ParseParams(r.URL.RawQuery)
	if err != nil {
		s.writeError(w, &query.Error{
			Code:    query.CodeTypeMismatch,
			Message: "malformed query string",
			Err:     err,
		})
		return
	}

	q, err := query.Compile(s.grammar, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.mgr.Execute(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Debug("query served",
		"table", s.grammar.Table(),
		"predicates", len(q.Predicates),
		"rows", len(result.Rows))
	s.writeJSON(w, http.StatusOK, result.Rows)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"table":      s.grammar.Table(),
		"columns":    s.grammar.Columns(),
		"parameters": s.grammar.RouteSchema(),
	})
}

// ParseParams splits a raw query string into ordered (name, value) pairs.
// Order is preserved so compiled predicate order matches source order.
// A key with an empty value counts as "not specified" and is dropped.
func ParseParams(rawQuery string) ([]query.Param, error) {
	if rawQuery == "" {
		return nil, nil
	}

	var params []query.Param
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, rawValue, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("parameter name %q: %w", key, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("parameter %q value: %w", name, err)
		}
		if value == "" {
			continue
		}
		params = append(params, query.Param{Name: name, Value: value})
	}
	return params, nil
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Status string    `json:"status"`
	Error  errDetail `json:"error"`
}

type errDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := query.CodeOf(err)

	status := http.StatusInternalServerError
	switch {
	case query.IsClientError(err):
		status = http.StatusBadRequest
	case code == query.CodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	body := errorBody{Status: "error"}
	body.Error.Code = string(code)
	body.Error.Message = err.Error()
	var qe *query.Error
	if errors.As(err, &qe) {
		body.Error.Message = qe.Message
		body.Error.Param = qe.Param
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("query failed", "code", code, "error", err)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}
