package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/internal/domain/query"
	"github.com/CurryTPH/all-sports-api/internal/domain/types"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

const (
	welcomeMessage = "Welcome to the All Sports API! The ultimate sports data hub."
	apiVersion     = "1.0.0"
	maxBodyBytes   = 1 << 20
)

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.Welcome{Message: welcomeMessage, Docs: "/docs"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats.Health())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.GetStats(r.Context())
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// listHandler resolves one collection from the query string. Only the first
// value of a repeated parameter is used.
func (s *Server) listHandler(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(query.Params)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		res, err := s.deps.Resolver.Resolve(r.Context(), collection, params)
		if err != nil {
			s.writeQueryError(w, r, err)
			return
		}
		if res.UsedFallback {
			w.Header().Set("X-Fallback-Data", "true")
		}
		writeJSON(w, http.StatusOK, res.Records)
	}
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Resolver.Lookup(r.Context(), model.Fixtures, chi.URLParam(r, "id"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSubmitFanStat(w http.ResponseWriter, r *http.Request) {
	var stat query.FanStat
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&stat); err != nil {
		s.logger.Debug(r.Context(), "rejected fan stat body", logger.Error(fmt.Errorf("%w: %w", ErrBadRequest, err)))
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	rec, err := s.deps.Resolver.Submit(r.Context(), model.FanStats, stat)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, docs())
}

// docs describes the public endpoints.
func docs() types.Docs {
	paging := map[string]string{
		query.ParamCount: "page size 1-100, default 10",
		query.ParamOrder: "asc or desc",
	}
	list := func(collection, description string, extra map[string]string) types.EndpointDoc {
		params := make(map[string]string, len(paging)+len(extra))
		for k, v := range paging {
			params[k] = v
		}
		params[query.ParamSortBy] = "one of " + strings.Join(query.SortFields(collection), ", ")
		for k, v := range extra {
			params[k] = v
		}
		return types.EndpointDoc{Method: http.MethodGet, Description: description, Parameters: params}
	}

	fixtures := list(model.Fixtures, "List fixtures by date; falls back to sample fixtures when nothing matches", map[string]string{
		query.ParamSport:     "sport name, case-insensitive",
		query.ParamLeague:    "league id",
		query.ParamStatus:    "upcoming or completed",
		query.ParamStartDate: "RFC3339 or YYYY-MM-DD, inclusive",
		query.ParamEndDate:   "RFC3339 or YYYY-MM-DD, inclusive",
	})
	fixtures.Parameters[query.ParamCount] = "page size 1-100, default 5"
	fixtures.Example = "/fixtures?sport=football&count=2"

	return types.Docs{
		Version: apiVersion,
		OpenAPI: "/openapi.yaml",
		Endpoints: map[string]types.EndpointDoc{
			"/":       {Method: http.MethodGet, Description: "Welcome message"},
			"/sports": list(model.Sports, "List sports", nil),
			"/leagues": list(model.Leagues, "List leagues", map[string]string{
				query.ParamSport: "sport name, case-insensitive",
			}),
			"/fixtures":      fixtures,
			"/fixtures/{id}": {Method: http.MethodGet, Description: "Get one fixture", Example: "/fixtures/f1"},
			"/teams": list(model.Teams, "List teams", map[string]string{
				query.ParamSport:    "sport name, case-insensitive",
				query.ParamLeague:   "league id",
				query.ParamLocation: "substring, case-insensitive",
			}),
			"/players": list(model.Players, "List players", map[string]string{
				query.ParamSport: "sport name, case-insensitive",
				query.ParamTeam:  "team name",
			}),
			"/fan-stats": list(model.FanStats, "List fan-submitted stats; POST a JSON body to submit one", map[string]string{
				query.ParamSport: "sport name, case-insensitive",
				query.ParamTeam:  "team name",
			}),
			"/live":      {Method: http.MethodGet, Description: "Websocket stream of one live event per second"},
			"/dashboard": {Method: http.MethodGet, Description: "HTML page rendering the live stream"},
			"/healthz":   {Method: http.MethodGet, Description: "Liveness and subscriber count; not rate limited"},
			"/metrics":   {Method: http.MethodGet, Description: "Prometheus metrics; not rate limited"},
			"/stats":     {Method: http.MethodGet, Description: "Record counts and runtime statistics"},
		},
	}
}
