package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

const dateOnly = "2006-01-02"

// Params are raw query parameters. Empty values count as absent.
type Params map[string]string

func (p Params) get(k string) (string, bool) {
	v := strings.TrimSpace(p[k])
	return v, v != ""
}

// Spec is a validated, executable query.
type Spec struct {
	Collection string
	Filter     repository.Filter
	Sort       repository.Sort
	Limit      int
	// Sport is the normalized sport filter, kept for the fixtures fallback.
	Sport string
}

// Build validates params for collection and returns the query to run.
// Checks run in a fixed order: count, sortBy/order, status, dates.
func Build(collection string, params Params) (Spec, error) {
	cs, ok := catalog[collection]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	spec := Spec{Collection: collection, Sort: cs.defaultSort}

	limit, err := parseLimit(params, cs.defaultLimit)
	if err != nil {
		return Spec{}, err
	}
	spec.Limit = limit

	if spec.Sort, err = parseSort(params, cs); err != nil {
		return Spec{}, err
	}

	if v, ok := params.get(ParamStatus); ok && cs.accepts(ParamStatus) {
		if v != model.StatusUpcoming && v != model.StatusCompleted {
			return Spec{}, invalid(ErrInvalidStatus, ParamStatus, "Invalid status: must be upcoming or completed")
		}
		spec.Filter = append(spec.Filter, repository.Condition{Field: "status", Op: repository.OpEq, Value: v})
	}

	if cs.accepts(ParamStartDate) {
		if v, ok := params.get(ParamStartDate); ok {
			t, err := parseDate(ParamStartDate, v, false)
			if err != nil {
				return Spec{}, err
			}
			spec.Filter = append(spec.Filter, repository.Condition{Field: model.FieldDate, Op: repository.OpGte, Value: t})
		}
		if v, ok := params.get(ParamEndDate); ok {
			t, err := parseDate(ParamEndDate, v, true)
			if err != nil {
				return Spec{}, err
			}
			spec.Filter = append(spec.Filter, repository.Condition{Field: model.FieldDate, Op: repository.OpLte, Value: t})
		}
	}

	if v, ok := params.get(ParamSport); ok && cs.accepts(ParamSport) {
		spec.Sport = strings.ToLower(v)
		spec.Filter = append(spec.Filter, repository.Condition{Field: "sport", Op: repository.OpEq, Value: spec.Sport})
	}
	for _, p := range []string{ParamLeague, ParamTeam} {
		if v, ok := params.get(p); ok && cs.accepts(p) {
			spec.Filter = append(spec.Filter, repository.Condition{Field: p, Op: repository.OpEq, Value: v})
		}
	}
	if v, ok := params.get(ParamLocation); ok && cs.accepts(ParamLocation) {
		spec.Filter = append(spec.Filter, repository.Condition{Field: "location", Op: repository.OpContains, Value: v})
	}

	return spec, nil
}

// parseLimit reads count (or its alias limit), clamping to MaxLimit.
func parseLimit(params Params, def int) (int, error) {
	raw, ok := params.get(ParamCount)
	if !ok {
		raw, ok = params.get(ParamLimit)
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalid(ErrInvalidCount, ParamCount, "Invalid count")
	}
	return min(n, MaxLimit), nil
}

func parseSort(params Params, cs collectionSpec) (repository.Sort, error) {
	s := cs.defaultSort
	if v, ok := params.get(ParamSortBy); ok {
		if !cs.sortable(v) {
			return s, invalid(ErrInvalidSortField, ParamSortBy,
				fmt.Sprintf("Invalid sortBy: must be one of %s", strings.Join(cs.sortFields, ", ")))
		}
		s = repository.Sort{Field: v}
	}
	if v, ok := params.get(ParamOrder); ok {
		switch strings.ToLower(v) {
		case "asc":
			s.Desc = false
		case "desc":
			s.Desc = true
		default:
			return s, invalid(ErrInvalidSortField, ParamOrder, "Invalid order: must be asc or desc")
		}
	}
	return s, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD. A date-only upper bound covers
// the whole day.
func parseDate(param, v string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, invalid(ErrInvalidDateFormat, param,
			fmt.Sprintf("Invalid %s: expected RFC3339 date-time or YYYY-MM-DD", param))
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
