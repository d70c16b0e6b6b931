package query

import (
	"slices"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

const (
	DefaultLimit         = 10
	DefaultFixturesLimit = 5
	MaxLimit             = 100
)

// Query parameter names.
const (
	ParamCount     = "count"
	ParamLimit     = "limit"
	ParamSortBy    = "sortBy"
	ParamOrder     = "order"
	ParamSport     = "sport"
	ParamLeague    = "league"
	ParamTeam      = "team"
	ParamLocation  = "location"
	ParamStatus    = "status"
	ParamStartDate = "startDate"
	ParamEndDate   = "endDate"
)

// collectionSpec describes what a collection accepts.
type collectionSpec struct {
	defaultLimit int
	defaultSort  repository.Sort
	sortFields   []string
	filters      []string
}

var catalog = map[string]collectionSpec{ //nolint:gochecknoglobals // read-only catalog
	model.Sports: {
		defaultLimit: DefaultLimit,
		sortFields:   []string{"name", "popularity"},
	},
	model.Leagues: {
		defaultLimit: DefaultLimit,
		sortFields:   []string{"name", "teams"},
		filters:      []string{ParamSport},
	},
	model.Fixtures: {
		defaultLimit: DefaultFixturesLimit,
		defaultSort:  repository.Sort{Field: model.FieldDate},
		sortFields:   []string{"date", "home", "away"},
		filters:      []string{ParamSport, ParamLeague, ParamStatus, ParamStartDate, ParamEndDate},
	},
	model.Teams: {
		defaultLimit: DefaultLimit,
		sortFields:   []string{"name", "location"},
		filters:      []string{ParamSport, ParamLeague, ParamLocation},
	},
	model.Players: {
		defaultLimit: DefaultLimit,
		sortFields:   []string{"name", "team"},
		filters:      []string{ParamSport, ParamTeam},
	},
	model.FanStats: {
		defaultLimit: DefaultLimit,
		sortFields:   []string{"date", "player"},
		filters:      []string{ParamSport, ParamTeam},
	},
}

func (c collectionSpec) accepts(param string) bool {
	return slices.Contains(c.filters, param)
}

func (c collectionSpec) sortable(field string) bool {
	return slices.Contains(c.sortFields, field)
}

// SortFields returns the sortBy whitelist of a collection.
func SortFields(collection string) []string {
	return slices.Clone(catalog[collection].sortFields)
}

// Known reports whether collection is served.
func Known(collection string) bool {
	_, ok := catalog[collection]
	return ok
}
