package query

import (
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// fallbackFixtures is served when the fixtures collection has no match.
var fallbackFixtures = []model.Record{ //nolint:gochecknoglobals // read-only dataset
	{"id": "f1", "sport": "football", "home": "Alabama", "away": "Georgia", "date": "2025-03-01T18:00:00Z", "status": model.StatusUpcoming},
	{"id": "f2", "sport": "basketball", "home": "Lakers", "away": "Celtics", "date": "2025-03-02T20:00:00Z", "status": model.StatusUpcoming},
	{"id": "f3", "sport": "baseball", "home": "Yankees", "away": "Red Sox", "date": "2025-03-03T19:00:00Z", "status": model.StatusUpcoming},
	{"id": "f4", "sport": "soccer", "home": "Man City", "away": "Liverpool", "date": "2025-03-04T15:00:00Z", "status": model.StatusUpcoming},
	{"id": "f5", "sport": "tennis", "home": "Djokovic", "away": "Nadal", "date": "2025-03-05T14:00:00Z", "status": model.StatusUpcoming},
}

// Fallback returns copies of the fallback fixtures for sport ("" for all),
// truncated to limit.
func Fallback(sport string, limit int) []model.Record {
	out := make([]model.Record, 0, len(fallbackFixtures))
	for _, r := range fallbackFixtures {
		if sport != "" && r.String("sport") != sport {
			continue
		}
		out = append(out, r.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func fallbackByID(id string) (model.Record, bool) {
	for _, r := range fallbackFixtures {
		if r.ID() == id {
			return r.Clone(), true
		}
	}
	return nil, false
}
