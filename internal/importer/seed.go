package importer

import (
	"context"
	"fmt"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// Inserter writes records. repository.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, collection string, rec model.Record) error
}

// SeedSports is the built-in sports catalog.
func SeedSports() []model.Record {
	return []model.Record{
		{"id": "football", "name": "Football", "category": "Team", "popularity": 95},
		{"id": "basketball", "name": "Basketball", "category": "Team", "popularity": 90},
		{"id": "baseball", "name": "Baseball", "category": "Team", "popularity": 85},
		{"id": "soccer", "name": "Soccer", "category": "Team", "popularity": 98},
		{"id": "tennis", "name": "Tennis", "category": "Individual", "popularity": 80},
		{"id": "cricket", "name": "Cricket", "category": "Team", "popularity": 75},
		{"id": "hockey", "name": "Hockey", "category": "Team", "popularity": 70},
		{"id": "golf", "name": "Golf", "category": "Individual", "popularity": 65},
		{"id": "esports", "name": "Esports", "category": "Team", "popularity": 60},
		{"id": "boxing", "name": "Boxing", "category": "Individual", "popularity": 55},
	}
}

// SeedLeagues is the built-in leagues catalog. ATP Tour counts players, not teams.
func SeedLeagues() []model.Record {
	return []model.Record{
		{"id": "nfl", "name": "NFL", "sport": "football", "teams": 32},
		{"id": "ncaa-fbs", "name": "NCAA FBS", "sport": "football", "teams": 133},
		{"id": "nba", "name": "NBA", "sport": "basketball", "teams": 30},
		{"id": "wnba", "name": "WNBA", "sport": "basketball", "teams": 12},
		{"id": "mlb", "name": "MLB", "sport": "baseball", "teams": 30},
		{"id": "premier-league", "name": "Premier League", "sport": "soccer", "teams": 20},
		{"id": "atp-tour", "name": "ATP Tour", "sport": "tennis", "players": 128},
	}
}

// SeedFixtures are two real upcoming fixtures.
func SeedFixtures() []model.Record {
	return []model.Record{
		{
			"id": "nfl2025wk1", "sport": "football", "league": "nfl",
			"home": "Kansas City Chiefs", "away": "Baltimore Ravens",
			"date": "2025-09-05T20:20:00Z", "status": model.StatusUpcoming,
		},
		{
			"id": "nba2025opener", "sport": "basketball", "league": "nba",
			"home": "Boston Celtics", "away": "Miami Heat",
			"date": "2025-10-22T19:30:00Z", "status": model.StatusUpcoming,
		},
	}
}

// Seed writes the built-in sports, leagues and fixtures. Existing records
// with the same ids are replaced, so seeding twice is harmless.
func Seed(ctx context.Context, store Inserter) (int, error) {
	batches := []struct {
		collection string
		records    []model.Record
	}{
		{model.Sports, SeedSports()},
		{model.Leagues, SeedLeagues()},
		{model.Fixtures, SeedFixtures()},
	}
	n := 0
	for _, b := range batches {
		for _, rec := range b.records {
			if err := store.Insert(ctx, b.collection, rec); err != nil {
				return n, fmt.Errorf("seed %s/%s: %w", b.collection, rec.ID(), err)
			}
			n++
		}
	}
	return n, nil
}
