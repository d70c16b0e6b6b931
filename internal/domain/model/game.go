package model

import (
	"fmt"
	"strconv"
	"time"
)

// Fixture statuses.
const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
)

// Game is one entry of the college football games feed.
type Game struct {
	ID         int64     `json:"id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	StartDate  time.Time `json:"start_date"`
	Completed  bool      `json:"completed"`
	HomePoints *int      `json:"home_points"`
	AwayPoints *int      `json:"away_points"`
}

// FixtureID is the store id of an imported game.
func (g Game) FixtureID() string {
	return "ncaa-" + strconv.FormatInt(g.ID, 10)
}

// Fixture maps the game onto a fixtures document. The result is "TBD"
// unless both scores are reported.
func (g Game) Fixture() Record {
	status := StatusUpcoming
	if g.Completed {
		status = StatusCompleted
	}
	result := "TBD"
	if g.HomePoints != nil && g.AwayPoints != nil {
		result = fmt.Sprintf("%d-%d", *g.HomePoints, *g.AwayPoints)
	}
	return Record{
		FieldID:   g.FixtureID(),
		"sport":   "football",
		"home":    g.HomeTeam,
		"away":    g.AwayTeam,
		FieldDate: g.StartDate.UTC().Format(time.RFC3339),
		"status":  status,
		"result":  result,
	}
}
