package broadcast

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// Sports and EventTypes are the values a synthetic event draws from.
var (
	Sports     = []string{"football", "basketball", "soccer", "baseball", "tennis"} //nolint:gochecknoglobals // read-only
	EventTypes = []string{"goal", "foul", "substitution", "timeout"}                //nolint:gochecknoglobals // read-only
)

var verbs = map[string]string{ //nolint:gochecknoglobals // read-only
	"goal":         "scored",
	"foul":         "committed a foul",
	"substitution": "was substituted",
	"timeout":      "called a timeout",
}

// Generator produces uniformly random live events.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from src. A nil src uses a
// randomly seeded PCG source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Next returns one event stamped with now.
func (g *Generator) Next(now time.Time) model.LiveEvent {
	g.mu.Lock()
	sport := Sports[g.rng.IntN(len(Sports))]
	kind := EventTypes[g.rng.IntN(len(EventTypes))]
	player := g.rng.IntN(99) + 1
	g.mu.Unlock()

	return model.LiveEvent{
		Sport:     sport,
		Event:     kind,
		Timestamp: now.UTC(),
		Details:   fmt.Sprintf("Player %d %s", player, verbs[kind]),
	}
}
