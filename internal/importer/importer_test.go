package importer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/internal/importer"
)

const feed = `[
  {"id": 401520281, "home_team": "Alabama", "away_team": "Texas", "start_date": "2023-09-09T23:00:00.000Z", "completed": true, "home_points": 24, "away_points": 34},
  {"id": 401520300, "home_team": "Georgia", "away_team": "Auburn", "start_date": "2023-09-30T19:30:00.000Z", "completed": false, "home_points": null, "away_points": null},
  {"id": 401520281, "home_team": "Alabama", "away_team": "Texas", "start_date": "2023-09-09T23:00:00.000Z", "completed": true, "home_points": 24, "away_points": 34}
]`

func writeFeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

func TestLoadGames(t *testing.T) {
	ctx := context.Background()

	Convey("Given a feed file", t, func() {
		games, err := importer.LoadGames(ctx, writeFeed(t, feed), "", time.Second)
		So(err, ShouldBeNil)
		So(games, ShouldHaveLength, 3)
		So(games[0].HomeTeam, ShouldEqual, "Alabama")
		So(*games[0].AwayPoints, ShouldEqual, 34)
		So(games[1].HomePoints, ShouldBeNil)
	})

	Convey("Given a feed served over HTTP", t, func() {
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			if r.URL.Query().Get("fail") != "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(feed))
		}))
		defer srv.Close()

		Convey("the API key is sent as a bearer token", func() {
			games, err := importer.LoadGames(ctx, srv.URL, "secret", time.Second)
			So(err, ShouldBeNil)
			So(games, ShouldHaveLength, 3)
			So(auth, ShouldEqual, "Bearer secret")
		})

		Convey("a non-200 status is an error", func() {
			_, err := importer.LoadGames(ctx, srv.URL+"?fail=1", "", time.Second)
			So(errors.Is(err, importer.ErrFeedStatus), ShouldBeTrue)
		})
	})

	Convey("Malformed JSON fails to decode", t, func() {
		_, err := importer.LoadGames(ctx, writeFeed(t, `{"not":"a list"}`), "", time.Second)
		So(errors.Is(err, importer.ErrDecodeFeed), ShouldBeTrue)
	})

	Convey("A missing file is reported", t, func() {
		_, err := importer.LoadGames(ctx, filepath.Join(t.TempDir(), "none.json"), "", time.Second)
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty memory store", t, func() {
		store := repository.NewMemoryStore()

		Convey("a run with nothing to do fails", func() {
			_, err := importer.Run(ctx, importer.Config{}, store, nil)
			So(errors.Is(err, importer.ErrNothingToDo), ShouldBeTrue)
		})

		Convey("importing the feed skips duplicate game ids", func() {
			sum, err := importer.Run(ctx, importer.Config{Source: writeFeed(t, feed), Workers: 2}, store, nil)
			So(err, ShouldBeNil)
			So(sum.Read, ShouldEqual, 3)
			So(sum.Duplicates, ShouldEqual, 1)
			So(sum.Stored, ShouldEqual, 2)
			So(sum.Failed, ShouldEqual, 0)

			n, err := store.Count(ctx, model.Fixtures)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			recs, err := store.Find(ctx, model.Fixtures, repository.Filter{
				{Field: "id", Op: repository.OpEq, Value: "ncaa-401520281"},
			}, repository.Sort{}, 0)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0]["result"], ShouldEqual, "24-34")
			So(recs[0]["status"], ShouldEqual, model.StatusCompleted)
			So(recs[0]["date"], ShouldEqual, "2023-09-09T23:00:00Z")
		})

		Convey("seeding writes sports, leagues and two fixtures", func() {
			sum, err := importer.Run(ctx, importer.Config{Seed: true}, store, nil)
			So(err, ShouldBeNil)
			So(sum.Seeded, ShouldEqual, len(importer.SeedSports())+len(importer.SeedLeagues())+2)

			n, _ := store.Count(ctx, model.Sports)
			So(n, ShouldEqual, 10)
			n, _ = store.Count(ctx, model.Leagues)
			So(n, ShouldEqual, 7)
			n, _ = store.Count(ctx, model.Fixtures)
			So(n, ShouldEqual, 2)

			individual, err := store.Find(ctx, model.Sports, repository.Filter{
				{Field: "category", Op: repository.OpEq, Value: "Individual"},
			}, repository.Sort{Field: "name"}, 0)
			So(err, ShouldBeNil)
			So(individual, ShouldHaveLength, 3)
			So(individual[0]["name"], ShouldEqual, "Boxing")
			So(individual[0]["popularity"], ShouldEqual, 55)

			Convey("and seeding again replaces rather than duplicates", func() {
				_, err := importer.Seed(ctx, store)
				So(err, ShouldBeNil)
				n, _ := store.Count(ctx, model.Fixtures)
				So(n, ShouldEqual, 2)
			})
		})
	})
}
