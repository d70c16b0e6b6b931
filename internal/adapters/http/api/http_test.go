package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/CurryTPH/all-sports-api/internal/adapters/http/api"
	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/broadcast"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/internal/domain/query"
	"github.com/CurryTPH/all-sports-api/internal/domain/ratelimit"
	"github.com/CurryTPH/all-sports-api/internal/domain/types"
)

type fakeStats struct {
	hub *broadcast.Broadcaster
	gov *ratelimit.Governor
}

func (f fakeStats) Health() types.Health {
	return types.Health{Status: "ok", Subscribers: f.hub.Count(), RateLimitedClients: f.gov.Limited()}
}

func (f fakeStats) GetStats(context.Context) (types.Stats, error) {
	return types.Stats{Subscribers: f.hub.Count(), TrackedClients: f.gov.Tracked(), StoreDriver: "memory"}, nil
}

type brokenStore struct{}

func (brokenStore) Find(context.Context, string, repository.Filter, repository.Sort, int) ([]model.Record, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Insert(context.Context, string, model.Record) error {
	return errors.New("connection refused")
}

func (brokenStore) Count(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

// countingStore records how many reads reach the store.
type countingStore struct {
	repository.Store
	finds atomic.Int64
}

func (c *countingStore) Find(ctx context.Context, collection string, f repository.Filter, s repository.Sort, limit int) ([]model.Record, error) {
	c.finds.Add(1)
	return c.Store.Find(ctx, collection, f, s, limit)
}

type harness struct {
	handler http.Handler
	store   *repository.MemoryStore
	reads   *countingStore
	gov     *ratelimit.Governor
	hub     *broadcast.Broadcaster
}

func newHarness(store repository.Store, max int) *harness {
	mem, _ := store.(*repository.MemoryStore)
	reads := &countingStore{Store: store}
	gov := ratelimit.New(ratelimit.WithMax(max))
	hub := broadcast.New()
	srv := api.NewServer(api.Dependencies{
		Governor: gov,
		Resolver: query.New(reads),
		Live:     hub,
		Stats:    fakeStats{hub: hub, gov: gov},
	}, api.WithTrustProxy(true), api.WithOutboxSize(4))
	return &harness{handler: srv.Routes(), store: mem, reads: reads, gov: gov, hub: hub}
}

func (h *harness) do(method, target, body string, ip string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decodeList(w *httptest.ResponseRecorder) []map[string]any {
	var out []map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func decodeError(w *httptest.ResponseRecorder) string {
	var out types.ErrorResponse
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out.Error
}

func TestRateGate(t *testing.T) {
	Convey("Given a governor allowing 3 requests per window", t, func() {
		h := newHarness(repository.NewMemoryStore(), 3)

		Convey("the fourth request from one client is rejected", func() {
			for i := range 3 {
				w := h.do(http.MethodGet, "/sports", "", "203.0.113.7")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("X-RateLimit-Limit"), ShouldEqual, "3")
				So(w.Header().Get("X-RateLimit-Remaining"), ShouldEqual, strconv.Itoa(2-i))
			}
			So(h.reads.finds.Load(), ShouldEqual, 3)
			w := h.do(http.MethodGet, "/sports", "", "203.0.113.7")
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w), ShouldEqual, api.RateLimitMessage)
			So(h.reads.finds.Load(), ShouldEqual, 3)
			retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
			So(err, ShouldBeNil)
			So(retry, ShouldBeBetweenOrEqual, 1, 60)

			Convey("while other clients are unaffected", func() {
				So(h.do(http.MethodGet, "/sports", "", "198.51.100.1").Code, ShouldEqual, http.StatusOK)
			})

			Convey("and /healthz and /metrics stay reachable", func() {
				w := h.do(http.MethodGet, "/healthz", "", "203.0.113.7")
				So(w.Code, ShouldEqual, http.StatusOK)
				var health types.Health
				So(json.Unmarshal(w.Body.Bytes(), &health), ShouldBeNil)
				So(health.RateLimitedClients, ShouldEqual, 1)
				So(h.do(http.MethodGet, "/metrics", "", "203.0.113.7").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestRateGateClientIdentity(t *testing.T) {
	send := func(handler http.Handler, peer, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/sports", http.NoBody)
		req.RemoteAddr = peer + ":40000"
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}
	newHandler := func(opts ...api.Option) http.Handler {
		gov := ratelimit.New(ratelimit.WithMax(3))
		hub := broadcast.New()
		return api.NewServer(api.Dependencies{
			Governor: gov,
			Resolver: query.New(repository.NewMemoryStore()),
			Live:     hub,
			Stats:    fakeStats{hub: hub, gov: gov},
		}, opts...).Routes()
	}

	Convey("Given a server with default client identity", t, func() {
		handler := newHandler()

		Convey("spoofed proxy headers from one peer share one window", func() {
			var codes []int
			for i := range 5 {
				req := httptest.NewRequest(http.MethodGet, "/sports", http.NoBody)
				req.RemoteAddr = "203.0.113.9:40000"
				req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
				req.Header.Set("X-Real-IP", "10.1.0."+strconv.Itoa(i))
				req.Header.Set("True-Client-IP", "10.2.0."+strconv.Itoa(i))
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}
			So(codes, ShouldResemble, []int{200, 200, 200, 429, 429})
		})
	})

	Convey("Given a server trusting one proxy hop", t, func() {
		handler := newHandler(api.WithTrustProxy(true))

		Convey("rotating the leftmost X-Forwarded-For entry does not reset the window", func() {
			for i := range 3 {
				So(send(handler, "192.0.2.1", "10.0.0."+strconv.Itoa(i)+", 198.51.100.1"), ShouldEqual, http.StatusOK)
			}
			So(send(handler, "192.0.2.1", "10.0.0.99, 198.51.100.1"), ShouldEqual, http.StatusTooManyRequests)

			Convey("while a different proxied client gets its own window", func() {
				So(send(handler, "192.0.2.1", "10.0.0.1, 198.51.100.2"), ShouldEqual, http.StatusOK)
			})
		})

		Convey("a malformed entry falls back to the peer address", func() {
			for range 3 {
				So(send(handler, "192.0.2.7", "not-an-ip"), ShouldEqual, http.StatusOK)
			}
			So(send(handler, "192.0.2.7", ""), ShouldEqual, http.StatusTooManyRequests)
		})
	})
}

func TestKeyByProxyHop(t *testing.T) {
	Convey("KeyByProxyHop", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.0.2.1:5555"

		Convey("uses the last entry of the last header line", func() {
			req.Header.Add("X-Forwarded-For", "10.0.0.1")
			req.Header.Add("X-Forwarded-For", "10.0.0.2, 198.51.100.4")
			key, err := api.KeyByProxyHop(req)
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "198.51.100.4")
		})

		Convey("ignores X-Real-IP and True-Client-IP", func() {
			req.Header.Set("X-Real-IP", "10.9.9.9")
			req.Header.Set("True-Client-IP", "10.8.8.8")
			key, err := api.KeyByProxyHop(req)
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "192.0.2.1")
		})
	})
}

func TestCollections(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty fixtures collection", t, func() {
		h := newHarness(repository.NewMemoryStore(), 1000)

		Convey("fixtures fall back to the sample dataset", func() {
			w := h.do(http.MethodGet, "/fixtures?sport=football&count=2", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("X-Fallback-Data"), ShouldEqual, "true")
			list := decodeList(w)
			So(list, ShouldHaveLength, 1)
			So(list[0]["id"], ShouldEqual, "f1")
		})

		Convey("other collections return an empty array", func() {
			w := h.do(http.MethodGet, "/teams", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			So(w.Header().Get("X-Fallback-Data"), ShouldBeEmpty)
		})

		Convey("validation failures are 400 with a message", func() {
			cases := map[string]string{
				"/sports?count=abc":        "Invalid count",
				"/sports?count=0":          "Invalid count",
				"/teams?sortBy=salary":     "sortBy",
				"/fixtures?status=pending": "status",
				"/fixtures?startDate=soon": "startDate",
				"/leagues?order=sideways":  "order",
			}
			for target, want := range cases {
				w := h.do(http.MethodGet, target, "", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w), ShouldContainSubstring, want)
			}
		})

		Convey("a stored fixture is listed and looked up", func() {
			So(h.store.Insert(ctx, model.Fixtures, model.Record{
				"id": "nfl2025wk1", "sport": "football", "home": "Kansas City Chiefs",
				"away": "Baltimore Ravens", "date": "2025-09-05T20:20:00Z", "status": "upcoming",
			}), ShouldBeNil)

			w := h.do(http.MethodGet, "/fixtures?sport=Football", "", "")
			So(w.Header().Get("X-Fallback-Data"), ShouldBeEmpty)
			So(decodeList(w), ShouldHaveLength, 1)

			w = h.do(http.MethodGet, "/fixtures/nfl2025wk1", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Baltimore Ravens")

			w = h.do(http.MethodGet, "/fixtures/nope", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w), ShouldEqual, "not found")
		})
	})

	Convey("Given a store that is down", t, func() {
		h := newHarness(brokenStore{}, 1000)
		w := h.do(http.MethodGet, "/teams", "", "")
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(decodeError(w), ShouldEqual, "internal server error")
	})
}

func TestFanStats(t *testing.T) {
	Convey("Given the fan stats endpoint", t, func() {
		h := newHarness(repository.NewMemoryStore(), 1000)

		Convey("a valid stat is stored and listed", func() {
			w := h.do(http.MethodPost, "/fan-stats",
				`{"sport":"Basketball","team":"Celtics","player":"Tatum","stat":"points","value":31}`, "")
			So(w.Code, ShouldEqual, http.StatusCreated)
			var rec map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &rec), ShouldBeNil)
			So(rec["id"], ShouldNotBeEmpty)
			So(rec["sport"], ShouldEqual, "basketball")

			list := decodeList(h.do(http.MethodGet, "/fan-stats?team=Celtics", "", ""))
			So(list, ShouldHaveLength, 1)
		})

		Convey("an invalid stat is rejected", func() {
			w := h.do(http.MethodPost, "/fan-stats", `{"sport":"basketball","value":-1}`, "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w), ShouldStartWith, "Invalid fan stat")
		})

		Convey("malformed JSON and unknown fields are rejected", func() {
			So(h.do(http.MethodPost, "/fan-stats", `{`, "").Code, ShouldEqual, http.StatusBadRequest)
			w := h.do(http.MethodPost, "/fan-stats", `{"sport":"x","bogus":true}`, "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w), ShouldEqual, "Invalid JSON body")
		})
	})
}

func TestMiscRoutes(t *testing.T) {
	Convey("Given the router", t, func() {
		h := newHarness(repository.NewMemoryStore(), 1000)

		Convey("/ returns the welcome message", func() {
			var body types.Welcome
			So(json.Unmarshal(h.do(http.MethodGet, "/", "", "").Body.Bytes(), &body), ShouldBeNil)
			So(body.Message, ShouldStartWith, "Welcome to the All Sports API")
			So(body.Docs, ShouldEqual, "/docs")
		})

		Convey("/docs lists the endpoints", func() {
			var body types.Docs
			So(json.Unmarshal(h.do(http.MethodGet, "/docs", "", "").Body.Bytes(), &body), ShouldBeNil)
			So(body.Endpoints, ShouldContainKey, "/fixtures")
			So(body.Endpoints["/fixtures"].Parameters["sortBy"], ShouldEqual, "one of date, home, away")
		})

		Convey("/dashboard serves HTML", func() {
			w := h.do(http.MethodGet, "/dashboard", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "/live")
		})

		Convey("/stats returns JSON", func() {
			w := h.do(http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"storeDriver":"memory"`)
		})

		Convey("unknown routes are JSON 404s", func() {
			w := h.do(http.MethodGet, "/odds", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w), ShouldEqual, "not found")
		})

		Convey("CORS preflight is answered", func() {
			req := httptest.NewRequest(http.MethodOptions, "/sports", http.NoBody)
			req.Header.Set("Origin", "https://example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			w := httptest.NewRecorder()
			h.handler.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestLiveStream(t *testing.T) {
	Convey("Given a websocket client on /live", t, func() {
		h := newHarness(repository.NewMemoryStore(), 1000)
		srv := httptest.NewServer(h.handler)
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer func() { _ = conn.Close() }()

		deadline := time.Now().Add(2 * time.Second)
		for h.hub.Count() < 1 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		So(h.hub.Count(), ShouldEqual, 1)

		Convey("each tick arrives as one JSON event", func() {
			So(h.hub.Tick(time.Now()), ShouldEqual, 1)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, data, err := conn.ReadMessage()
			So(err, ShouldBeNil)
			var ev model.LiveEvent
			So(json.Unmarshal(data, &ev), ShouldBeNil)
			So(broadcast.Sports, ShouldContain, ev.Sport)
			So(broadcast.EventTypes, ShouldContain, ev.Event)
		})

		Convey("disconnecting removes the subscriber", func() {
			So(conn.Close(), ShouldBeNil)
			deadline := time.Now().Add(2 * time.Second)
			for h.hub.Count() > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(h.hub.Count(), ShouldEqual, 0)
		})
	})
}
