package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/CurryTPH/all-sports-api/internal/app"
	"github.com/CurryTPH/all-sports-api/internal/config"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a started service on the memory store", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.RateLimitMax = 2

		svc := app.New(cfg, app.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		h := newHandler(cfg, svc, logger.Nop())
		get := func(path string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			req.RemoteAddr = "192.0.2.10:5555"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("seeded fixtures are served and the configured limit applies", func() {
			w := get("/fixtures")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "nfl2025wk1")
			convey.So(w.Header().Get("X-RateLimit-Limit"), convey.ShouldEqual, "2")

			convey.So(get("/sports").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/sports").Code, convey.ShouldEqual, http.StatusTooManyRequests)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("proxy headers are ignored by default", func() {
			convey.So(cfg.TrustProxy, convey.ShouldBeFalse)
			codes := make([]int, 0, 4)
			for i := range 4 {
				req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
				req.RemoteAddr = "192.0.2.10:5555"
				req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i)+", 198.51.100.1")
				req.Header.Set("X-Real-IP", "10.1.0."+strconv.Itoa(i))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}
			convey.So(codes, convey.ShouldResemble, []int{
				http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests,
			})
		})
	})
}
