package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CurryTPH/all-sports-api/internal/domain/ratelimit"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestGovernorAdmit(t *testing.T) {
	Convey("Given a governor with the default 30 per 60s", t, func() {
		clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
		gov := ratelimit.New(ratelimit.WithClock(clock.Now))

		Convey("The first 30 requests are allowed and the 31st is denied", func() {
			for i := 1; i <= 30; i++ {
				d := gov.Admit("10.0.0.1")
				So(d.Allowed, ShouldBeTrue)
				So(d.Remaining, ShouldEqual, 30-i)
				So(d.Limit, ShouldEqual, 30)
			}
			clock.Advance(10 * time.Second)
			d := gov.Admit("10.0.0.1")
			So(d.Allowed, ShouldBeFalse)
			So(d.RetryAfterSeconds, ShouldEqual, 50)
			So(d.Remaining, ShouldEqual, 0)
		})

		Convey("Retry-After rounds partial seconds up", func() {
			for range 30 {
				gov.Admit("a")
			}
			clock.Advance(59*time.Second + 100*time.Millisecond)
			d := gov.Admit("a")
			So(d.Allowed, ShouldBeFalse)
			So(d.RetryAfterSeconds, ShouldEqual, 1)
		})

		Convey("Denied requests keep counting and do not reset the window", func() {
			for range 40 {
				gov.Admit("a")
			}
			clock.Advance(30 * time.Second)
			d := gov.Admit("a")
			So(d.Allowed, ShouldBeFalse)
			So(d.RetryAfterSeconds, ShouldEqual, 30)
		})

		Convey("An expired window starts over at count 1", func() {
			for range 31 {
				gov.Admit("a")
			}
			clock.Advance(60 * time.Second)
			d := gov.Admit("a")
			So(d.Allowed, ShouldBeTrue)
			So(d.Remaining, ShouldEqual, 29)
		})

		Convey("Identities do not interact", func() {
			for range 31 {
				gov.Admit("a")
			}
			So(gov.Admit("b").Allowed, ShouldBeTrue)
			So(gov.Limited(), ShouldEqual, 1)
		})

		Convey("Empty identity shares the unknown bucket", func() {
			for range 30 {
				gov.Admit("")
			}
			So(gov.Admit(ratelimit.UnknownIdentity).Allowed, ShouldBeFalse)
			So(gov.Tracked(), ShouldEqual, 1)
		})
	})
}

func TestGovernorOptions(t *testing.T) {
	Convey("Window and max are configurable", t, func() {
		clock := &fakeClock{now: time.Unix(0, 0)}
		gov := ratelimit.New(
			ratelimit.WithClock(clock.Now),
			ratelimit.WithWindow(10*time.Second),
			ratelimit.WithMax(2),
			ratelimit.WithMax(0), // ignored
		)
		So(gov.Admit("x").Allowed, ShouldBeTrue)
		So(gov.Admit("x").Allowed, ShouldBeTrue)
		d := gov.Admit("x")
		So(d.Allowed, ShouldBeFalse)
		So(d.RetryAfterSeconds, ShouldEqual, 10)
	})
}

func TestGovernorConcurrentAdmit(t *testing.T) {
	Convey("Concurrent requests from one client never overshoot the limit", t, func() {
		gov := ratelimit.New()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if gov.Admit("burst").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		So(allowed, ShouldEqual, ratelimit.DefaultMax)
	})
}

func TestGovernorSweep(t *testing.T) {
	Convey("Sweep drops only expired windows", t, func() {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		gov := ratelimit.New(ratelimit.WithClock(clock.Now))
		gov.Admit("old")
		clock.Advance(30 * time.Second)
		gov.Admit("new")
		clock.Advance(30 * time.Second)

		So(gov.Sweep(), ShouldEqual, 1)
		So(gov.Tracked(), ShouldEqual, 1)
	})
}

func TestGovernorCounters(t *testing.T) {
	Convey("Given a governor allowing 2 per minute", t, func() {
		clock := &fakeClock{now: time.Unix(5000, 0)}
		gov := ratelimit.New(ratelimit.WithClock(clock.Now), ratelimit.WithMax(2))

		Convey("an identity is counted as limited once however far over it goes", func() {
			for range 10 {
				gov.Admit("a")
			}
			gov.Admit("b")
			So(gov.Limited(), ShouldEqual, 1)
			So(gov.Tracked(), ShouldEqual, 2)

			Convey("and stops counting when its window restarts", func() {
				clock.Advance(time.Minute)
				So(gov.Admit("a").Allowed, ShouldBeTrue)
				So(gov.Limited(), ShouldEqual, 0)
				So(gov.Tracked(), ShouldEqual, 2)
			})

			Convey("or when Sweep drops its expired window", func() {
				clock.Advance(time.Minute)
				So(gov.Sweep(), ShouldEqual, 2)
				So(gov.Limited(), ShouldEqual, 0)
				So(gov.Tracked(), ShouldEqual, 0)
			})
		})

		Convey("readers run alongside concurrent admits", func() {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(2)
				go func() {
					defer wg.Done()
					for range 50 {
						gov.Admit(string(rune('a' + i)))
					}
				}()
				go func() {
					defer wg.Done()
					for range 50 {
						_ = gov.Limited()
						_ = gov.Tracked()
					}
				}()
			}
			wg.Wait()
			So(gov.Limited(), ShouldEqual, 8)
			So(gov.Tracked(), ShouldEqual, 8)
		})
	})
}

func TestJanitorServe(t *testing.T) {
	Convey("The janitor sweeps on its ticker and stops on cancel", t, func() {
		clock := &fakeClock{now: time.Unix(0, 0)}
		gov := ratelimit.New(ratelimit.WithClock(clock.Now), ratelimit.WithWindow(time.Second))
		gov.Admit("a")
		clock.Advance(2 * time.Second)

		j := ratelimit.NewJanitor(gov, 5*time.Millisecond, logger.Nop())
		So(j.String(), ShouldEqual, "rate-janitor")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- j.Serve(ctx) }()

		deadline := time.Now().Add(time.Second)
		for gov.Tracked() != 0 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		So(gov.Tracked(), ShouldEqual, 0)

		cancel()
		So(<-done, ShouldEqual, context.Canceled)
	})
}
