package broadcast_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/CurryTPH/all-sports-api/internal/domain/broadcast"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// fakeSub records frames and can be told to fail.
type fakeSub struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed int
}

func (f *fakeSub) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("peer gone")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSub) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeSub) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSub) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func TestBroadcastPrunesFailedSubscribers(t *testing.T) {
	Convey("Given three open subscribers", t, func() {
		b := broadcast.New()
		a, bb, c := &fakeSub{}, &fakeSub{}, &fakeSub{}
		b.Subscribe(a)
		b.Subscribe(bb)
		b.Subscribe(c)
		So(b.Count(), ShouldEqual, 3)

		now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
		So(b.Tick(now), ShouldEqual, 3)

		Convey("when B's send fails it is dropped and closed", func() {
			bb.setFail(true)
			So(b.Tick(now.Add(time.Second)), ShouldEqual, 2)
			So(b.Count(), ShouldEqual, 2)
			So(bb.closed, ShouldEqual, 1)

			Convey("and the next tick reaches only A and C", func() {
				bb.setFail(false)
				So(b.Tick(now.Add(2*time.Second)), ShouldEqual, 2)
				So(a.received(), ShouldEqual, 3)
				So(c.received(), ShouldEqual, 3)
				So(bb.received(), ShouldEqual, 1)
			})
		})
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	Convey("Unsubscribe closes once and is idempotent", t, func() {
		b := broadcast.New()
		s := &fakeSub{}
		h := b.Subscribe(s)

		So(b.Unsubscribe(h), ShouldBeTrue)
		So(b.Unsubscribe(h), ShouldBeFalse)
		So(s.closed, ShouldEqual, 1)
		So(b.Count(), ShouldEqual, 0)
		So(b.Tick(time.Now()), ShouldEqual, 0)
		So(s.received(), ShouldEqual, 0)
		So(b.Events(), ShouldEqual, 1)
	})
}

func TestEventFrames(t *testing.T) {
	Convey("Each frame is one JSON LiveEvent", t, func() {
		b := broadcast.New(broadcast.WithGenerator(broadcast.NewGenerator(rand.NewPCG(1, 2))))
		s := &fakeSub{}
		b.Subscribe(s)
		now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
		b.Tick(now)

		var ev model.LiveEvent
		So(json.Unmarshal(s.frames[0], &ev), ShouldBeNil)
		So(broadcast.Sports, ShouldContain, ev.Sport)
		So(broadcast.EventTypes, ShouldContain, ev.Event)
		So(ev.Timestamp.Equal(now), ShouldBeTrue)
		So(ev.Details, ShouldStartWith, "Player ")
	})
}

func TestGenerator(t *testing.T) {
	Convey("The generator covers every sport and event type", t, func() {
		g := broadcast.NewGenerator(rand.NewPCG(42, 7))
		details := regexp.MustCompile(`^Player ([1-9]|[1-9][0-9]) (scored|committed a foul|was substituted|called a timeout)$`)
		sports := map[string]bool{}
		kinds := map[string]bool{}
		for range 2000 {
			ev := g.Next(time.Unix(0, 0))
			So(details.MatchString(ev.Details), ShouldBeTrue)
			sports[ev.Sport] = true
			kinds[ev.Event] = true
		}
		So(len(sports), ShouldEqual, len(broadcast.Sports))
		So(len(kinds), ShouldEqual, len(broadcast.EventTypes))
	})

	Convey("The same seed yields the same sequence", t, func() {
		a := broadcast.NewGenerator(rand.NewPCG(9, 9))
		b := broadcast.NewGenerator(rand.NewPCG(9, 9))
		for range 10 {
			now := time.Unix(1, 0)
			So(a.Next(now), ShouldResemble, b.Next(now))
		}
	})
}

func TestLifecycle(t *testing.T) {
	Convey("Start ticks on the interval and Stop closes subscribers", t, func() {
		b := broadcast.New(broadcast.WithInterval(5 * time.Millisecond))
		s := &fakeSub{}
		b.Subscribe(s)

		So(b.Start(context.Background()), ShouldBeNil)
		So(errors.Is(b.Start(context.Background()), broadcast.ErrAlreadyRunning), ShouldBeTrue)

		deadline := time.Now().Add(time.Second)
		for s.received() < 3 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		So(s.received(), ShouldBeGreaterThanOrEqualTo, 3)
		So(b.Running(), ShouldBeTrue)

		So(b.Stop(), ShouldBeNil)
		So(b.Running(), ShouldBeFalse)
		So(b.Count(), ShouldEqual, 0)
		So(s.closed, ShouldEqual, 1)
		So(errors.Is(b.Stop(), broadcast.ErrNotRunning), ShouldBeTrue)
	})

	Convey("Serve returns on context cancellation", t, func() {
		b := broadcast.New(broadcast.WithInterval(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- b.Serve(ctx) }()
		cancel()
		So(<-done, ShouldEqual, context.Canceled)
		So(b.String(), ShouldEqual, "live-broadcaster")
	})
}

func TestConcurrentSubscribeDuringTicks(t *testing.T) {
	Convey("Subscribing and unsubscribing while ticking keeps the count consistent", t, func() {
		b := broadcast.New()
		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					b.Tick(time.Now())
				}
			}
		}()

		handles := make([]broadcast.Handle, 0, 50)
		for range 50 {
			handles = append(handles, b.Subscribe(&fakeSub{}))
		}
		for _, h := range handles[:20] {
			b.Unsubscribe(h)
		}
		close(stop)
		wg.Wait()

		So(b.Count(), ShouldEqual, 30)
	})
}
