package positioner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler fires timers synchronously from Advance.
type fakeScheduler struct {
	now    time.Duration
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.now += d
	due := append([]*fakeTimer(nil), s.timers...)
	for _, t := range due {
		if t.stopped || t.fired || t.at > s.now {
			continue
		}
		t.fired = true
		t.f()
	}
}

type fakeSource struct {
	handler  Handler
	attached int
	detached int
}

func (s *fakeSource) Attach(h Handler) func() {
	s.attached++
	s.handler = h
	return func() {
		s.detached++
		s.handler = nil
	}
}

type recorder struct {
	persisted []Transform
	failWith  error
	rendered  []Transform
	infos     []string
	errors    []string
	successes []string
}

func (r *recorder) PersistTransform(_ context.Context, t Transform) error {
	r.persisted = append(r.persisted, t)
	return r.failWith
}

func (r *recorder) Render(t Transform) { r.rendered = append(r.rendered, t) }
func (r *recorder) Success(msg string) { r.successes = append(r.successes, msg) }
func (r *recorder) Error(msg string)   { r.errors = append(r.errors, msg) }
func (r *recorder) Info(msg string)    { r.infos = append(r.infos, msg) }

type harness struct {
	p     *Positioner
	rec   *recorder
	sched *fakeScheduler
	src   *fakeSource
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{rec: &recorder{}, sched: &fakeScheduler{}, src: &fakeSource{}}
	opts = append([]Option{
		WithScheduler(h.sched),
		WithEventSource(h.src),
		WithRenderer(h.rec),
	}, opts...)
	h.p = New(h.rec, h.rec, DefaultConfig(), opts...)
	return h
}

func (h *harness) drag(from, to Point) {
	h.p.PointerDown(from)
	h.p.PointerMove(to)
	h.p.PointerUp()
}

func TestDragPansWithinBounds(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.drag(Point{X: 100, Y: 100}, Point{X: 130, Y: 80})
	assert.Equal(t, Transform{OffsetX: 30, OffsetY: -20, Scale: 1}, h.p.Transform())

	h.drag(Point{X: 0, Y: 0}, Point{X: 40, Y: 0})
	assert.Equal(t, 50.0, h.p.Transform().OffsetX)
	assert.Equal(t, -20.0, h.p.Transform().OffsetY)

	h.drag(Point{X: 0, Y: 0}, Point{X: 0, Y: -500})
	assert.Equal(t, -50.0, h.p.Transform().OffsetY)
}

func TestDragRendersButPersistsOnlyOnRelease(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.p.PointerDown(Point{X: 10, Y: 10})
	assert.Equal(t, Dragging, h.p.State())
	h.p.PointerMove(Point{X: 15, Y: 10})
	h.p.PointerMove(Point{X: 20, Y: 10})
	assert.Len(t, h.rec.rendered, 2)
	assert.False(t, h.p.Pending())

	h.p.PointerUp()
	assert.Equal(t, Editing, h.p.State())
	assert.True(t, h.p.Pending())

	h.sched.Advance(299 * time.Millisecond)
	assert.Empty(t, h.rec.persisted)
	h.sched.Advance(time.Millisecond)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, Transform{OffsetX: 10, OffsetY: 0, Scale: 1}, h.rec.persisted[0])
}

func TestWheelDuringDragPersistsOnlyOnRelease(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.p.PointerDown(Point{X: 0, Y: 0})
	h.p.PointerMove(Point{X: 10, Y: 0})
	h.p.Wheel(-1)
	h.p.PointerMove(Point{X: 20, Y: 0})
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)
	assert.Equal(t, Dragging, h.p.State())
	assert.InDelta(t, 1.1, h.p.Transform().Scale, 1e-9)

	h.p.PointerUp()
	assert.True(t, h.p.Pending())
	h.sched.Advance(300 * time.Millisecond)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, 20.0, h.rec.persisted[0].OffsetX)
	assert.InDelta(t, 1.1, h.rec.persisted[0].Scale, 1e-9)
}

func TestZoomClampsAtMaximum(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	for i := 0; i < 7; i++ {
		h.p.Zoom(0.15)
	}
	assert.Equal(t, 2.0, h.p.Transform().Scale)
	assert.Empty(t, h.rec.infos)

	h.p.Zoom(0.15)
	assert.Equal(t, 2.0, h.p.Transform().Scale)
	assert.Equal(t, []string{NoticeMaxZoom}, h.rec.infos)

	h.sched.Advance(300 * time.Millisecond)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, 2.0, h.rec.persisted[0].Scale)
}

func TestZoomAtMinimumNotifies(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.p.ZoomOut()
	assert.Equal(t, 1.0, h.p.Transform().Scale)
	assert.Equal(t, []string{NoticeMinZoom}, h.rec.infos)
	assert.False(t, h.p.Pending())
}

func TestZoomCallsCoalesceIntoOnePersist(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.p.ZoomIn()
	h.sched.Advance(200 * time.Millisecond)
	h.p.ZoomIn()
	h.sched.Advance(200 * time.Millisecond)
	assert.Empty(t, h.rec.persisted)

	h.sched.Advance(100 * time.Millisecond)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, 1.3, h.rec.persisted[0].Scale)
}

func TestWheelUsesWheelStep(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()

	h.p.Wheel(-120)
	assert.Equal(t, 1.1, h.p.Transform().Scale)
	h.p.Wheel(0)
	assert.Equal(t, 1.1, h.p.Transform().Scale)
	h.p.Wheel(53)
	assert.Equal(t, 1.0, h.p.Transform().Scale)
}

func TestResetPersistsImmediately(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.drag(Point{}, Point{X: 25, Y: 25})
	h.p.ZoomIn()

	h.p.ResetPosition()
	assert.Equal(t, Identity, h.p.Transform())
	assert.Equal(t, Idle, h.p.State())
	assert.Equal(t, 1, h.src.detached)

	h.sched.Advance(0)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, Identity, h.rec.persisted[0])
	assert.Equal(t, []string{NoticeReset}, h.rec.successes)

	// the superseded debounced write never fires
	h.sched.Advance(time.Second)
	assert.Len(t, h.rec.persisted, 1)
}

func TestResetFromIdle(t *testing.T) {
	h := newHarness(t, WithInitial(Transform{OffsetX: 12, OffsetY: -4, Scale: 1.5}))

	h.p.ResetPosition()
	h.sched.Advance(0)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, Identity, h.rec.persisted[0])
	assert.Equal(t, 0, h.src.attached)
}

func TestExitEditFlushesPending(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()

	h.p.ExitEdit()
	assert.Equal(t, Idle, h.p.State())
	assert.Equal(t, 1, h.src.detached)

	h.sched.Advance(0)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, 1.15, h.rec.persisted[0].Scale)
}

func TestExitEditWithoutChangesDoesNotPersist(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ExitEdit()
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)
}

func TestEnterEditTwiceAttachesOnce(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()
	h.p.EnterEdit()

	assert.Equal(t, 2, h.src.attached)
	assert.Equal(t, 1, h.src.detached)
	assert.Equal(t, Editing, h.p.State())

	// re-entering settled the earlier change
	h.sched.Advance(0)
	assert.Len(t, h.rec.persisted, 1)
}

func TestOutOfOrderEventsAreIgnored(t *testing.T) {
	h := newHarness(t)

	h.p.Zoom(0.15)
	h.p.PointerDown(Point{X: 1, Y: 1})
	h.p.PointerMove(Point{X: 30, Y: 30})
	h.p.PointerUp()
	assert.Equal(t, Identity, h.p.Transform())
	assert.Equal(t, Idle, h.p.State())

	h.p.EnterEdit()
	h.p.PointerMove(Point{X: 30, Y: 30})
	h.p.PointerUp()
	assert.Equal(t, Identity, h.p.Transform())
	assert.False(t, h.p.Pending())
}

func TestEventSourceDispatch(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	require.NotNil(t, h.src.handler)

	h.src.handler(FromMouse(EventPointerDown, MouseEvent{ClientX: 10, ClientY: 10}))
	ev, ok := FromTouch(EventPointerMove, []Touch{{ClientX: 20, ClientY: 5}})
	require.True(t, ok)
	h.src.handler(ev)
	ev, ok = FromTouch(EventPointerUp, nil)
	require.True(t, ok)
	h.src.handler(ev)
	h.src.handler(FromWheel(-1))
	assert.Equal(t, Transform{OffsetX: 10, OffsetY: -5, Scale: 1.1}, h.p.Transform())

	h.src.handler(FromClick(HitZoomControl))
	h.src.handler(FromClick(HitImage))
	assert.Equal(t, Editing, h.p.State())

	h.src.handler(FromClick(HitOutside))
	assert.Equal(t, Idle, h.p.State())
	assert.Nil(t, h.src.handler)
}

func TestPersistFailureKeepsLocalState(t *testing.T) {
	h := newHarness(t)
	h.rec.failWith = errors.New("503 from profile API")
	h.p.EnterEdit()
	h.p.ZoomIn()

	h.sched.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{NoticeSaveFailed}, h.rec.errors)
	assert.Equal(t, 1.15, h.p.Transform().Scale)
	assert.Equal(t, Editing, h.p.State())
}

func TestPointerDownCancelsPendingButKeepsChange(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()

	h.p.PointerDown(Point{X: 5, Y: 5})
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)

	h.p.PointerUp()
	h.sched.Advance(300 * time.Millisecond)
	require.Len(t, h.rec.persisted, 1)
	assert.Equal(t, 1.15, h.rec.persisted[0].Scale)
}

func TestPreviewZoomUsesLooserRange(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 6; i++ {
		h.p.PreviewZoom(-0.1)
	}
	assert.Equal(t, 0.5, h.p.Transform().Scale)
	assert.Equal(t, []string{NoticeMinZoom}, h.rec.infos)
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)

	// edit mode pulls the scale back into the edit range
	h.p.EnterEdit()
	assert.Equal(t, 1.0, h.p.Transform().Scale)

	h.p.PreviewZoom(0.1)
	assert.Equal(t, 1.0, h.p.Transform().Scale)
}

func TestLoadClampsAndDropsPending(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()

	h.p.Load(Transform{OffsetX: 80, OffsetY: -10, Scale: 3})
	assert.Equal(t, Transform{OffsetX: 50, OffsetY: -10, Scale: 2}, h.p.Transform())
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)
}

func TestCloseDropsPending(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()

	h.p.Close()
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.persisted)
	assert.Equal(t, 1, h.src.detached)
}

func TestNilPersisterIsAllowed(t *testing.T) {
	sched := &fakeScheduler{}
	p := New(nil, nil, DefaultConfig(), WithScheduler(sched))
	p.EnterEdit()
	p.ZoomIn()
	p.ResetPosition()
	sched.Advance(time.Second)
	assert.Equal(t, Identity, p.Transform())
}

func TestTransformCSS(t *testing.T) {
	assert.Equal(t, "translate(30px, -20px) scale(1.15)", Transform{OffsetX: 30, OffsetY: -20, Scale: 1.15}.CSS())
	assert.Equal(t, "translate(0px, 0px) scale(1)", Identity.CSS())
}

func TestFromTouchRequiresPointForMove(t *testing.T) {
	_, ok := FromTouch(EventPointerMove, nil)
	assert.False(t, ok)
	_, ok = FromTouch(EventPointerDown, []Touch{})
	assert.False(t, ok)
}

func TestRealSchedulerPersists(t *testing.T) {
	done := make(chan Transform, 1)
	cfg := DefaultConfig()
	cfg.Debounce = 10 * time.Millisecond
	p := New(PersisterFunc(func(_ context.Context, tr Transform) error {
		done <- tr
		return nil
	}), nil, cfg)

	p.EnterEdit()
	p.ZoomIn()

	select {
	case tr := <-done:
		assert.Equal(t, 1.15, tr.Scale)
	case <-time.After(2 * time.Second):
		t.Fatal("persist was not called")
	}
}

func TestFlushPersistsWithoutWaiting(t *testing.T) {
	h := newHarness(t)
	h.p.EnterEdit()
	h.p.ZoomIn()
	require.True(t, h.p.Pending())

	h.p.Flush()
	assert.False(t, h.p.Pending())
	assert.Equal(t, []Transform{{Scale: 1.15}}, h.rec.persisted)

	// the stopped timer must not persist a second time
	h.sched.Advance(time.Second)
	assert.Len(t, h.rec.persisted, 1)

	h.p.Flush()
	assert.Len(t, h.rec.persisted, 1)
}

func TestFlushWaitsForRunningPersist(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var saved []Transform
	cfg := DefaultConfig()
	cfg.Debounce = 0
	p := New(PersisterFunc(func(_ context.Context, tr Transform) error {
		close(started)
		<-release
		saved = append(saved, tr)
		return nil
	}), nil, cfg)

	p.EnterEdit()
	p.ZoomIn()
	<-started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	p.Flush()
	assert.Equal(t, []Transform{{Scale: 1.15}}, saved)
}
