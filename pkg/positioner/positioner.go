package positioner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the editor mode.
type State int

const (
	Idle State = iota
	Editing
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notices surfaced through the Notifier.
const (
	NoticeMaxZoom    = "Maximum zoom reached"
	NoticeMinZoom    = "Minimum zoom reached"
	NoticeSaveFailed = "Failed to save image position"
	NoticeReset      = "Image position reset"
)

// Persister stores a settled transform, typically through the profile API.
type Persister interface {
	PersistTransform(ctx context.Context, t Transform) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, t Transform) error

func (f PersisterFunc) PersistTransform(ctx context.Context, t Transform) error { return f(ctx, t) }

// Notifier shows short user-facing messages. Calls are fire-and-forget.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Renderer applies a transform to the displayed image.
type Renderer interface {
	Render(t Transform)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(t Transform)

func (f RendererFunc) Render(t Transform) { f(t) }

// Timer is the subset of *time.Timer the positioner needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct{}

func (clock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Config holds the positioning limits and persistence timing.
type Config struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout"`
	OffsetLimit      float64       `mapstructure:"offset_limit"`
	ZoomRange        Range         `mapstructure:"zoom_range"`
	PreviewZoomRange Range         `mapstructure:"preview_zoom_range"`
	ButtonStep       float64       `mapstructure:"button_step"`
	WheelStep        float64       `mapstructure:"wheel_step"`
}

// DefaultConfig returns the limits used by the settings page.
func DefaultConfig() Config {
	return Config{
		Debounce:         300 * time.Millisecond,
		PersistTimeout:   10 * time.Second,
		OffsetLimit:      50,
		ZoomRange:        Range{Min: 1.0, Max: 2.0},
		PreviewZoomRange: Range{Min: 0.5, Max: 2.0},
		ButtonStep:       0.15,
		WheelStep:        0.1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Debounce < 0 {
		c.Debounce = 0
	}
	if c.OffsetLimit <= 0 {
		c.OffsetLimit = def.OffsetLimit
	}
	if c.ZoomRange.Max <= 0 || c.ZoomRange.Min > c.ZoomRange.Max {
		c.ZoomRange = def.ZoomRange
	}
	if c.PreviewZoomRange.Max <= 0 || c.PreviewZoomRange.Min > c.PreviewZoomRange.Max {
		c.PreviewZoomRange = def.PreviewZoomRange
	}
	if c.ButtonStep <= 0 {
		c.ButtonStep = def.ButtonStep
	}
	if c.WheelStep <= 0 {
		c.WheelStep = def.WheelStep
	}
	return c
}

// Option customizes a Positioner.
type Option func(*Positioner)

func WithRenderer(r Renderer) Option       { return func(p *Positioner) { p.renderer = r } }
func WithEventSource(s EventSource) Option { return func(p *Positioner) { p.source = s } }
func WithScheduler(s Scheduler) Option     { return func(p *Positioner) { p.scheduler = s } }
func WithLogger(l zerolog.Logger) Option   { return func(p *Positioner) { p.logger = l } }

// WithInitial starts the positioner from a previously saved transform.
func WithInitial(t Transform) Option { return func(p *Positioner) { p.t = t } }

type dragAnchor struct {
	at      Point
	offsetX float64
	offsetY float64
}

// Positioner turns drag, wheel and zoom-button input on one profile picture
// into a bounded Transform and persists settled changes, debounced.
//
// It is owned by a single editor session. Methods may be called from any
// goroutine; the debounced persist runs on the scheduler's goroutine.
type Positioner struct {
	cfg       Config
	persister Persister
	notifier  Notifier
	renderer  Renderer
	source    EventSource
	scheduler Scheduler
	logger    zerolog.Logger

	mu     sync.Mutex
	state  State
	t      Transform
	anchor dragAnchor
	detach func()
	timer  Timer
	gen    uint64
	dirty  bool // a change awaits persistence

	inflight sync.WaitGroup // scheduled or running persists
}

// New creates an idle positioner. A nil persister disables persistence and a
// nil notifier discards notices.
func New(persister Persister, notifier Notifier, cfg Config, opts ...Option) *Positioner {
	p := &Positioner{
		cfg:       cfg.withDefaults(),
		persister: persister,
		notifier:  notifier,
		renderer:  RendererFunc(func(Transform) {}),
		source:    nopSource{},
		scheduler: clock{},
		logger:    zerolog.Nop(),
		t:         Identity,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = nopNotifier{}
	}
	p.t = p.t.Clamped(p.cfg.OffsetLimit, p.cfg.PreviewZoomRange)
	p.logger = p.logger.With().Str("editor_session", uuid.NewString()).Logger()
	return p
}

// State returns the current mode.
func (p *Positioner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Transform returns the locally displayed transform.
func (p *Positioner) Transform() Transform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t
}

// Pending reports whether a persist is scheduled but has not run yet.
func (p *Positioner) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// Load replaces the transform with one read from the backend, dropping any
// pending write. It does not persist.
func (p *Positioner) Load(t Transform) {
	p.mu.Lock()
	p.cancelLocked()
	limits := p.cfg.ZoomRange
	if p.state == Idle {
		limits = p.cfg.PreviewZoomRange
	}
	p.t = t.Clamped(p.cfg.OffsetLimit, limits)
	cur := p.t
	p.mu.Unlock()

	p.renderer.Render(cur)
}

// EnterEdit makes the image interactive. Entering while already editing first
// exits and settles, so listeners are never registered twice.
func (p *Positioner) EnterEdit() {
	p.mu.Lock()
	var oldDetach func()
	if p.state != Idle {
		oldDetach = p.exitLocked()
	}
	p.state = Editing

	before := p.t
	p.t.Scale = round(p.cfg.ZoomRange.Clamp(p.t.Scale))
	changed := p.t != before
	if changed {
		p.scheduleLocked(p.cfg.Debounce)
	}
	cur := p.t
	p.mu.Unlock()

	if oldDetach != nil {
		oldDetach()
	}

	// Attach outside the lock; sources may deliver events synchronously.
	detach := p.source.Attach(p.Dispatch)

	p.mu.Lock()
	if p.state == Idle || p.detach != nil {
		// exited, or entered again, while attaching
		p.mu.Unlock()
		detach()
		return
	}
	p.detach = detach
	p.mu.Unlock()

	p.logger.Debug().Msg("entered edit mode")
	if changed {
		p.renderer.Render(cur)
	}
}

// ExitEdit leaves edit mode, removes listeners and flushes any pending
// persist immediately.
func (p *Positioner) ExitEdit() {
	p.mu.Lock()
	if p.state == Idle {
		p.mu.Unlock()
		return
	}
	detach := p.exitLocked()
	p.mu.Unlock()

	if detach != nil {
		detach()
	}
	p.logger.Debug().Msg("left edit mode")
}

// exitLocked switches to Idle and reschedules a pending persist at 0 ms.
// The returned detach func must be called without holding mu.
func (p *Positioner) exitLocked() func() {
	if p.state == Dragging && p.movedLocked() {
		p.dirty = true
	}
	p.state = Idle
	if p.dirty {
		p.scheduleLocked(0)
	}
	detach := p.detach
	p.detach = nil
	return detach
}

// PointerDown starts a drag at pt.
func (p *Positioner) PointerDown(pt Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		return
	}
	p.stopTimerLocked()
	p.state = Dragging
	p.anchor = dragAnchor{at: pt, offsetX: p.t.OffsetX, offsetY: p.t.OffsetY}
}

// PointerMove pans the image relative to the drag anchor. It does not persist.
func (p *Positioner) PointerMove(pt Point) {
	p.mu.Lock()
	if p.state != Dragging {
		p.mu.Unlock()
		return
	}
	limits := Range{Min: -p.cfg.OffsetLimit, Max: p.cfg.OffsetLimit}
	p.t.OffsetX = limits.Clamp(p.anchor.offsetX + pt.X - p.anchor.at.X)
	p.t.OffsetY = limits.Clamp(p.anchor.offsetY + pt.Y - p.anchor.at.Y)
	cur := p.t
	p.mu.Unlock()

	p.renderer.Render(cur)
}

// PointerUp ends a drag and schedules a debounced persist if the image moved.
func (p *Positioner) PointerUp() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Dragging {
		return
	}
	p.state = Editing
	if p.dirty || p.movedLocked() {
		p.scheduleLocked(p.cfg.Debounce)
	}
}

func (p *Positioner) movedLocked() bool {
	return p.t.OffsetX != p.anchor.offsetX || p.t.OffsetY != p.anchor.offsetY
}

// Zoom changes the scale by delta within the edit zoom range. At a bound the
// scale is left alone and a notice is shown instead. Ignored unless editing.
func (p *Positioner) Zoom(delta float64) {
	p.zoom(delta, p.cfg.ZoomRange, true)
}

// ZoomIn applies one zoom-button step.
func (p *Positioner) ZoomIn() { p.Zoom(p.cfg.ButtonStep) }

// ZoomOut applies one zoom-button step outwards.
func (p *Positioner) ZoomOut() { p.Zoom(-p.cfg.ButtonStep) }

// Wheel zooms by the wheel step; negative deltaY zooms in.
func (p *Positioner) Wheel(deltaY float64) {
	switch {
	case deltaY < 0:
		p.Zoom(p.cfg.WheelStep)
	case deltaY > 0:
		p.Zoom(-p.cfg.WheelStep)
	}
}

// PreviewZoom adjusts the scale of a freshly uploaded picture before edit mode
// is entered, using the looser preview range. It does not persist.
func (p *Positioner) PreviewZoom(delta float64) {
	p.zoom(delta, p.cfg.PreviewZoomRange, false)
}

func (p *Positioner) zoom(delta float64, limits Range, editing bool) {
	p.mu.Lock()
	if (p.state != Idle) != editing {
		p.mu.Unlock()
		p.logger.Debug().Str("state", p.State().String()).Msg("zoom ignored")
		return
	}

	next := round(limits.Clamp(p.t.Scale + delta))
	if next == p.t.Scale {
		p.mu.Unlock()
		if delta > 0 {
			p.notifier.Info(NoticeMaxZoom)
		} else if delta < 0 {
			p.notifier.Info(NoticeMinZoom)
		}
		return
	}

	p.t.Scale = next
	if editing {
		// PointerUp schedules the save once the drag ends.
		if p.state == Dragging {
			p.dirty = true
		} else {
			p.scheduleLocked(p.cfg.Debounce)
		}
	}
	cur := p.t
	p.mu.Unlock()

	p.renderer.Render(cur)
}

// ResetPosition restores the identity transform from any state, leaves edit
// mode and persists without debouncing.
func (p *Positioner) ResetPosition() {
	p.mu.Lock()
	p.cancelLocked()
	p.t = Identity
	var detach func()
	if p.state != Idle {
		detach = p.exitLocked()
	}
	p.scheduleLocked(0)
	cur := p.t
	p.mu.Unlock()

	p.renderer.Render(cur)
	if detach != nil {
		detach()
	}
	p.notifier.Success(NoticeReset)
}

// Dispatch routes a normalized event to the matching operation.
func (p *Positioner) Dispatch(ev Event) {
	switch ev.Kind {
	case EventPointerDown:
		p.PointerDown(ev.Point)
	case EventPointerMove:
		p.PointerMove(ev.Point)
	case EventPointerUp, EventPointerLeave:
		p.PointerUp()
	case EventWheel:
		p.Wheel(ev.DeltaY)
	case EventDocumentClick:
		p.HandleDocumentClick(ev.Hit)
	}
}

// HandleDocumentClick exits edit mode when a click lands outside both the
// image and the zoom controls.
func (p *Positioner) HandleDocumentClick(hit Hit) {
	if hit == HitOutside {
		p.ExitEdit()
	}
}

// Flush runs a scheduled persist on the calling goroutine instead of waiting
// for the debounce, then waits for any persist already running. Call it from
// the goroutine that drives the positioner, e.g. before a process exits.
func (p *Positioner) Flush() {
	p.mu.Lock()
	pending := p.timer != nil
	var gen uint64
	if pending {
		p.stopTimerLocked()
		gen = p.gen
	}
	p.mu.Unlock()

	if pending {
		p.flush(gen)
	}
	p.inflight.Wait()
}

// Close drops any pending persist and detaches listeners without saving.
// Use it when the page is torn down.
func (p *Positioner) Close() {
	p.mu.Lock()
	p.cancelLocked()
	p.state = Idle
	detach := p.detach
	p.detach = nil
	p.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// scheduleLocked replaces the single pending slot with a persist after d.
func (p *Positioner) scheduleLocked(d time.Duration) {
	p.stopTimerLocked()
	p.dirty = true
	if p.persister == nil {
		return
	}
	gen := p.gen
	p.inflight.Add(1)
	p.timer = p.scheduler.AfterFunc(d, func() {
		defer p.inflight.Done()
		p.flush(gen)
	})
}

// stopTimerLocked drops the pending timer but remembers unsaved changes.
func (p *Positioner) stopTimerLocked() {
	p.gen++
	if p.timer != nil {
		if p.timer.Stop() {
			p.inflight.Done()
		}
		p.timer = nil
	}
}

// cancelLocked drops the pending timer and forgets unsaved changes.
func (p *Positioner) cancelLocked() {
	p.stopTimerLocked()
	p.dirty = false
}

func (p *Positioner) flush(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		// superseded by a newer schedule or cancelled
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.dirty = false
	t := p.t
	p.mu.Unlock()

	ctx := context.Background()
	if p.cfg.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PersistTimeout)
		defer cancel()
	}

	if err := p.persister.PersistTransform(ctx, t); err != nil {
		p.logger.Error().Err(err).Str("transform", t.CSS()).Msg("failed to persist image position")
		p.notifier.Error(NoticeSaveFailed)
		return
	}
	p.logger.Debug().Str("transform", t.CSS()).Msg("image position saved")
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Info(string)    {}
