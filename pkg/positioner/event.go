package positioner

// Point is a pointer position in client pixels.
type Point struct {
	X float64
	Y float64
}

// Hit classifies where a document-level click landed.
type Hit int

const (
	HitOutside Hit = iota
	HitImage
	HitZoomControl
)

// EventKind enumerates the normalized input events.
type EventKind int

const (
	EventPointerDown EventKind = iota + 1
	EventPointerMove
	EventPointerUp
	EventPointerLeave
	EventWheel
	EventDocumentClick
)

// Event is the single shape every mouse, touch, wheel and click payload is
// normalized into before it reaches a Positioner.
type Event struct {
	Kind   EventKind
	Point  Point
	DeltaY float64
	Hit    Hit
}

// MouseEvent carries the fields read from a mouse event.
type MouseEvent struct {
	ClientX float64
	ClientY float64
}

// Touch is one entry of a touch event's touch list.
type Touch struct {
	ClientX float64
	ClientY float64
}

// FromMouse normalizes a mouse event.
func FromMouse(kind EventKind, m MouseEvent) Event {
	return Event{Kind: kind, Point: Point{X: m.ClientX, Y: m.ClientY}}
}

// FromTouch normalizes a touch event using its first touch point. Touch end
// events carry no touches, so an empty list is only accepted for
// EventPointerUp and EventPointerLeave.
func FromTouch(kind EventKind, touches []Touch) (Event, bool) {
	if len(touches) == 0 {
		if kind == EventPointerUp || kind == EventPointerLeave {
			return Event{Kind: kind}, true
		}
		return Event{}, false
	}
	t := touches[0]
	return Event{Kind: kind, Point: Point{X: t.ClientX, Y: t.ClientY}}, true
}

// FromWheel normalizes a wheel event. Negative deltaY scrolls up and zooms in.
func FromWheel(deltaY float64) Event {
	return Event{Kind: EventWheel, DeltaY: deltaY}
}

// FromClick normalizes a document-level click.
func FromClick(hit Hit) Event {
	return Event{Kind: EventDocumentClick, Hit: hit}
}

// Handler receives normalized events.
type Handler func(Event)

// EventSource binds a Handler to the image element and the document. Attach
// returns the function that removes every listener it registered.
type EventSource interface {
	Attach(h Handler) (detach func())
}

type nopSource struct{}

func (nopSource) Attach(Handler) func() { return func() {} }
