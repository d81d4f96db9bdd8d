package mdstream

// Renderer receives parse events from a Parser. Calls arrive synchronously
// and well nested: every EndToken carries the kind opened by the matching
// AddToken, and SetAttr only targets the most recently opened node.
//
// The context value is owned by the implementation. The parser passes it
// through unchanged and never reads it.
type Renderer[T any] interface {
	AddToken(ctx T, token Token)
	EndToken(ctx T, token Token)
	AddText(ctx T, text string)
	SetAttr(ctx T, attr Attr, value string)
}

// errorReporter is implemented by renderer contexts that record write
// failures out of band.
type errorReporter interface {
	Err() error
}

// EventKind names one of the four Renderer calls.
type EventKind uint8

const (
	EventAddToken EventKind = iota
	EventEndToken
	EventAddText
	EventSetAttr
)

func (k EventKind) String() string {
	switch k {
	case EventAddToken:
		return "ADDTOKEN"
	case EventEndToken:
		return "ENDTOKEN"
	case EventAddText:
		return "ADDTEXT"
	case EventSetAttr:
		return "SETATTR"
	}
	return "UNKNOWN"
}

// Event is a recorded Renderer call. Text holds the text of AddText and the
// value of SetAttr.
type Event struct {
	Kind  EventKind
	Token Token
	Attr  Attr
	Text  string
}

// EventLog is the context of EventRecorder.
type EventLog struct {
	Events []Event
}

// Reset drops recorded events and keeps the backing storage.
func (l *EventLog) Reset() {
	l.Events = l.Events[:0]
}

// Coalesced returns the events with adjacent AddText calls merged.
func (l *EventLog) Coalesced() []Event {
	out := make([]Event, 0, len(l.Events))
	for _, ev := range l.Events {
		if ev.Kind == EventAddText && len(out) > 0 && out[len(out)-1].Kind == EventAddText {
			out[len(out)-1].Text += ev.Text
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventRecorder is a Renderer that appends every call to an EventLog.
type EventRecorder struct{}

func (EventRecorder) AddToken(l *EventLog, token Token) {
	l.Events = append(l.Events, Event{Kind: EventAddToken, Token: token})
}

func (EventRecorder) EndToken(l *EventLog, token Token) {
	l.Events = append(l.Events, Event{Kind: EventEndToken, Token: token})
}

func (EventRecorder) AddText(l *EventLog, text string) {
	l.Events = append(l.Events, Event{Kind: EventAddText, Text: text})
}

func (EventRecorder) SetAttr(l *EventLog, attr Attr, value string) {
	l.Events = append(l.Events, Event{Kind: EventSetAttr, Attr: attr, Text: value})
}
