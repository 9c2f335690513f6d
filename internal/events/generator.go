package events

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"teamsync/internal/errutil"
	"teamsync/internal/formatting"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

// Sink receives generated events.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(event Event) {
	f(event)
}

// EventGenerator renders events and hands them to a sink.
type EventGenerator struct {
	sink      Sink
	templates *MessageTemplateEngine
	now       func() time.Time
}

// NewEventGenerator creates a new EventGenerator writing to sink.
func NewEventGenerator(sink Sink) *EventGenerator {
	return &EventGenerator{
		sink:      sink,
		templates: NewMessageTemplateEngine(),
		now:       time.Now,
	}
}

// Emit renders reason with data and emits the event.
func (g *EventGenerator) Emit(reason EventReason, data EventData) Event {
	data.Error = errutil.Sanitize(data.Error)
	ev := Event{
		Time:     g.now(),
		Type:     getEventType(reason),
		Reason:   reason,
		Message:  g.templates.Render(reason, data),
		Path:     data.Path,
		Revision: data.Revision,
	}

	logging.Debug("events", "Generating event: reason=%s, message=%s, type=%s",
		string(reason), ev.Message, ev.Type)

	g.sink.Emit(ev)
	return ev
}

// SyncSetChanged emits one event per entry of a sync-set change. A reset
// is announced by a SyncSetReset event first.
func (g *EventGenerator) SyncSetChanged(setName string, change *syncset.ChangeEvent) {
	if change.Reset {
		g.Emit(ReasonSyncSetReset, EventData{
			Name:     setName,
			Revision: change.Revision,
			Count:    change.Len(),
		})
	}
	for _, info := range change.Added {
		g.Emit(ReasonEntryAdded, entryData(setName, change.Revision, info))
	}
	for _, info := range change.Changed {
		g.Emit(ReasonEntryChanged, entryData(setName, change.Revision, info))
	}
	for _, info := range change.Removed {
		g.Emit(ReasonEntryRemoved, entryData(setName, change.Revision, info))
	}
}

func entryData(setName string, revision uint64, info syncset.SyncInfo) EventData {
	return EventData{Name: setName, Path: info.Path, State: info.Label(), Revision: revision}
}

// PassFailed emits a warning for an error reported by a background pass.
func (g *EventGenerator) PassFailed(entry logging.Entry) {
	data := EventData{Name: entry.Message}
	if entry.Err != nil {
		data.Error = entry.Err.Error()
	}
	g.Emit(ReasonPassFailed, data)
}

// passSubsystem is the logging subsystem of coalescer passes.
const passSubsystem = "Coalescer"

// ErrorLogged is an error sink for logging.SetErrorSink. Failed passes
// become PassFailed events; errors of other subsystems become ErrorLogged
// events naming the subsystem.
func (g *EventGenerator) ErrorLogged(entry logging.Entry) {
	if entry.Subsystem == passSubsystem {
		g.PassFailed(entry)
		return
	}
	data := EventData{Name: entry.Subsystem + ": " + entry.Message}
	if entry.Err != nil {
		data.Error = entry.Err.Error()
	}
	g.Emit(ReasonErrorLogged, data)
}

// SetTemplate allows customizing the message template for a specific event reason.
func (g *EventGenerator) SetTemplate(reason EventReason, template string) {
	g.templates.SetTemplate(reason, template)
}

// GetTemplate returns the template for a specific event reason.
func (g *EventGenerator) GetTemplate(reason EventReason) (string, bool) {
	return g.templates.GetTemplate(reason)
}

// WriterSink writes events to a writer, one line per event, or as JSON
// documents.
type WriterSink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer, asJSON bool) *WriterSink {
	return &WriterSink{w: w, json: asJSON}
}

// Emit implements Sink.
func (s *WriterSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.json {
		fmt.Fprintln(s.w, formatting.PrettyJSON(ev))
		return
	}

	kind := text.FgGreen.Sprint(string(ev.Type))
	if ev.Type == EventTypeWarning {
		kind = text.FgYellow.Sprint(string(ev.Type))
	}
	fmt.Fprintf(s.w, "%s  %-7s  %-20s  %s\n", ev.Time.Format("15:04:05"), kind, ev.Reason, ev.Message)
}

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
