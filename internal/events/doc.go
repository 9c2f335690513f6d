// Package events turns sync-set changes and engine outcomes into
// human-readable events for the watch command.
//
// An EventGenerator renders a message for every event reason through a
// MessageTemplateEngine and hands the resulting Event to a Sink. Reasons
// that signal a problem (failed passes or resolutions) are emitted as
// warnings, everything else as normal events.
//
// Usage:
//
//	gen := events.NewEventGenerator(events.NewWriterSink(os.Stdout, false))
//	cancel := set.Subscribe(func(ev *syncset.ChangeEvent) {
//		gen.SyncSetChanged(set.Name(), ev)
//	})
//	defer cancel()
package events
