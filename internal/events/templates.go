package events

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MessageTemplateEngine provides dynamic message generation for events.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	templates map[EventReason]string
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[EventReason]string),
	}
	engine.loadDefaultTemplates()
	return engine
}

// loadDefaultTemplates initializes the default message templates for all event reasons.
func (e *MessageTemplateEngine) loadDefaultTemplates() {
	// Sync set templates
	e.templates[ReasonEntryAdded] = "{{.Path}} is {{.State}}"
	e.templates[ReasonEntryChanged] = "{{.Path}} is now {{.State}}"
	e.templates[ReasonEntryRemoved] = "{{.Path}} is in sync"
	e.templates[ReasonSyncSetReset] = "Sync set {{.Name}} recomputed{{if .Count}}, {{.Count}} resources changed state{{end}}"

	// Engine templates
	e.templates[ReasonWatchStarted] = "Watching {{.Name}} with {{.Count}} out-of-sync resources"
	e.templates[ReasonPassFailed] = "{{.Name}}{{if .Error}}: {{.Error}}{{end}}"
	e.templates[ReasonErrorLogged] = "{{.Name}}{{if .Error}}: {{.Error}}{{end}}"

	// Change set templates
	e.templates[ReasonChangeSetCreated] = "Change set {{.Name}} created"
	e.templates[ReasonChangeSetRemoved] = "Change set {{.Name}} removed{{if .Count}}, {{.Count}} resources moved to the default set{{end}}"

	// Resolution templates
	e.templates[ReasonResolutionSucceeded] = "{{.Name}} completed{{if .Duration}} in {{.Duration}}{{end}}"
	e.templates[ReasonResolutionFailed] = "{{.Name}} failed{{if .Error}}: {{.Error}}{{end}}"
}

// Render generates a message for the given reason using the provided data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	tmpl, ok := e.GetTemplate(reason)
	if !ok {
		return fmt.Sprintf("Event %s occurred for %s", string(reason), data.Name+data.Path)
	}
	return expand(tmpl, data)
}

// SetTemplate replaces the template of reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, template string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[reason] = template
}

// GetTemplate returns the template of reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	template, ok := e.templates[reason]
	return template, ok
}

const endMarker = "{{end}}"

// expand resolves the {{if .Field}}...{{end}} blocks of tmpl and then
// substitutes the {{.Field}} placeholders.
func expand(tmpl string, data EventData) string {
	conditions := []struct {
		field string
		set   bool
	}{
		{"Error", data.Error != ""},
		{"Duration", data.Duration > 0},
		{"Count", data.Count > 0},
	}
	for _, c := range conditions {
		tmpl = expandBlock(tmpl, "{{if ."+c.field+"}}", c.set)
	}

	duration := ""
	if data.Duration > 0 {
		duration = data.Duration.String()
	}
	return strings.NewReplacer(
		"{{.Name}}", data.Name,
		"{{.Path}}", data.Path,
		"{{.State}}", data.State,
		"{{.Error}}", data.Error,
		"{{.Revision}}", strconv.FormatUint(data.Revision, 10),
		"{{.Count}}", strconv.Itoa(data.Count),
		"{{.Duration}}", duration,
	).Replace(tmpl)
}

// expandBlock keeps or drops the first block opened by start. Templates
// without the block, or with an unterminated one, are returned unchanged.
func expandBlock(tmpl, start string, keep bool) string {
	open := strings.Index(tmpl, start)
	if open < 0 {
		return tmpl
	}
	body := tmpl[open+len(start):]
	end := strings.Index(body, endMarker)
	if end < 0 {
		return tmpl
	}
	var inner string
	if keep {
		inner = body[:end]
	}
	return tmpl[:open] + inner + body[end+len(endMarker):]
}
