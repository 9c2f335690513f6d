package changeset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"teamsync/internal/config"
	"teamsync/internal/syncset"
	"teamsync/pkg/logging"
)

// StoreType is the storage entity type change sets are saved under.
const StoreType = "changesets"

var (
	// ErrSetExists is returned when creating a set whose name is taken.
	ErrSetExists = errors.New("change set already exists")

	// ErrUnknownSet is returned for names without a change set.
	ErrUnknownSet = errors.New("unknown change set")

	// ErrDefaultSet is returned when removing the default set.
	ErrDefaultSet = errors.New("the default change set cannot be removed")

	// ErrNoLocalChange is returned when assigning a path that has no
	// outgoing or conflicting change.
	ErrNoLocalChange = errors.New("path has no local change")
)

// SetFactory creates the change sets of a Collector.
type SetFactory func(name string) *ChangeSet

// Store persists serialized change sets. config.Storage implements it.
type Store interface {
	Save(entityType, name string, data []byte) error
	Load(entityType, name string) ([]byte, error)
}

// Option configures a Collector.
type Option func(*Collector)

// WithSetFactory overrides how change sets are created.
func WithSetFactory(f SetFactory) Option {
	return func(c *Collector) {
		c.factory = f
	}
}

// WithDefaultName names the default set. The default is
// config.DefaultChangeSet.
func WithDefaultName(name string) Option {
	return func(c *Collector) {
		c.defaultName = name
	}
}

// Collector assigns the local changes of a sync set to change sets.
type Collector struct {
	source  syncset.Reader
	factory SetFactory

	mu          sync.Mutex
	sets        map[string]*ChangeSet
	defaultName string
	// revision is the last source revision applied
	revision uint64

	cancelOnce sync.Once
	cancel     func()
}

// New creates a collector following source and assigns its current local
// changes to the default set.
func New(source syncset.Reader, opts ...Option) (*Collector, error) {
	if source == nil {
		return nil, fmt.Errorf("change set collector: source sync set is required")
	}
	c := &Collector{
		source:      source,
		factory:     NewChangeSet,
		sets:        make(map[string]*ChangeSet),
		defaultName: config.DefaultChangeSet,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validateName(c.defaultName); err != nil {
		return nil, err
	}
	c.sets[c.defaultName] = c.factory(c.defaultName)

	c.cancel = source.Subscribe(c.handle)

	c.mu.Lock()
	snap := source.Snapshot()
	for _, info := range snap.All() {
		if isLocalChange(info) && c.setForLocked(info.Path) == nil {
			c.sets[c.defaultName].Add(info.Path)
		}
	}
	c.revision = snap.Revision()
	c.mu.Unlock()

	return c, nil
}

func validateName(name string) error {
	if err := config.ValidateRequired("name", name, "change set"); err != nil {
		return config.FormatValidationError("change set", name, err)
	}
	if err := config.ValidateMaxLength("name", name, 100); err != nil {
		return config.FormatValidationError("change set", name, err)
	}
	return nil
}

func isLocalChange(info syncset.SyncInfo) bool {
	return info.Direction == syncset.Outgoing || info.Direction == syncset.Conflicting
}

// handle applies a change event of the source.
func (c *Collector) handle(event *syncset.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event.Revision <= c.revision {
		return
	}
	c.revision = event.Revision

	assigned, dropped := 0, 0
	for _, list := range [][]syncset.SyncInfo{event.Added, event.Changed} {
		for _, info := range list {
			switch {
			case !isLocalChange(info):
				if c.removeLocked(info.Path) {
					dropped++
				}
			case c.setForLocked(info.Path) == nil:
				c.sets[c.defaultName].Add(info.Path)
				assigned++
			}
		}
	}
	for _, info := range event.Removed {
		if c.removeLocked(info.Path) {
			dropped++
		}
	}

	if assigned > 0 || dropped > 0 {
		logging.Debug("ChangeSets", "Revision %d: %d assigned to %s, %d dropped", event.Revision, assigned, c.defaultName, dropped)
	}
}

func (c *Collector) setForLocked(path string) *ChangeSet {
	for _, cs := range c.sets {
		if cs.Contains(path) {
			return cs
		}
	}
	return nil
}

func (c *Collector) removeLocked(path string) bool {
	removed := false
	for _, cs := range c.sets {
		if cs.Remove(path) {
			removed = true
		}
	}
	return removed
}

// CreateSet creates an empty change set.
func (c *Collector) CreateSet(name string) (*ChangeSet, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sets[name]; ok {
		return nil, fmt.Errorf("%q: %w", name, ErrSetExists)
	}
	cs := c.factory(name)
	c.sets[name] = cs
	logging.Info("ChangeSets", "Created change set %s", name)
	return cs, nil
}

// Remove deletes a change set. Its paths move to the default set.
func (c *Collector) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.sets[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownSet)
	}
	if name == c.defaultName {
		return fmt.Errorf("%q: %w", name, ErrDefaultSet)
	}
	delete(c.sets, name)
	c.sets[c.defaultName].Add(cs.Paths()...)
	logging.Info("ChangeSets", "Removed change set %s, %d paths moved to %s", name, cs.Len(), c.defaultName)
	return nil
}

// SetDefault makes name the set new local changes are assigned to.
func (c *Collector) SetDefault(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sets[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownSet)
	}
	c.defaultName = name
	return nil
}

// Default returns the default set.
func (c *Collector) Default() *ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[c.defaultName]
}

// Get returns the set called name.
func (c *Collector) Get(name string) (*ChangeSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.sets[name]
	return cs, ok
}

// Sets returns every change set sorted by name.
func (c *Collector) Sets() []*ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChangeSet, 0, len(c.sets))
	for _, cs := range c.sets {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// SetFor returns the set holding path, or nil.
func (c *Collector) SetFor(path string) *ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setForLocked(path)
}

// Assign moves path into the set called name. The path must have a local
// change in the source.
func (c *Collector) Assign(path, name string) error {
	info, ok := c.source.Snapshot().Get(path)
	if !ok || !isLocalChange(info) {
		return fmt.Errorf("assign %s: %w", path, ErrNoLocalChange)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	target, ok := c.sets[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownSet)
	}
	c.removeLocked(path)
	target.Add(path)
	return nil
}

// document is the persisted form of a collector.
type document struct {
	Default string        `yaml:"default"`
	Sets    []setDocument `yaml:"sets"`
}

type setDocument struct {
	Name    string   `yaml:"name"`
	Comment string   `yaml:"comment,omitempty"`
	Paths   []string `yaml:"paths,omitempty"`
}

// Save writes the change sets to store under name.
func (c *Collector) Save(store Store, name string) error {
	c.mu.Lock()
	doc := document{Default: c.defaultName}
	for _, cs := range c.sets {
		doc.Sets = append(doc.Sets, setDocument{Name: cs.Name(), Comment: cs.Comment(), Paths: cs.Paths()})
	}
	c.mu.Unlock()
	sort.Slice(doc.Sets, func(i, j int) bool { return doc.Sets[i].Name < doc.Sets[j].Name })

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal change sets to YAML: %w", err)
	}
	if err := store.Save(StoreType, name, data); err != nil {
		return fmt.Errorf("failed to persist change sets: %w", err)
	}
	return nil
}

// Load restores change sets saved under name. Paths that no longer have a
// local change are dropped. Nothing persisted yet is not an error.
func (c *Collector) Load(store Store, name string) error {
	data, err := store.Load(StoreType, name)
	if errors.Is(err, config.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load change sets: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse change sets: %w", err)
	}

	snap := c.source.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	restored := 0
	for _, sd := range doc.Sets {
		if err := validateName(sd.Name); err != nil {
			logging.Warn("ChangeSets", "Skipping persisted change set: %v", err)
			continue
		}
		cs, ok := c.sets[sd.Name]
		if !ok {
			cs = c.factory(sd.Name)
			c.sets[sd.Name] = cs
		}
		cs.SetComment(sd.Comment)
		for _, p := range sd.Paths {
			info, ok := snap.Get(p)
			if !ok || !isLocalChange(info) {
				continue
			}
			c.removeLocked(p)
			cs.Add(p)
			restored++
		}
	}
	if _, ok := c.sets[doc.Default]; ok {
		c.defaultName = doc.Default
	}

	logging.Info("ChangeSets", "Restored %d change sets with %d paths", len(doc.Sets), restored)
	return nil
}

// Dispose stops following the source.
func (c *Collector) Dispose() {
	c.cancelOnce.Do(c.cancel)
}
