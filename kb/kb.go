package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/impact-simulator/model"
)

// ErrPresetNotFound is returned when a named preset is not in the catalog.
var ErrPresetNotFound = errors.New("preset not found")

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventPresetAdded EventType = iota
	EventPresetReplaced
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type   EventType
	Preset model.Preset
}

// Format selects the decoder used by LoadPresets.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a decoder from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// KnowledgeBase is an in-memory, thread-safe catalog of named asteroid presets.
// Names are matched case-insensitively.
type KnowledgeBase struct {
	mu sync.RWMutex

	presets map[string]model.Preset

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty catalog.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		presets: make(map[string]model.Preset),
		subs:    make(map[int]func(Event)),
	}
}

// NewDefaultKnowledgeBase constructs a catalog seeded with model.BuiltinPresets.
func NewDefaultKnowledgeBase() *KnowledgeBase {
	kb := NewKnowledgeBase()
	for _, p := range model.BuiltinPresets() {
		// Built-in names are unique; AddPreset cannot fail here.
		_ = kb.AddPreset(p)
	}
	return kb
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddPreset adds a new preset. It returns an error if the name is empty or
// already present.
func (kb *KnowledgeBase) AddPreset(p model.Preset) error {
	k := key(p.Name)
	if k == "" {
		return fmt.Errorf("preset name is required")
	}

	kb.mu.Lock()
	if _, exists := kb.presets[k]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("preset %q already exists", p.Name)
	}
	kb.presets[k] = p
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventPresetAdded, Preset: p})
	return nil
}

// PutPreset adds or replaces a preset.
func (kb *KnowledgeBase) PutPreset(p model.Preset) error {
	k := key(p.Name)
	if k == "" {
		return fmt.Errorf("preset name is required")
	}

	kb.mu.Lock()
	_, existed := kb.presets[k]
	kb.presets[k] = p
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	ev := Event{Type: EventPresetAdded, Preset: p}
	if existed {
		ev.Type = EventPresetReplaced
	}
	notify(subs, ev)
	return nil
}

// GetPreset returns the preset with the given name.
func (kb *KnowledgeBase) GetPreset(name string) (model.Preset, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	p, ok := kb.presets[key(name)]
	if !ok {
		return model.Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return p, nil
}

// ListPresets returns a snapshot of all presets sorted by case-folded name,
// the same key lookups use.
func (kb *KnowledgeBase) ListPresets() []model.Preset {
	kb.mu.RLock()
	res := make([]model.Preset, 0, len(kb.presets))
	for _, p := range kb.presets {
		res = append(res, p)
	}
	kb.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		ki, kj := key(res[i].Name), key(res[j].Name)
		if ki != kj {
			return ki < kj
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// Len returns the number of presets.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.presets)
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// snapshotSubs must be called with kb.mu held.
func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Subscribers are notified outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}

// presetFile is the on-disk layout shared by the JSON and YAML decoders.
type presetFile struct {
	Presets []model.Preset `json:"presets" yaml:"presets"`
}

// LoadPresets decodes a preset file and adds or replaces every entry. The
// whole file is checked before anything is stored, so on error the catalog is
// unchanged. It returns the number of presets loaded.
func (kb *KnowledgeBase) LoadPresets(r io.Reader, format Format) (int, error) {
	var f presetFile
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&f); err != nil {
			return 0, fmt.Errorf("decode yaml presets: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return 0, fmt.Errorf("decode json presets: %w", err)
		}
	default:
		return 0, fmt.Errorf("unsupported preset format %q", format)
	}

	for i := range f.Presets {
		if key(f.Presets[i].Name) == "" {
			return 0, fmt.Errorf("preset[%d]: name is required", i)
		}
		f.Presets[i].Parameters = f.Presets[i].Parameters.WithDefaults()
	}
	for _, p := range f.Presets {
		if err := kb.PutPreset(p); err != nil {
			return 0, fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return len(f.Presets), nil
}
