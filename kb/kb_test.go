package kb

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/signalsfoundry/impact-simulator/model"
)

func TestAddAndGetPreset(t *testing.T) {
	store := NewKnowledgeBase()
	p := model.Preset{
		Name:       "Apophis",
		Parameters: model.AsteroidParameters{DiameterMeters: 370, DensityKgPerM3: 3200, VelocityKmPerSec: 12.6, EntryAngleDegrees: 45},
	}
	if err := store.AddPreset(p); err != nil {
		t.Fatalf("AddPreset error: %v", err)
	}
	got, err := store.GetPreset("apophis")
	if err != nil {
		t.Fatalf("GetPreset error: %v", err)
	}
	if got.Parameters.DiameterMeters != 370 {
		t.Fatalf("GetPreset returned %#v, want diameter 370", got)
	}
}

func TestAddPresetDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddPreset(model.Preset{Name: "p1"}); err != nil {
		t.Fatalf("first AddPreset error: %v", err)
	}
	if err := store.AddPreset(model.Preset{Name: "P1"}); err == nil {
		t.Fatalf("expected duplicate AddPreset to fail")
	}
	if err := store.AddPreset(model.Preset{Name: "  "}); err == nil {
		t.Fatalf("expected blank name to fail")
	}
}

func TestGetPresetNotFound(t *testing.T) {
	store := NewKnowledgeBase()
	if _, err := store.GetPreset("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("err = %v, want ErrPresetNotFound", err)
	}
}

func TestDefaultKnowledgeBaseListsBuiltinsSorted(t *testing.T) {
	store := NewDefaultKnowledgeBase()
	list := store.ListPresets()
	want := []string{"Chelyabinsk-2013", "Chicxulub-Killer", "Impactor-2025", "Tunguska-1908"}
	if len(list) != len(want) {
		t.Fatalf("ListPresets len=%d, want %d", len(list), len(want))
	}
	for i, name := range want {
		if list[i].Name != name {
			t.Fatalf("ListPresets[%d] = %q, want %q", i, list[i].Name, name)
		}
	}

	chel, err := store.GetPreset("Chelyabinsk-2013")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	wantParams := model.AsteroidParameters{DiameterMeters: 20, DensityKgPerM3: 3300, VelocityKmPerSec: 19, EntryAngleDegrees: 18}
	if chel.Parameters != wantParams {
		t.Fatalf("Chelyabinsk parameters = %+v, want %+v", chel.Parameters, wantParams)
	}
}

func TestPutPresetAndSubscribe(t *testing.T) {
	store := NewKnowledgeBase()

	var mu sync.Mutex
	var events []Event
	unsubscribe := store.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if err := store.PutPreset(model.Preset{Name: "x"}); err != nil {
		t.Fatalf("PutPreset: %v", err)
	}
	if err := store.PutPreset(model.Preset{Name: "x", Description: "again"}); err != nil {
		t.Fatalf("PutPreset: %v", err)
	}

	unsubscribe()
	if err := store.AddPreset(model.Preset{Name: "y"}); err != nil {
		t.Fatalf("AddPreset: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("received %d events, want 2", len(events))
	}
	if events[0].Type != EventPresetAdded || events[1].Type != EventPresetReplaced {
		t.Fatalf("event types = %v, %v; want added, replaced", events[0].Type, events[1].Type)
	}
	if events[1].Preset.Description != "again" {
		t.Fatalf("replaced event carried %+v", events[1].Preset)
	}
}

func TestLoadPresetsYAML(t *testing.T) {
	const doc = `
presets:
  - name: Apophis
    description: 2029 close approach
    parameters:
      diameter_m: 370
      velocity_km_s: 12.6
      entry_angle_deg: 45
  - name: Bennu
    parameters:
      diameter_m: 490
      density_kg_m3: 1190
      velocity_km_s: 12.7
      entry_angle_deg: 30
`
	store := NewKnowledgeBase()
	n, err := store.LoadPresets(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if n != 2 || store.Len() != 2 {
		t.Fatalf("loaded %d presets (len %d), want 2", n, store.Len())
	}

	apophis, err := store.GetPreset("Apophis")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	if apophis.Parameters.DensityKgPerM3 != model.DefaultDensityKgPerM3 {
		t.Fatalf("default density not applied: %+v", apophis.Parameters)
	}
	bennu, err := store.GetPreset("bennu")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	if bennu.Parameters.DensityKgPerM3 != 1190 {
		t.Fatalf("Bennu density = %v, want 1190", bennu.Parameters.DensityKgPerM3)
	}
}

func TestLoadPresetsJSON(t *testing.T) {
	const doc = `{"presets":[{"name":"Tiny","parameters":{"diameter_m":5,"density_kg_m3":2000,"velocity_km_s":11,"entry_angle_deg":80}}]}`
	store := NewDefaultKnowledgeBase()
	n, err := store.LoadPresets(strings.NewReader(doc), FormatFromPath("extra.json"))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if n != 1 || store.Len() != 5 {
		t.Fatalf("loaded %d presets (len %d), want 1 (5)", n, store.Len())
	}
}

func TestLoadPresetsErrors(t *testing.T) {
	store := NewKnowledgeBase()
	if _, err := store.LoadPresets(strings.NewReader("{"), FormatJSON); err == nil {
		t.Fatalf("expected malformed JSON to fail")
	}
	if _, err := store.LoadPresets(strings.NewReader(`{"presets":[{"name":""}]}`), FormatJSON); err == nil {
		t.Fatalf("expected unnamed preset to fail")
	}
	if _, err := store.LoadPresets(strings.NewReader(""), Format("toml")); err == nil {
		t.Fatalf("expected unsupported format to fail")
	}
}

func TestLoadPresetsRejectsWholeFile(t *testing.T) {
	store := NewDefaultKnowledgeBase()
	before := store.Len()

	var events int
	unsubscribe := store.Subscribe(func(Event) { events++ })
	defer unsubscribe()

	data := `{"presets":[
		{"name":"Apophis","parameters":{"diameter_m":370,"velocity_km_s":7.4,"entry_angle_deg":45}},
		{"name":"Tunguska-1908","parameters":{"diameter_m":80,"velocity_km_s":25,"entry_angle_deg":30}},
		{"name":"  "}
	]}`
	n, err := store.LoadPresets(strings.NewReader(data), FormatJSON)
	if err == nil {
		t.Fatalf("expected a file with an unnamed preset to fail")
	}
	if n != 0 {
		t.Fatalf("loaded = %d, want 0", n)
	}
	if got := store.Len(); got != before {
		t.Fatalf("Len() = %d after failed load, want %d", got, before)
	}
	if _, err := store.GetPreset("Apophis"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("Apophis stored from a rejected file: %v", err)
	}
	if p, _ := store.GetPreset("Tunguska-1908"); p.Parameters.DiameterMeters != 60 {
		t.Fatalf("Tunguska-1908 diameter = %v, want the built-in 60", p.Parameters.DiameterMeters)
	}
	if events != 0 {
		t.Fatalf("events = %d, want none", events)
	}
}

func TestListPresetsSortsCaseInsensitively(t *testing.T) {
	store := NewKnowledgeBase()
	for _, name := range []string{"beta", "Gamma", "alpha", "Delta"} {
		if err := store.AddPreset(model.Preset{Name: name}); err != nil {
			t.Fatalf("AddPreset(%q): %v", name, err)
		}
	}

	var got []string
	for _, p := range store.ListPresets() {
		got = append(got, p.Name)
	}
	want := []string{"alpha", "beta", "Delta", "Gamma"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ListPresets order = %v, want %v", got, want)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"presets.yaml": FormatYAML,
		"PRESETS.YML":  FormatYAML,
		"presets.json": FormatJSON,
		"presets":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewDefaultKnowledgeBase()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.PutPreset(model.Preset{Name: fmt.Sprintf("p-%d", i)})
			_ = store.ListPresets()
			_, _ = store.GetPreset("Impactor-2025")
		}(i)
	}
	wg.Wait()
	if got := store.Len(); got != 12 {
		t.Fatalf("Len = %d, want 12", got)
	}
}
