// Package markers holds the labels attached to scenarios and the
// selection logic that decides which labelled scenarios run.
package markers

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Marker is a label attached to a scenario for selective execution.
type Marker string

const (
	Smoke  Marker = "smoke"
	Login  Marker = "login"
	Email  Marker = "email"
	Search Marker = "search"
)

// SelectionEnv is the environment variable read by SelectionFromEnv.
const SelectionEnv = "E2E_MARKERS"

var defaults = []struct {
	name Marker
	desc string
}{
	{Smoke, "mark test as smoke test"},
	{Login, "mark test as login test"},
	{Email, "mark test as email functionality test"},
	{Search, "mark test as search functionality test"},
}

// Registry records known markers and their descriptions.
type Registry struct {
	mu     sync.RWMutex
	labels map[Marker]string
}

// NewRegistry returns a registry holding the four default markers.
func NewRegistry() *Registry {
	r := &Registry{labels: make(map[Marker]string)}
	for _, d := range defaults {
		// cannot fail on an empty registry
		_ = r.Register(d.name, d.desc)
	}
	return r
}

// Register adds a marker. Re-registering with the same description is a
// no-op; a conflicting description is an error.
func (r *Registry) Register(name Marker, desc string) error {
	if name == "" || strings.ContainsAny(string(name), ", !") {
		return fmt.Errorf("invalid marker name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.labels[name]; ok {
		if existing == desc {
			return nil
		}
		return fmt.Errorf("marker %q already registered as %q", name, existing)
	}
	r.labels[name] = desc
	return nil
}

// Known reports whether name has been registered.
func (r *Registry) Known(name Marker) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.labels[name]
	return ok
}

// Description returns the registered description for name.
func (r *Registry) Description(name Marker) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.labels[name]
}

// Names returns every registered marker, sorted.
func (r *Registry) Names() []Marker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Marker, 0, len(r.labels))
	for name := range r.labels {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Selection is a parsed marker filter. The zero value selects everything.
type Selection struct {
	include map[Marker]struct{}
	exclude map[Marker]struct{}
}

// Parse reads a comma-separated filter such as "smoke,login" or "!search".
// Every name must be registered.
func (r *Registry) Parse(expr string) (Selection, error) {
	sel := Selection{include: map[Marker]struct{}{}, exclude: map[Marker]struct{}{}}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		target := sel.include
		if strings.HasPrefix(part, "!") {
			target = sel.exclude
			part = strings.TrimSpace(part[1:])
		}
		name := Marker(part)
		if !r.Known(name) {
			return Selection{}, fmt.Errorf("unknown marker %q (known: %v)", part, r.Names())
		}
		target[name] = struct{}{}
	}
	return sel, nil
}

// SelectionFromEnv parses E2E_MARKERS.
func (r *Registry) SelectionFromEnv() (Selection, error) {
	return r.Parse(os.Getenv(SelectionEnv))
}

// Matches reports whether a scenario carrying labels should run.
func (s Selection) Matches(labels ...Marker) bool {
	for _, l := range labels {
		if _, ok := s.exclude[l]; ok {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, l := range labels {
		if _, ok := s.include[l]; ok {
			return true
		}
	}
	return false
}

// String renders the selection back into filter syntax.
func (s Selection) String() string {
	var parts []string
	for name := range s.include {
		parts = append(parts, string(name))
	}
	for name := range s.exclude {
		parts = append(parts, "!"+string(name))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}
