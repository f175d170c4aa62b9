package labels

import (
	"sort"
	"strings"
)

// Standard label keys.
const (
	// KeyManagedBy identifies the management system.
	KeyManagedBy = "tpunanny-managed-by"

	// KeyProject scopes workers to a logical project where the provider has
	// no native project boundary (Hetzner).
	KeyProject = "tpunanny-project"

	// KeyFleet records the worker ID prefix of the fleet that created a worker.
	KeyFleet = "tpunanny-fleet"

	// KeyAccelerator records the accelerator (or server) type of a worker.
	KeyAccelerator = "tpunanny-accelerator"
)

// ManagedBy values
const (
	ManagedByTpunanny = "tpunanny"
)

// LabelBuilder provides a fluent interface for building worker labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the manager pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyManagedBy: ManagedByTpunanny,
		},
	}
}

// WithProject adds the project label.
func (lb *LabelBuilder) WithProject(project string) *LabelBuilder {
	lb.labels[KeyProject] = Sanitize(project)
	return lb
}

// WithFleet adds the fleet label.
func (lb *LabelBuilder) WithFleet(prefix string) *LabelBuilder {
	lb.labels[KeyFleet] = Sanitize(prefix)
	return lb
}

// WithAccelerator adds the accelerator type label.
func (lb *LabelBuilder) WithAccelerator(acceleratorType string) *LabelBuilder {
	lb.labels[KeyAccelerator] = Sanitize(acceleratorType)
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector renders labels as a comma separated "k=v" selector, sorted by key.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

// SelectorForProject returns a selector matching every managed worker of a project.
func SelectorForProject(project string) string {
	return Selector(map[string]string{
		KeyManagedBy: ManagedByTpunanny,
		KeyProject:   Sanitize(project),
	})
}

// Sanitize lowercases v and replaces characters that are not valid in label
// values with dashes. Values are capped at 63 characters.
func Sanitize(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(v) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > 63 {
		out = out[:63]
	}
	return out
}
