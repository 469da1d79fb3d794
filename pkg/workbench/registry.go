package workbench

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/chazu/cambium/pkg/graph"
)

var (
	// ErrExists means a workbench ID was registered twice.
	ErrExists = errors.New("workbench already registered")
	// ErrMissing means no workbench with the given ID is registered.
	ErrMissing = errors.New("workbench not registered")
)

// Workbench is the plug-in contract. A workbench declares its identity
// and UI surface at registration time and decodes its own feature
// payloads when a document is loaded.
type Workbench interface {
	// Descriptor returns metadata describing this workbench.
	Descriptor() Descriptor

	// Configure is called once at registration to declare tools and
	// commands.
	Configure(ctx *Context)

	// DecodeFeature rebuilds a concrete feature from its stored payload.
	// Loaders use it to detect payloads the workbench can no longer read.
	DecodeFeature(data cty.Value) (Feature, error)
}

type entry struct {
	descriptor Descriptor
	workbench  Workbench
	context    Context
}

// Registry tracks registered workbenches and their declared capabilities.
type Registry struct {
	entries map[graph.WorkbenchID]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[graph.WorkbenchID]*entry)}
}

// Register adds a workbench, calling its Configure hook. It fails with
// ErrExists if the ID is already taken.
func (r *Registry) Register(wb Workbench) error {
	desc := wb.Descriptor()
	if _, taken := r.entries[desc.ID]; taken {
		return fmt.Errorf("%w: %s", ErrExists, desc.ID)
	}

	e := &entry{descriptor: desc, workbench: wb}
	wb.Configure(&e.context)
	r.entries[desc.ID] = e
	slog.Debug("registered workbench", "id", desc.ID, "tools", len(e.context.Tools()), "commands", len(e.context.Commands()))
	return nil
}

// Descriptors returns the registered workbench descriptors sorted by ID.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the workbench registered under id.
func (r *Registry) Lookup(id graph.WorkbenchID) (Workbench, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.workbench, true
}

// ToolsFor returns the tools declared by the given workbench.
func (r *Registry) ToolsFor(id graph.WorkbenchID) ([]ToolDescriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, id)
	}
	return e.context.Tools(), nil
}

// CommandsFor returns the commands declared by the given workbench.
func (r *Registry) CommandsFor(id graph.WorkbenchID) ([]CommandDescriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, id)
	}
	return e.context.Commands(), nil
}

// DecodeFeature asks the owning workbench to rebuild a feature from its
// stored payload. It fails with ErrMissing when the workbench is not
// registered, and passes through the workbench's ErrDeserialization when
// the payload is unreadable.
func (r *Registry) DecodeFeature(id graph.WorkbenchID, data cty.Value) (Feature, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, id)
	}
	return e.workbench.DecodeFeature(data)
}
