package document

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/chazu/cambium/pkg/graph"
	"github.com/chazu/cambium/pkg/workbench"
)

// Document is the primary aggregate persisted by the application: one
// dependency graph, a body collection, per-workbench storage, asset
// references, and an append-only revision history.
type Document struct {
	meta    metadata
	graph   *graph.DepGraph
	bodies  []*Body
	storage map[graph.WorkbenchID]ctyjson.SimpleJSONValue
	assets  map[graph.AssetID]*AssetReference
	history []Revision
}

// metadata is the lightweight block stored alongside the document payload.
type metadata struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Revision uint64    `json:"revision"`
	Dirty    bool      `json:"dirty"`
}

// New creates an empty document with a fresh identity.
func New(name string) *Document {
	return &Document{
		meta:    metadata{ID: uuid.New(), Name: name},
		graph:   graph.New(),
		storage: make(map[graph.WorkbenchID]ctyjson.SimpleJSONValue),
		assets:  make(map[graph.AssetID]*AssetReference),
	}
}

// ID returns the document's identity.
func (d *Document) ID() uuid.UUID { return d.meta.ID }

// Name returns the document's display name.
func (d *Document) Name() string { return d.meta.Name }

// SetName renames the document.
func (d *Document) SetName(name string) {
	d.meta.Name = name
	d.MarkDirty()
}

// Revision returns the document-wide revision counter.
func (d *Document) Revision() uint64 { return d.meta.Revision }

// Dirty reports whether the document has unsaved modifications.
func (d *Document) Dirty() bool { return d.meta.Dirty }

// MarkDirty flags the document as modified since the last save.
func (d *Document) MarkDirty() { d.meta.Dirty = true }

// MarkClean clears the modified flag, typically after a successful save.
func (d *Document) MarkClean() { d.meta.Dirty = false }

// Graph exposes the dependency graph for read access. The shell renders
// from it but mutates only through the document API.
func (d *Document) Graph() *graph.DepGraph { return d.graph }

// ---------------------------------------------------------------------------
// Features
// ---------------------------------------------------------------------------

// AddFeature serializes a workbench feature through its capability,
// wraps it in a fresh record, and inserts it into the graph with its
// declared dependencies. The empty name falls back to the feature's own.
func (d *Document) AddFeature(f workbench.Feature, name string) (graph.FeatureID, error) {
	return d.AddFeatureInBody(f, name, nil)
}

// AddFeatureInBody is AddFeature with an optional owning body for
// hierarchy purposes. The body, when given, must exist.
func (d *Document) AddFeatureInBody(f workbench.Feature, name string, body *graph.BodyID) (graph.FeatureID, error) {
	if body != nil && d.Body(*body) == nil {
		return graph.FeatureID{}, fmt.Errorf("document: %w: body %s", graph.ErrNotFound, body.String())
	}

	val, err := workbench.Encode(f)
	if err != nil {
		return graph.FeatureID{}, fmt.Errorf("document: add feature: %w", err)
	}
	if name == "" {
		name = f.Name()
	}

	rec := graph.NewRecord(f.WorkbenchID(), name, ctyjson.SimpleJSONValue{Value: val})
	rec.Body = body
	if err := d.graph.Add(rec, f.Dependencies()); err != nil {
		return graph.FeatureID{}, err
	}
	d.MarkDirty()
	return rec.ID, nil
}

// FeatureData returns a feature's opaque payload. Absence is not an
// error: the second return is false for unknown IDs.
func (d *Document) FeatureData(id graph.FeatureID) (cty.Value, bool) {
	rec := d.graph.Get(id)
	if rec == nil {
		return cty.NilVal, false
	}
	return rec.Data.Value, true
}

// FeatureMeta returns the full record (identity, flags, payload), or nil.
func (d *Document) FeatureMeta(id graph.FeatureID) *graph.FeatureRecord {
	return d.graph.Get(id)
}

// UpdateFeatureData replaces a feature's payload. It deliberately does
// not mark the feature dirty: deciding what changed and what needs
// recomputation are separate, composable calls, so several payload edits
// can share one dirty-propagation pass.
func (d *Document) UpdateFeatureData(id graph.FeatureID, data cty.Value) error {
	rec := d.graph.Get(id)
	if rec == nil {
		return fmt.Errorf("document: %w: %s", graph.ErrNotFound, id.Short())
	}
	rec.Data = ctyjson.SimpleJSONValue{Value: data}
	rec.Unreadable = false
	d.MarkDirty()
	return nil
}

// UpdateFeature re-serializes a feature and atomically replaces both its
// payload and its declared dependency edges. On any failure (unknown
// dependency, cycle) neither is changed.
func (d *Document) UpdateFeature(id graph.FeatureID, f workbench.Feature) error {
	val, err := workbench.Encode(f)
	if err != nil {
		return fmt.Errorf("document: update feature: %w", err)
	}
	if err := d.graph.UpdateDependencies(id, f.Dependencies()); err != nil {
		return err
	}
	rec := d.graph.Get(id)
	rec.Data = ctyjson.SimpleJSONValue{Value: val}
	rec.Unreadable = false
	d.MarkDirty()
	return nil
}

// RemoveFeature deletes a feature, or with cascade its whole dependent
// subtree, deepest dependents first. Bodies whose root pointed at a
// removed feature are left unbound rather than dangling.
func (d *Document) RemoveFeature(id graph.FeatureID, cascade bool) error {
	if err := d.graph.Remove(id, cascade); err != nil {
		return err
	}
	for _, b := range d.bodies {
		if !b.RootFeature.IsZero() && d.graph.Get(b.RootFeature) == nil {
			b.RootFeature = graph.FeatureID{}
			b.Dirty = true
		}
	}
	d.MarkDirty()
	return nil
}

// MarkFeatureDirty flags a feature and all its transitive dependents for
// recomputation.
func (d *Document) MarkFeatureDirty(id graph.FeatureID) error {
	if err := d.graph.MarkDirty(id); err != nil {
		return err
	}
	d.MarkDirty()
	return nil
}

// ClearFeatureDirty clears one feature's dirty flag after its external
// recomputation succeeded.
func (d *Document) ClearFeatureDirty(id graph.FeatureID) error {
	return d.graph.ClearDirty(id)
}

// DirtyFeatures returns every dirty feature, in deterministic order.
func (d *Document) DirtyFeatures() []graph.FeatureID {
	return d.graph.DirtyFeatures()
}

// RecomputeOrder returns the dirty features ordered so each appears
// after all of its dependencies. Callers run external recomputation per
// feature and clear its flag on success; a failed feature stays dirty.
func (d *Document) RecomputeOrder() ([]graph.FeatureID, error) {
	return d.graph.RecomputeOrder(d.graph.DirtyFeatures())
}

// ---------------------------------------------------------------------------
// Workbench storage
// ---------------------------------------------------------------------------

// SetWorkbenchStorage stores per-workbench scratch state outside the
// feature graph. Last write wins.
func (d *Document) SetWorkbenchStorage(id graph.WorkbenchID, data cty.Value) {
	d.storage[id] = ctyjson.SimpleJSONValue{Value: data}
	d.MarkDirty()
}

// WorkbenchStorage fetches a workbench's scratch state.
func (d *Document) WorkbenchStorage(id graph.WorkbenchID) (cty.Value, bool) {
	v, ok := d.storage[id]
	if !ok {
		return cty.NilVal, false
	}
	return v.Value, true
}

// ---------------------------------------------------------------------------
// Bodies
// ---------------------------------------------------------------------------

// CreateBody adds a body, optionally bound to a root feature (pass the
// zero FeatureID for an unbound body). An empty name is auto-numbered
// body, body_1, body_2, ...
func (d *Document) CreateBody(name string, root graph.FeatureID) (graph.BodyID, error) {
	if !root.IsZero() && d.graph.Get(root) == nil {
		return graph.BodyID{}, fmt.Errorf("document: body root: %w: %s", graph.ErrNotFound, root.Short())
	}
	if name == "" {
		names := make([]string, 0, len(d.bodies))
		for _, b := range d.bodies {
			names = append(names, b.Name)
		}
		name = nextIndexedName("body", names)
	}

	b := &Body{
		ID:          graph.NewBodyID(),
		Name:        name,
		RootFeature: root,
		CreatedAt:   time.Now().UnixMilli(),
	}
	d.bodies = append(d.bodies, b)
	d.MarkDirty()
	return b.ID, nil
}

// Body returns the body with the given ID, or nil.
func (d *Document) Body(id graph.BodyID) *Body {
	for _, b := range d.bodies {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Bodies returns all bodies in creation order.
func (d *Document) Bodies() []*Body {
	return d.bodies
}

// HasBodies reports whether the document contains at least one body.
func (d *Document) HasBodies() bool {
	return len(d.bodies) > 0
}

// RemoveBody deletes a body. Features it referenced are kept: they may
// be shared with other bodies or retained for history.
func (d *Document) RemoveBody(id graph.BodyID) error {
	for i, b := range d.bodies {
		if b.ID == id {
			d.bodies = append(d.bodies[:i], d.bodies[i+1:]...)
			d.MarkDirty()
			return nil
		}
	}
	return fmt.Errorf("document: %w: body %s", graph.ErrNotFound, id.String())
}

// MarkBodyDirty flags a body's geometry as stale.
func (d *Document) MarkBodyDirty(id graph.BodyID) error {
	b := d.Body(id)
	if b == nil {
		return fmt.Errorf("document: %w: body %s", graph.ErrNotFound, id.String())
	}
	b.Dirty = true
	return nil
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

// AddAsset registers a reference to an externally-imported file. The
// byte content itself is supplied to the persistence layer at save time.
func (d *Document) AddAsset(ref *AssetReference) (graph.AssetID, error) {
	if ref == nil || ref.ID.IsZero() {
		return graph.AssetID{}, fmt.Errorf("document: asset reference must carry an ID")
	}
	if !ref.validPath() {
		return graph.AssetID{}, fmt.Errorf("document: asset path %q is not a clean assets/ path", ref.Path)
	}
	d.assets[ref.ID] = ref
	d.MarkDirty()
	return ref.ID, nil
}

// Asset returns the reference with the given ID.
func (d *Document) Asset(id graph.AssetID) (*AssetReference, bool) {
	ref, ok := d.assets[id]
	return ref, ok
}

// AssetPath returns an asset's archive-relative path.
func (d *Document) AssetPath(id graph.AssetID) (string, bool) {
	ref, ok := d.assets[id]
	if !ok {
		return "", false
	}
	return ref.Path, true
}

// Assets returns all asset references sorted by import time then path.
func (d *Document) Assets() []*AssetReference {
	out := make([]*AssetReference, 0, len(d.assets))
	for _, ref := range d.assets {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ImportedAt != out[j].ImportedAt {
			return out[i].ImportedAt < out[j].ImportedAt
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// PushRevision appends a snapshot descriptor to the history and bumps
// the revision counter. History entries are never mutated afterwards.
func (d *Document) PushRevision(message string) {
	d.history = append(d.history, Revision{
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
	d.meta.Revision++
}

// History returns the revision log, oldest first.
func (d *Document) History() []Revision {
	return d.history
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the graph invariants plus the document-level
// references (body roots, asset paths). Loaders refuse documents with
// findings; under normal operation the API keeps all of these true.
func (d *Document) Validate() []graph.ValidationError {
	errs := d.graph.Validate()

	seen := make(map[graph.BodyID]struct{}, len(d.bodies))
	for _, b := range d.bodies {
		if _, dup := seen[b.ID]; dup {
			errs = append(errs, graph.ValidationError{Message: fmt.Sprintf("duplicate body ID %s", b.ID.String())})
		}
		seen[b.ID] = struct{}{}
		if !b.RootFeature.IsZero() && d.graph.Get(b.RootFeature) == nil {
			errs = append(errs, graph.ValidationError{
				FeatureID: b.RootFeature,
				Message:   fmt.Sprintf("body %q roots a feature that does not exist", b.Name),
			})
		}
	}
	for _, ref := range d.assets {
		if !ref.validPath() {
			errs = append(errs, graph.ValidationError{Message: fmt.Sprintf("asset %s has invalid path %q", ref.ID.String(), ref.Path)})
		}
	}
	return errs
}
