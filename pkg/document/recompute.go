package document

import (
	"fmt"
	"log/slog"

	"github.com/chazu/cambium/pkg/graph"
	"github.com/chazu/cambium/pkg/kernel"
)

// RecomputeFunc rebuilds one feature's geometry. It receives the record
// and the current solid of the feature's owning body (nil when the body
// is unbound or has no geometry yet) and returns the new solid plus an
// optional tessellation for the viewport cache.
type RecomputeFunc func(rec *graph.FeatureRecord, current kernel.Solid) (kernel.Solid, *kernel.Mesh, error)

// Recompute runs fn over every dirty feature in dependency order.
// Suppressed features are skipped and stay dirty so that unsuppressing
// them later schedules a rebuild. Each successful feature has its flag
// cleared immediately; on the first failure the walk stops and every
// not-yet-reached feature stays dirty, so a later Recompute resumes
// where this one gave up.
func (d *Document) Recompute(fn RecomputeFunc) error {
	order, err := d.graph.RecomputeOrder(d.graph.DirtyFeatures())
	if err != nil {
		return err
	}

	for _, id := range order {
		rec := d.graph.Get(id)
		if rec == nil {
			continue
		}
		if rec.Suppressed {
			slog.Debug("skipping suppressed feature", "feature", rec.Name, "id", id.Short())
			continue
		}
		if rec.Unreadable {
			return fmt.Errorf("document: feature %q (%s): payload is unreadable", rec.Name, id.Short())
		}

		var body *Body
		var current kernel.Solid
		if rec.Body != nil {
			if body = d.Body(*rec.Body); body != nil {
				current = body.Handle
			}
		}

		solid, mesh, err := fn(rec, current)
		if err != nil {
			return fmt.Errorf("document: recompute %q (%s): %w", rec.Name, id.Short(), err)
		}
		if body != nil {
			body.Handle = solid
			if mesh != nil {
				body.CachedMesh = mesh
			}
			body.Dirty = false
		}
		if err := d.graph.ClearDirty(id); err != nil {
			return err
		}
	}
	return nil
}

// SetBodyGeometry installs a solid and cached mesh on a body directly,
// bypassing the recompute driver. Import flows use this after loading
// external geometry.
func (d *Document) SetBodyGeometry(id graph.BodyID, solid kernel.Solid, mesh *kernel.Mesh) error {
	b := d.Body(id)
	if b == nil {
		return fmt.Errorf("document: %w: body %s", graph.ErrNotFound, id.String())
	}
	b.Handle = solid
	b.CachedMesh = mesh
	b.Dirty = false
	return nil
}
