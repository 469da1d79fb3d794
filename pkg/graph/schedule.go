package graph

import "fmt"

// MarkDirty sets the dirty flag on id and, transitively, on every feature
// that depends on it. The walk is breadth-first with a visited guard so
// diamond-shaped dependents are marked once. Marking an already-dirty
// feature is a no-op beyond the guard: its dependents are already dirty
// because this is the only operation that sets the flag.
func (g *DepGraph) MarkDirty(id FeatureID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("graph: %w: %s", ErrNotFound, id.Short())
	}

	visited := make(map[FeatureID]struct{})
	queue := []FeatureID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}

		rec := g.nodes[cur]
		if rec.Dirty {
			continue
		}
		rec.Dirty = true
		for dependent := range g.rdeps[cur] {
			queue = append(queue, dependent)
		}
	}
	return nil
}

// ClearDirty clears the dirty flag on a single feature. Callers clear each
// feature after its external recomputation succeeds; a failed recompute
// leaves the flag set for retry.
func (g *DepGraph) ClearDirty(id FeatureID) error {
	rec, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("graph: %w: %s", ErrNotFound, id.Short())
	}
	rec.Dirty = false
	return nil
}

// DirtyFeatures returns every dirty feature, sorted by creation time then
// ID. The flags themselves are stored on the records, so this is a plain
// scan with no graph walk.
func (g *DepGraph) DirtyFeatures() []FeatureID {
	var out []FeatureID
	for id, rec := range g.nodes {
		if rec.Dirty {
			out = append(out, id)
		}
	}
	g.sortByCreation(out)
	return out
}

// RecomputeOrder returns the given features ordered so that every feature
// appears after all of its dependencies that are also in the set (Kahn's
// algorithm over the induced subgraph). Ties are broken by ascending
// creation time, then ID, so repeated calls yield identical orderings.
//
// ErrNotFound is returned if an input ID is absent. ErrCycle is returned
// only if the stored graph was corrupted externally; the mutation API
// never admits a cycle.
func (g *DepGraph) RecomputeOrder(ids []FeatureID) ([]FeatureID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	set := make(map[FeatureID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return nil, fmt.Errorf("graph: %w: %s", ErrNotFound, id.Short())
		}
		set[id] = struct{}{}
	}

	inDegree := make(map[FeatureID]int, len(set))
	var ready []FeatureID
	for id := range set {
		n := 0
		for _, dep := range g.deps[id] {
			if _, in := set[dep]; in {
				n++
			}
		}
		inDegree[id] = n
		if n == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]FeatureID, 0, len(set))
	for len(ready) > 0 {
		g.sortByCreation(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for dependent := range g.rdeps[next] {
			if _, in := set[dependent]; !in {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(set) {
		return nil, fmt.Errorf("graph: recompute order: %w among %d feature(s)", ErrCycle, len(set)-len(order))
	}
	return order, nil
}
