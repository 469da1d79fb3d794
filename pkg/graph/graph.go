package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DepGraph is the dependency graph over feature records.
//
// Invariants maintained by every mutation:
//   - the graph is acyclic
//   - every ID appearing in an edge exists in nodes
//   - rdeps is the exact transpose of deps
//   - roots holds exactly the features with an empty dependency list
//
// All mutations are all-or-nothing: on error the graph is unchanged.
// The graph is designed for single-writer access and does no locking.
type DepGraph struct {
	nodes map[FeatureID]*FeatureRecord
	deps  map[FeatureID][]FeatureID // ordered, as declared by the feature
	rdeps map[FeatureID]map[FeatureID]struct{}
	roots map[FeatureID]struct{}
}

// New creates an empty dependency graph.
func New() *DepGraph {
	return &DepGraph{
		nodes: make(map[FeatureID]*FeatureRecord),
		deps:  make(map[FeatureID][]FeatureID),
		rdeps: make(map[FeatureID]map[FeatureID]struct{}),
		roots: make(map[FeatureID]struct{}),
	}
}

// Get returns the record with the given ID, or nil.
func (g *DepGraph) Get(id FeatureID) *FeatureRecord {
	return g.nodes[id]
}

// Len returns the number of records in the graph.
func (g *DepGraph) Len() int {
	return len(g.nodes)
}

// Dependencies returns the declared dependency list of id, in order.
func (g *DepGraph) Dependencies(id FeatureID) []FeatureID {
	out := make([]FeatureID, len(g.deps[id]))
	copy(out, g.deps[id])
	return out
}

// Dependents returns the features that depend on id, sorted by creation
// time then ID for determinism.
func (g *DepGraph) Dependents(id FeatureID) []FeatureID {
	out := make([]FeatureID, 0, len(g.rdeps[id]))
	for dep := range g.rdeps[id] {
		out = append(out, dep)
	}
	g.sortByCreation(out)
	return out
}

// Roots returns the features with no dependencies, sorted by creation
// time then ID.
func (g *DepGraph) Roots() []FeatureID {
	out := make([]FeatureID, 0, len(g.roots))
	for id := range g.roots {
		out = append(out, id)
	}
	g.sortByCreation(out)
	return out
}

// All returns every record in the graph, sorted by creation time then ID.
func (g *DepGraph) All() []*FeatureRecord {
	out := make([]*FeatureRecord, 0, len(g.nodes))
	for _, rec := range g.nodes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	return out
}

// Add inserts a new record with its declared dependencies. It fails with
// ErrUnknownDependency if any dependency is absent, and never creates a
// cycle because the new node cannot be reachable from its dependencies.
func (g *DepGraph) Add(rec *FeatureRecord, dependencies []FeatureID) error {
	if rec == nil || rec.ID.IsZero() {
		return fmt.Errorf("graph: record must carry a non-zero ID")
	}
	if _, exists := g.nodes[rec.ID]; exists {
		return fmt.Errorf("graph: feature %s already present", rec.ID.Short())
	}

	deps := dedupe(dependencies)
	for _, dep := range deps {
		if _, ok := g.nodes[dep]; !ok {
			return fmt.Errorf("graph: feature %s: %w: %s", rec.ID.Short(), ErrUnknownDependency, dep.Short())
		}
	}

	g.nodes[rec.ID] = rec
	g.deps[rec.ID] = deps
	for _, dep := range deps {
		g.addReverse(dep, rec.ID)
	}
	if len(deps) == 0 {
		g.roots[rec.ID] = struct{}{}
	}
	return nil
}

// UpdateDependencies atomically replaces the declared dependency list of
// id. It fails with ErrNotFound if id is absent, ErrUnknownDependency if
// any new dependency is absent, and ErrCycle if id is reachable from any
// new dependency (which would close a loop). Partial edge replacement is
// never observable.
func (g *DepGraph) UpdateDependencies(id FeatureID, dependencies []FeatureID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("graph: %w: %s", ErrNotFound, id.Short())
	}

	deps := dedupe(dependencies)
	for _, dep := range deps {
		if _, ok := g.nodes[dep]; !ok {
			return fmt.Errorf("graph: feature %s: %w: %s", id.Short(), ErrUnknownDependency, dep.Short())
		}
	}
	for _, dep := range deps {
		if dep == id || g.reachable(dep, id) {
			return fmt.Errorf("graph: feature %s: %w: dependency %s reaches it", id.Short(), ErrCycle, dep.Short())
		}
	}

	for _, old := range g.deps[id] {
		delete(g.rdeps[old], id)
		if len(g.rdeps[old]) == 0 {
			delete(g.rdeps, old)
		}
	}
	g.deps[id] = deps
	for _, dep := range deps {
		g.addReverse(dep, id)
	}
	if len(deps) == 0 {
		g.roots[id] = struct{}{}
	} else {
		delete(g.roots, id)
	}
	return nil
}

// Remove deletes a record. Without cascade it fails with ErrInUse while
// any dependent remains. With cascade it removes the full transitive
// dependent set, deepest dependents first, so no intermediate state holds
// a dangling reference.
func (g *DepGraph) Remove(id FeatureID, cascade bool) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("graph: %w: %s", ErrNotFound, id.Short())
	}
	if len(g.rdeps[id]) > 0 && !cascade {
		return fmt.Errorf("graph: %w: feature %s has %d dependent(s)", ErrInUse, id.Short(), len(g.rdeps[id]))
	}

	for _, victim := range g.removalOrder(id) {
		g.removeNode(victim)
	}
	return nil
}

// removalOrder returns id plus its transitive dependents, ordered so that
// every feature appears before all of its dependencies (reverse
// topological order within the closure).
func (g *DepGraph) removalOrder(id FeatureID) []FeatureID {
	closure := map[FeatureID]struct{}{id: {}}
	queue := []FeatureID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.rdeps[cur] {
			if _, seen := closure[dep]; !seen {
				closure[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}

	// Kahn over reversed edges: a feature is removable once all of its
	// dependents inside the closure are gone.
	remaining := make(map[FeatureID]int, len(closure))
	var ready []FeatureID
	for member := range closure {
		n := 0
		for dependent := range g.rdeps[member] {
			if _, in := closure[dependent]; in {
				n++
			}
		}
		remaining[member] = n
		if n == 0 {
			ready = append(ready, member)
		}
	}

	order := make([]FeatureID, 0, len(closure))
	for len(ready) > 0 {
		g.sortByCreation(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range g.deps[next] {
			if _, in := closure[dep]; !in {
				continue
			}
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}

// removeNode unlinks a single record whose dependents are already gone.
func (g *DepGraph) removeNode(id FeatureID) {
	for _, dep := range g.deps[id] {
		delete(g.rdeps[dep], id)
		if len(g.rdeps[dep]) == 0 {
			delete(g.rdeps, dep)
		}
	}
	delete(g.deps, id)
	delete(g.rdeps, id)
	delete(g.roots, id)
	delete(g.nodes, id)
}

// reachable reports whether to can be reached from from by following
// dependency edges.
func (g *DepGraph) reachable(from, to FeatureID) bool {
	visited := make(map[FeatureID]struct{})
	stack := []FeatureID{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		stack = append(stack, g.deps[cur]...)
	}
	return false
}

func (g *DepGraph) addReverse(dependency, dependent FeatureID) {
	set, ok := g.rdeps[dependency]
	if !ok {
		set = make(map[FeatureID]struct{})
		g.rdeps[dependency] = set
	}
	set[dependent] = struct{}{}
}

// sortByCreation orders ids by creation timestamp then ID bytes.
func (g *DepGraph) sortByCreation(ids []FeatureID) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := g.nodes[ids[i]], g.nodes[ids[j]]
		if a == nil || b == nil {
			return ids[i].Compare(ids[j]) < 0
		}
		return a.before(b)
	})
}

func dedupe(ids []FeatureID) []FeatureID {
	out := make([]FeatureID, 0, len(ids))
	seen := make(map[FeatureID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// depGraphJSON is the persisted shape of the graph. Reverse edges and the
// root set are derived on load, so only nodes and forward edges are stored.
type depGraphJSON struct {
	Nodes []*FeatureRecord          `json:"nodes"`
	Deps  map[FeatureID][]FeatureID `json:"deps"`
}

// MarshalJSON serializes nodes (in creation order) and forward edges.
func (g *DepGraph) MarshalJSON() ([]byte, error) {
	deps := make(map[FeatureID][]FeatureID, len(g.deps))
	for id, list := range g.deps {
		if len(list) > 0 {
			deps[id] = list
		}
	}
	return json.Marshal(depGraphJSON{Nodes: g.All(), Deps: deps})
}

// UnmarshalJSON rebuilds the graph from its persisted shape, deriving
// rdeps and roots. Referential integrity and acyclicity are not verified
// here; loaders run Validate before trusting the result.
func (g *DepGraph) UnmarshalJSON(data []byte) error {
	var raw depGraphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = *New()
	for _, rec := range raw.Nodes {
		if rec == nil {
			continue
		}
		g.nodes[rec.ID] = rec
	}
	for id, list := range raw.Deps {
		g.deps[id] = dedupe(list)
	}
	for id := range g.nodes {
		if _, ok := g.deps[id]; !ok {
			g.deps[id] = nil
		}
		if len(g.deps[id]) == 0 {
			g.roots[id] = struct{}{}
		}
		for _, dep := range g.deps[id] {
			g.addReverse(dep, id)
		}
	}
	return nil
}
