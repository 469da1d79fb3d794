package graph

import "fmt"

// ValidationError describes a single structural validation finding.
type ValidationError struct {
	FeatureID FeatureID // which feature has the problem (zero if graph-level)
	Message   string
}

func (e ValidationError) Error() string {
	if e.FeatureID.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("feature %s: %s", e.FeatureID.Short(), e.Message)
}

// Validate runs the structural invariant checks on the graph and returns
// all findings. An empty slice means the graph is well-formed. It is
// read-only and is used by loaders before trusting an untrusted graph;
// under normal operation the mutation API keeps all of these true.
func (g *DepGraph) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, g.validateReferences()...)
	errs = append(errs, g.validateDAG()...)
	errs = append(errs, g.validateTranspose()...)
	errs = append(errs, g.validateRoots()...)
	return errs
}

// validateReferences checks that every ID appearing in an edge exists.
func (g *DepGraph) validateReferences() []ValidationError {
	var errs []ValidationError
	for id, list := range g.deps {
		if _, ok := g.nodes[id]; !ok {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("dependency list for unknown feature %s", id.Short())})
		}
		for _, dep := range list {
			if _, ok := g.nodes[dep]; !ok {
				errs = append(errs, ValidationError{FeatureID: id, Message: fmt.Sprintf("depends on unknown feature %s", dep.Short())})
			}
		}
	}
	for id, set := range g.rdeps {
		if _, ok := g.nodes[id]; !ok {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("dependent set for unknown feature %s", id.Short())})
		}
		for dep := range set {
			if _, ok := g.nodes[dep]; !ok {
				errs = append(errs, ValidationError{FeatureID: id, Message: fmt.Sprintf("unknown dependent %s", dep.Short())})
			}
		}
	}
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = on the current DFS path, black (2) =
// fully explored. Hitting a gray node means a cycle.
func (g *DepGraph) validateDAG() []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[FeatureID]int)
	var errs []ValidationError

	var visit func(id FeatureID) bool // returns true if a cycle was found
	visit = func(id FeatureID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{FeatureID: id, Message: "part of a dependency cycle"})
			return true
		}
		color[id] = gray
		for _, dep := range g.deps[id] {
			if _, ok := g.nodes[dep]; !ok {
				continue // reported by validateReferences
			}
			if visit(dep) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g.nodes {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}
	return errs
}

// validateTranspose checks that rdeps is the exact transpose of deps.
func (g *DepGraph) validateTranspose() []ValidationError {
	var errs []ValidationError
	for id, list := range g.deps {
		for _, dep := range list {
			if _, ok := g.rdeps[dep][id]; !ok {
				errs = append(errs, ValidationError{FeatureID: id, Message: fmt.Sprintf("edge to %s missing from reverse index", dep.Short())})
			}
		}
	}
	forward := func(id, dep FeatureID) bool {
		for _, d := range g.deps[dep] {
			if d == id {
				return true
			}
		}
		return false
	}
	for id, set := range g.rdeps {
		for dependent := range set {
			if !forward(id, dependent) {
				errs = append(errs, ValidationError{FeatureID: dependent, Message: fmt.Sprintf("reverse edge from %s has no forward edge", id.Short())})
			}
		}
	}
	return errs
}

// validateRoots checks that roots holds exactly the dependency-free features.
func (g *DepGraph) validateRoots() []ValidationError {
	var errs []ValidationError
	for id := range g.nodes {
		_, isRoot := g.roots[id]
		if len(g.deps[id]) == 0 && !isRoot {
			errs = append(errs, ValidationError{FeatureID: id, Message: "has no dependencies but is not a root"})
		}
		if len(g.deps[id]) > 0 && isRoot {
			errs = append(errs, ValidationError{FeatureID: id, Message: "has dependencies but is marked as a root"})
		}
	}
	for id := range g.roots {
		if _, ok := g.nodes[id]; !ok {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("root set references unknown feature %s", id.Short())})
		}
	}
	return errs
}
