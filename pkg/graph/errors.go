package graph

import "errors"

// Sentinel errors returned by graph mutations. Callers match them with
// errors.Is; the wrapped message carries the offending identifiers.
var (
	// ErrUnknownDependency means an edge referenced a feature that is not
	// in the graph.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrCycle means an edge change would make a feature depend,
	// directly or transitively, on itself.
	ErrCycle = errors.New("cycle detected")

	// ErrInUse means a delete was blocked because other features still
	// depend on the target.
	ErrInUse = errors.New("feature in use")

	// ErrNotFound means the operation named a feature that does not exist.
	ErrNotFound = errors.New("feature not found")
)
