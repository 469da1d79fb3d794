// Package graph defines the feature dependency graph types for Cambium.
// The graph is a DAG of type-erased feature records with forward and
// reverse dependency edges, dirty-state propagation, and a deterministic
// recompute scheduler.
package graph
