// Package document implements the Cambium document aggregate: one
// feature dependency graph, a body collection, per-workbench storage,
// asset references, and an append-only revision history, behind the
// generic mutation and query API that workbenches program against.
//
// A document is designed for single-writer, cooperative access: one
// caller holds the mutable document per update cycle and no internal
// locking is performed.
package document
