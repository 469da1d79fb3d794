// Package kernel defines the geometry kernel boundary for Cambium.
// The document core never computes geometry itself: during recomputation
// the caller hands each feature's payload and the owning body's prior
// Solid to an external kernel and writes the returned handle and mesh
// back into the body. Only the handle and tessellation types live here.
package kernel

// Solid is an opaque handle to a kernel-managed solid. Implementations
// wrap their internal representation; the document stores the handle
// without interpreting it and never persists it.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}
