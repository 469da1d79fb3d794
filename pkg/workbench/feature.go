package workbench

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/chazu/cambium/pkg/graph"
)

// ErrDeserialization means a stored payload no longer matches the shape
// the owning workbench expects, e.g. after an incompatible schema change.
var ErrDeserialization = errors.New("feature payload deserialization failed")

// Feature is the capability a workbench-defined feature type must
// implement to be stored generically. The document never inspects the
// concrete type: it serializes it through Encode, stores the resulting
// opaque value, and wires the graph from the declared dependency list.
//
// Concrete feature types are plain structs whose exported fields carry
// `cty` tags; Encode and Decode satisfy the round-trip law
// Decode(Encode(x)) == x for every valid x.
type Feature interface {
	// WorkbenchID names the owning plug-in.
	WorkbenchID() graph.WorkbenchID

	// Name returns the human-readable feature name.
	Name() string

	// Dependencies returns the features this feature's result requires.
	Dependencies() []graph.FeatureID
}

// Encode converts a feature into its opaque structured value.
func Encode(f Feature) (cty.Value, error) {
	ty, err := gocty.ImpliedType(f)
	if err != nil {
		return cty.NilVal, fmt.Errorf("workbench %s: encode %q: %w", f.WorkbenchID(), f.Name(), err)
	}
	val, err := gocty.ToCtyValue(f, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("workbench %s: encode %q: %w", f.WorkbenchID(), f.Name(), err)
	}
	return val, nil
}

// Decode converts a stored opaque value back into a concrete feature
// struct. into must be a pointer. Values loaded from JSON carry implied
// types (tuples for arrays, objects for maps), so the value is first
// converted to the shape implied by the target struct.
//
// Failures wrap ErrDeserialization with the underlying format error.
func Decode(val cty.Value, into any) error {
	ty, err := gocty.ImpliedType(into)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if err := gocty.FromCtyValue(converted, into); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return nil
}
