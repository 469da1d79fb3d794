package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// testRecord builds a record with a fixed creation timestamp so orderings
// in tests are fully deterministic.
func testRecord(name string, createdAt int64) *FeatureRecord {
	return &FeatureRecord{
		ID:          NewFeatureID(),
		WorkbenchID: "test",
		Name:        name,
		Visible:     true,
		CreatedAt:   createdAt,
		Data: ctyjson.SimpleJSONValue{Value: cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal(name),
		})},
	}
}

// buildChain creates features A (no deps), B (deps=[A]), C (deps=[A,B]).
func buildChain(t *testing.T) (*DepGraph, FeatureID, FeatureID, FeatureID) {
	t.Helper()
	g := New()
	a := testRecord("a", 1)
	b := testRecord("b", 2)
	c := testRecord("c", 3)
	if err := g.Add(a, nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := g.Add(b, []FeatureID{a.ID}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := g.Add(c, []FeatureID{a.ID, b.ID}); err != nil {
		t.Fatalf("add c: %v", err)
	}
	return g, a.ID, b.ID, c.ID
}

func TestNewGraphEmpty(t *testing.T) {
	g := New()
	if g.Len() != 0 {
		t.Errorf("empty graph Len = %d, want 0", g.Len())
	}
	if len(g.Roots()) != 0 {
		t.Errorf("empty graph should have no roots")
	}
	if len(g.Validate()) != 0 {
		t.Errorf("empty graph should validate cleanly")
	}
}

func TestAddAndLookup(t *testing.T) {
	g, a, b, c := buildChain(t)

	if g.Len() != 3 {
		t.Fatalf("Len = %d, want 3", g.Len())
	}
	if rec := g.Get(a); rec == nil || rec.Name != "a" {
		t.Errorf("Get(a) = %v, want record named a", rec)
	}
	if rec := g.Get(NewFeatureID()); rec != nil {
		t.Errorf("Get of unknown ID should be nil")
	}

	if diff := cmp.Diff([]FeatureID{a}, g.Roots()); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FeatureID{a, b}, g.Dependencies(c)); diff != "" {
		t.Errorf("deps of c mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FeatureID{b, c}, g.Dependents(a)); diff != "" {
		t.Errorf("dependents of a mismatch (-want +got):\n%s", diff)
	}
	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate = %v, want none", errs)
	}
}

func TestAddUnknownDependency(t *testing.T) {
	g := New()
	rec := testRecord("orphan", 1)
	err := g.Add(rec, []FeatureID{NewFeatureID()})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("err = %v, want ErrUnknownDependency", err)
	}
	if g.Len() != 0 {
		t.Errorf("failed add must leave graph unchanged, Len = %d", g.Len())
	}
}

func TestAddDuplicateID(t *testing.T) {
	g := New()
	rec := testRecord("x", 1)
	if err := g.Add(rec, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Add(rec, nil); err == nil {
		t.Error("adding the same ID twice should fail")
	}
}

func TestAddDedupesDependencies(t *testing.T) {
	g := New()
	a := testRecord("a", 1)
	b := testRecord("b", 2)
	if err := g.Add(a, nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := g.Add(b, []FeatureID{a.ID, a.ID, a.ID}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if n := len(g.Dependencies(b.ID)); n != 1 {
		t.Errorf("duplicate declared deps should collapse, got %d", n)
	}
}

func TestUpdateDependenciesCycle(t *testing.T) {
	g, a, _, c := buildChain(t)

	// C depends transitively on A, so A -> [C] closes a loop.
	err := g.UpdateDependencies(a, []FeatureID{c})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}

	// Graph must be exactly as before the call.
	if len(g.Dependencies(a)) != 0 {
		t.Errorf("a should still have no dependencies")
	}
	if diff := cmp.Diff([]FeatureID{a}, g.Roots()); diff != "" {
		t.Errorf("roots changed after failed update (-want +got):\n%s", diff)
	}
	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate after failed update = %v", errs)
	}
}

func TestUpdateDependenciesSelf(t *testing.T) {
	g, a, _, _ := buildChain(t)
	if err := g.UpdateDependencies(a, []FeatureID{a}); !errors.Is(err, ErrCycle) {
		t.Fatalf("self-dependency: err = %v, want ErrCycle", err)
	}
}

func TestUpdateDependenciesReplaces(t *testing.T) {
	g, a, b, c := buildChain(t)

	// C: [A, B] -> [B] only.
	if err := g.UpdateDependencies(c, []FeatureID{b}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if diff := cmp.Diff([]FeatureID{b}, g.Dependencies(c)); diff != "" {
		t.Errorf("deps of c (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FeatureID{b}, g.Dependents(a)); diff != "" {
		t.Errorf("dependents of a (-want +got):\n%s", diff)
	}
	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate = %v", errs)
	}

	// Emptying the list makes C a root again.
	if err := g.UpdateDependencies(c, nil); err != nil {
		t.Fatalf("update to empty: %v", err)
	}
	if diff := cmp.Diff([]FeatureID{a, c}, g.Roots()); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
}

func TestUpdateDependenciesNotFound(t *testing.T) {
	g := New()
	if err := g.UpdateDependencies(NewFeatureID(), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveInUse(t *testing.T) {
	g, a, _, _ := buildChain(t)

	err := g.Remove(a, false)
	if !errors.Is(err, ErrInUse) {
		t.Fatalf("err = %v, want ErrInUse", err)
	}
	if g.Len() != 3 {
		t.Errorf("failed remove must not mutate, Len = %d", g.Len())
	}
}

func TestRemoveLeaf(t *testing.T) {
	g, a, b, c := buildChain(t)

	if err := g.Remove(c, false); err != nil {
		t.Fatalf("remove c: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
	if diff := cmp.Diff([]FeatureID{b}, g.Dependents(a)); diff != "" {
		t.Errorf("dependents of a (-want +got):\n%s", diff)
	}
	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate = %v", errs)
	}
}

func TestRemoveCascade(t *testing.T) {
	g, a, _, _ := buildChain(t)

	if err := g.Remove(a, true); err != nil {
		t.Fatalf("cascade remove: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("cascade should remove a, b, c; Len = %d", g.Len())
	}
	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate = %v", errs)
	}
}

func TestRemoveCascadeOrder(t *testing.T) {
	g, a, b, c := buildChain(t)

	order := g.removalOrder(a)
	want := []FeatureID{c, b, a} // deepest dependents first
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("removal order (-want +got):\n%s", diff)
	}
}

func TestRemoveNotFound(t *testing.T) {
	g := New()
	if err := g.Remove(NewFeatureID(), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g, a, b, c := buildChain(t)
	if err := g.MarkDirty(b); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loaded := New()
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if loaded.Len() != 3 {
		t.Fatalf("loaded Len = %d, want 3", loaded.Len())
	}
	if diff := cmp.Diff(g.Roots(), loaded.Roots()); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
	for _, id := range []FeatureID{a, b, c} {
		if diff := cmp.Diff(g.Dependencies(id), loaded.Dependencies(id)); diff != "" {
			t.Errorf("deps of %s (-want +got):\n%s", id.Short(), diff)
		}
		if diff := cmp.Diff(g.Dependents(id), loaded.Dependents(id)); diff != "" {
			t.Errorf("dependents of %s (-want +got):\n%s", id.Short(), diff)
		}
		orig, got := g.Get(id), loaded.Get(id)
		if got.Dirty != orig.Dirty {
			t.Errorf("dirty flag of %s = %v, want %v", id.Short(), got.Dirty, orig.Dirty)
		}
		if !got.Data.Value.RawEquals(orig.Data.Value) {
			t.Errorf("payload of %s changed across round-trip", id.Short())
		}
	}
	if errs := loaded.Validate(); len(errs) != 0 {
		t.Errorf("loaded graph Validate = %v", errs)
	}
}

func TestFeatureIDZero(t *testing.T) {
	var id FeatureID
	if !id.IsZero() {
		t.Error("zero-value FeatureID should be zero")
	}
	id = NewFeatureID()
	if id.IsZero() {
		t.Error("generated FeatureID should not be zero")
	}
	if len(id.Short()) != 8 {
		t.Errorf("Short() len = %d, want 8", len(id.Short()))
	}
}
