package graph

import (
	"time"

	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// FeatureRecord is a single type-erased node in the dependency graph.
// The Data payload is meaningful only to the owning workbench; the graph
// engine reads nothing from it.
type FeatureRecord struct {
	ID          FeatureID   `json:"id"`
	WorkbenchID WorkbenchID `json:"workbench_id"`
	Name        string      `json:"name"`
	Body        *BodyID     `json:"body,omitempty"` // optional owning body, hierarchy only
	Visible     bool        `json:"visible"`
	Suppressed  bool        `json:"suppressed"`
	Dirty       bool        `json:"dirty"`
	CreatedAt   int64       `json:"created_at"` // epoch milliseconds

	// Data is the opaque structured payload. SimpleJSONValue gives a
	// lossless JSON round-trip without the graph knowing the shape.
	Data ctyjson.SimpleJSONValue `json:"data"`

	// Unreadable is set at load time when the owning workbench rejects
	// the stored payload (e.g. after an incompatible schema change).
	// It is never persisted.
	Unreadable bool `json:"-"`
}

// NewRecord builds a record with a fresh ID and the current timestamp.
// Records enter a graph only through DepGraph.Add.
func NewRecord(wb WorkbenchID, name string, data ctyjson.SimpleJSONValue) *FeatureRecord {
	return &FeatureRecord{
		ID:          NewFeatureID(),
		WorkbenchID: wb,
		Name:        name,
		Visible:     true,
		CreatedAt:   time.Now().UnixMilli(),
		Data:        data,
	}
}

// before reports whether r was created before other, falling back to the
// ID ordering when timestamps collide. This is the scheduler tie-break.
func (r *FeatureRecord) before(other *FeatureRecord) bool {
	if r.CreatedAt != other.CreatedAt {
		return r.CreatedAt < other.CreatedAt
	}
	return r.ID.Compare(other.ID) < 0
}
