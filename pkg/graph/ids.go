package graph

import (
	"bytes"

	"github.com/google/uuid"
)

// FeatureID is the unique handle of a feature record within a document.
// IDs are generated at creation, never reused, and carry no semantic value.
type FeatureID struct {
	uuid.UUID
}

// NewFeatureID generates a fresh random FeatureID.
func NewFeatureID() FeatureID {
	return FeatureID{uuid.New()}
}

// ParseFeatureID parses the canonical string form produced by String.
func ParseFeatureID(s string) (FeatureID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FeatureID{}, err
	}
	return FeatureID{u}, nil
}

// IsZero returns true for the zero-value (unassigned) ID.
func (id FeatureID) IsZero() bool {
	return id.UUID == uuid.Nil
}

// Short returns the first 8 hex characters for log/debug output.
func (id FeatureID) Short() string {
	return id.String()[:8]
}

// Compare orders two FeatureIDs bytewise. Used as the final recompute
// tie-break so that orderings are deterministic.
func (id FeatureID) Compare(other FeatureID) int {
	return bytes.Compare(id.UUID[:], other.UUID[:])
}

// BodyID is the unique handle of a body within a document.
type BodyID struct {
	uuid.UUID
}

// NewBodyID generates a fresh random BodyID.
func NewBodyID() BodyID {
	return BodyID{uuid.New()}
}

// ParseBodyID parses the canonical string form produced by String.
func ParseBodyID(s string) (BodyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return BodyID{}, err
	}
	return BodyID{u}, nil
}

// IsZero returns true for the zero-value (unassigned) ID.
func (id BodyID) IsZero() bool {
	return id.UUID == uuid.Nil
}

// AssetID is the unique handle of an imported asset reference.
type AssetID struct {
	uuid.UUID
}

// NewAssetID generates a fresh random AssetID.
func NewAssetID() AssetID {
	return AssetID{uuid.New()}
}

// IsZero returns true for the zero-value (unassigned) ID.
func (id AssetID) IsZero() bool {
	return id.UUID == uuid.Nil
}

// WorkbenchID names the plug-in that owns a feature type. Unlike the other
// identifiers it is a stable string ("part", "sketch", ...) so that payloads
// persisted by one session can be matched to the same plug-in in the next.
type WorkbenchID string
