package document

import (
	"fmt"
	"path"
	"strings"
	"time"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/chazu/cambium/pkg/graph"
)

// AssetType tags the format of an imported external file.
type AssetType int

const (
	AssetStep AssetType = iota // STEP file (ISO 10303)
	AssetStl                   // STL file (stereolithography)
	AssetIges                  // IGES file
	AssetObj                   // OBJ file
	AssetOther                 // other/unknown format
)

func (t AssetType) String() string {
	switch t {
	case AssetStep:
		return "step"
	case AssetStl:
		return "stl"
	case AssetIges:
		return "iges"
	case AssetObj:
		return "obj"
	case AssetOther:
		return "other"
	default:
		return "unknown"
	}
}

// Extension returns the canonical file extension for this asset type.
func (t AssetType) Extension() string {
	if t == AssetOther {
		return "bin"
	}
	return t.String()
}

// AssetTypeFromExtension detects an asset type from a file extension.
func AssetTypeFromExtension(ext string) AssetType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "step", "stp":
		return AssetStep
	case "stl":
		return AssetStl
	case "iges", "igs":
		return AssetIges
	case "obj":
		return AssetObj
	default:
		return AssetOther
	}
}

// MarshalText persists the type as its name rather than a bare integer.
func (t AssetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (t *AssetType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "step":
		*t = AssetStep
	case "stl":
		*t = AssetStl
	case "iges":
		*t = AssetIges
	case "obj":
		*t = AssetObj
	case "other":
		*t = AssetOther
	default:
		return fmt.Errorf("unknown asset type %q", text)
	}
	return nil
}

// AssetReference describes an externally-imported file embedded in the
// document container. The document owns the reference; the container
// owns the byte content at Path.
type AssetReference struct {
	ID         graph.AssetID           `json:"id"`
	Path       string                  `json:"path"` // archive-relative, e.g. "assets/base.step"
	Type       AssetType               `json:"type"`
	ImportedAt int64                   `json:"imported_at"` // epoch milliseconds
	Metadata   ctyjson.SimpleJSONValue `json:"metadata"`
}

// NewAssetReference builds a reference with a fresh ID and the current
// timestamp. name is the file name within the container's assets area;
// a bare name is placed under "assets/" automatically.
func NewAssetReference(name string, typ AssetType, metadata ctyjson.SimpleJSONValue) *AssetReference {
	p := path.Clean(name)
	if !strings.HasPrefix(p, "assets/") {
		p = "assets/" + p
	}
	return &AssetReference{
		ID:         graph.NewAssetID(),
		Path:       p,
		Type:       typ,
		ImportedAt: time.Now().UnixMilli(),
		Metadata:   metadata,
	}
}

// validPath reports whether the reference points inside the assets area
// with no traversal tricks.
func (a *AssetReference) validPath() bool {
	p := path.Clean(a.Path)
	return p == a.Path && strings.HasPrefix(p, "assets/") && len(p) > len("assets/") &&
		!strings.Contains(p, "..") && !path.IsAbs(p)
}
