package document

import (
	"strconv"
	"strings"

	"github.com/chazu/cambium/pkg/graph"
	"github.com/chazu/cambium/pkg/kernel"
)

// Body ties a root feature to kernel-managed geometry and a cached
// tessellation. The kernel handle is runtime-only; the cached mesh is
// persisted in the container's cache area, not in the document entry.
type Body struct {
	ID          graph.BodyID    `json:"id"`
	Name        string          `json:"name"`
	RootFeature graph.FeatureID `json:"root_feature"` // zero = not yet bound
	Dirty       bool            `json:"dirty"`
	CreatedAt   int64           `json:"created_at"` // epoch milliseconds

	Handle     kernel.Solid `json:"-"` // opaque kernel reference
	CachedMesh *kernel.Mesh `json:"-"` // persisted separately under cache/
}

// nextIndexedName picks the first free name in the sequence
// base, base_1, base_2, ... given the names already taken.
func nextIndexedName(base string, existing []string) string {
	suffix := -1
	lower := strings.ToLower(base)
	for _, name := range existing {
		n := strings.ToLower(name)
		if n == lower {
			if suffix < 0 {
				suffix = 0
			}
		} else if rest, ok := strings.CutPrefix(n, lower+"_"); ok {
			if v, err := strconv.Atoi(rest); err == nil && v > suffix {
				suffix = v
			}
		}
	}
	if suffix < 0 {
		return base
	}
	return base + "_" + strconv.Itoa(suffix+1)
}
