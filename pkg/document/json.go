package document

import (
	"encoding/json"
	"fmt"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/chazu/cambium/pkg/graph"
)

// documentJSON is the wire form of a Document. Kernel handles and
// cached meshes never pass through here; they live in the container's
// cache area or are rebuilt on demand.
type documentJSON struct {
	Meta    metadata                                    `json:"meta"`
	Graph   *graph.DepGraph                             `json:"graph"`
	Bodies  []*Body                                     `json:"bodies,omitempty"`
	Storage map[graph.WorkbenchID]ctyjson.SimpleJSONValue `json:"workbench_storage,omitempty"`
	Assets  []*AssetReference                           `json:"assets,omitempty"`
	History []Revision                                  `json:"history,omitempty"`
}

// MarshalJSON serializes the document deterministically: graph nodes in
// creation order, assets sorted, map keys sorted by the encoder.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		Meta:    d.meta,
		Graph:   d.graph,
		Bodies:  d.bodies,
		Storage: d.storage,
		Assets:  d.Assets(),
		History: d.history,
	})
}

// UnmarshalJSON rebuilds a document from its wire form. Structural
// validation is the loader's job; this only restores state.
func (d *Document) UnmarshalJSON(data []byte) error {
	var dto documentJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("document: decode: %w", err)
	}
	d.meta = dto.Meta
	d.graph = dto.Graph
	if d.graph == nil {
		d.graph = graph.New()
	}
	d.bodies = dto.Bodies
	d.storage = dto.Storage
	if d.storage == nil {
		d.storage = make(map[graph.WorkbenchID]ctyjson.SimpleJSONValue)
	}
	d.assets = make(map[graph.AssetID]*AssetReference, len(dto.Assets))
	for _, ref := range dto.Assets {
		d.assets[ref.ID] = ref
	}
	d.history = dto.History
	return nil
}
