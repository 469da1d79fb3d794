package document

// Revision is a snapshot descriptor appended to the document history.
// Revisions are never mutated after append; undo/redo replays them.
type Revision struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp_ms"` // epoch milliseconds
}
