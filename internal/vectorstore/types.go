package vectorstore

// Document is a chunk of source text with its metadata payload. Metadata
// carries "source"/"file_path" and optionally a "raw_id" used by the index
// manager for fingerprinting.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// SearchResult is one similarity hit. Vector is included so re-ranking
// strategies (MMR) can compare candidates without another store round trip.
type SearchResult struct {
	Document Document
	Score    float64
	Vector   []float32
}
