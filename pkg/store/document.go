package store

// Document is the retrieval-ready projection of a catalog component: the
// rendered text used for embedding plus the metadata subset used for
// filtering. Immutable once built; re-ingestion regenerates it wholesale.
type Document struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Name     string            `json:"name"`
	Price    *int              `json:"price,omitempty"`
	Text     string            `json:"text"`
	Specs    map[string]string `json:"specs,omitempty"`
}
