package dto

import "pc-build-advisor-be/pkg/store"

// EmbedComponentBatchMessage is the payload published per ingestion batch.
type EmbedComponentBatchMessage struct {
	Documents []store.Document `json:"documents"`
	Batch     int              `json:"batch"`
	Total     int              `json:"total"`
}

// IngestReport summarizes one catalog ingestion run.
type IngestReport struct {
	ComponentsParsed int `json:"components_parsed"`
	RowErrors        int `json:"row_errors"`
	Batches          int `json:"batches"`
	Indexed          int `json:"indexed"`
	Failed           int `json:"failed"`
}
