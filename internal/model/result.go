package model

// Stage names the step of an ingestion pass an error belongs to.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageParse Stage = "parse"
	StageCheck Stage = "check"
	StageWrite Stage = "write"
	StagePanic Stage = "panic"
)

// ItemError is a contained failure. Item is empty for source level errors.
type ItemError struct {
	SourceID int64  `json:"sourceId"`
	Stage    Stage  `json:"stage"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// IngestionResult is the outcome of one source in one pass.
type IngestionResult struct {
	SourceID   int64  `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Fetched    int    `json:"fetched"`
	Stored     int    `json:"stored"`
	Skipped    int    `json:"skipped"`
	// Items dropped by the keyword filter
	Filtered int         `json:"filtered"`
	Errors   []ItemError `json:"errors"`
}

// BatchSummary merges the results of every source of one pass.
type BatchSummary struct {
	TotalStored   int               `json:"totalStored"`
	TotalSkipped  int               `json:"totalSkipped"`
	AllErrors     []ItemError       `json:"allErrors"`
	SourceResults []IngestionResult `json:"sourceResults"`
}
