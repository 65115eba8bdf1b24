package storage

import "time"

// Job status values. A job is terminal once its status leaves "processing".
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// Job phases, in order. Transitions are one-directional.
const (
	PhaseInitialization = "initialization"
	PhaseMap            = "map"
	PhaseReduce         = "reduce"
	PhaseSynthesis      = "synthesis"
	PhaseComplete       = "complete"
)

// Item processing status written by the ingestion pipeline. The query engine
// only ever reads completed items.
const ItemStatusCompleted = "completed"

// Folder organizes a user's knowledge items.
type Folder struct {
	ID        string // UUID
	UserID    string
	Name      string
	Path      string
	CreatedAt time.Time
}

// KnowledgeItem is a corpus document. The ingestion pipeline owns writes;
// the query engine reads items whose processing is completed.
type KnowledgeItem struct {
	ID               string // UUID
	UserID           string
	FolderID         string
	Title            string
	Content          string
	ContentType      string
	SourceURL        string
	ProcessingStatus string
	Metadata         map[string]any
	CreatedAt        time.Time
	Chunks           []Chunk // ordered by chunk index when loaded
}

// Chunk is a slice of an item's text with a precomputed embedding.
// A nil or all-zero embedding is valid: that chunk contributes no semantic
// signal and degrades to lexical-only ranking.
type Chunk struct {
	ID             string // UUID
	ItemID         string
	ChunkIndex     int
	Embedding      []float32
	ContentPreview string
	CreatedAt      time.Time
}

// ProcessingJob tracks an async map-reduce query.
type ProcessingJob struct {
	ID                        string // UUID
	UserID                    string
	JobType                   string
	Status                    string
	CurrentPhase              string
	Progress                  float64
	TotalItems                int
	ProcessedItems            int
	TotalBatches              int
	ProcessedBatches          int
	FailedBatches             int
	Result                    map[string]any
	AggregationDetails        map[string]any
	ErrorMessage              string
	ErrorDetails              map[string]any
	EstimatedDurationSeconds  float64
	ActualDurationSeconds     float64
	StartedAt                 time.Time
	CompletedAt               *time.Time
}

// Terminal reports whether the job can no longer change state.
func (j *ProcessingJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
