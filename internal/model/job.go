package model

import "time"

// JobStatus is the lifecycle state of a bulk job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobType identifies the kind of resource a bulk job targets.
type JobType string

const (
	JobTypeProducts    JobType = "products"
	JobTypeCollections JobType = "collections"
)

// TaskMode is the explicit dispatch tag established at admission time.
// The worker never re-derives it from the settings shape.
type TaskMode string

const (
	TaskProductCopy    TaskMode = "product_copy"
	TaskCollectionCopy TaskMode = "collection_copy"
	TaskAltText        TaskMode = "alt_text"
)

// JobSettings is the generation configuration selected by the merchant.
type JobSettings struct {
	Fields            []string       `json:"fields"`
	Task              string         `json:"task,omitempty"`
	ImageScope        string         `json:"image_scope,omitempty"`
	ImageCounts       map[string]int `json:"image_counts,omitempty"`
	TotalImageTargets int            `json:"total_image_targets,omitempty"`
	Tone              string         `json:"tone,omitempty"`
	Language          string         `json:"language,omitempty"`
}

// JobConfig is the immutable snapshot persisted with a job at admission.
type JobConfig struct {
	Task          TaskMode    `json:"task"`
	ProductIDs    []string    `json:"productIds,omitempty"`
	CollectionIDs []string    `json:"collectionIds,omitempty"`
	Settings      JobSettings `json:"settings"`
	SessionID     string      `json:"sessionId,omitempty"`
	CreditCost    int         `json:"creditCost"`
}

// BulkJob is a durable bulk content-generation job.
type BulkJob struct {
	ID             string    `json:"id"`
	ShopDomain     string    `json:"shop_domain"`
	Type           JobType   `json:"type"`
	Status         JobStatus `json:"status"`
	Config         JobConfig `json:"config"`
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
