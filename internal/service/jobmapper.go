package service

import (
	"time"

	"storecopy-api/internal/model"
)

// Field-to-display-type mappings for the admin UI. Collections reuse the
// copy fields under their own type ids.
var (
	productFieldTypes = map[string]string{
		"title":            "productTitle",
		"description":      "description",
		"meta_title":       "metaTitle",
		"meta_description": "metaDescription",
		"alt_text":         "altText",
	}
	collectionFieldTypes = map[string]string{
		"title":            "collectionTitle",
		"description":      "collectionDescription",
		"meta_title":       "collectionMetaTitle",
		"meta_description": "collectionMetaDescription",
	}
)

// JobSelection summarizes what a job targets.
type JobSelection struct {
	Products    int `json:"products"`
	Collections int `json:"collections"`
}

// JobView is the client-facing shape of a bulk job.
type JobView struct {
	ID               string       `json:"id"`
	Status           string       `json:"status"`
	Type             string       `json:"type"`
	Task             string       `json:"task"`
	Types            []string     `json:"types"`
	Selection        JobSelection `json:"selection"`
	WorkItemCount    int          `json:"workItemCount"`
	EstimatedCredits int          `json:"estimatedCredits"`
	CompletedItems   int          `json:"completedItems"`
	ErrorMessage     string       `json:"errorMessage,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// MapBulkJob converts a stored job into its client-facing view.
func MapBulkJob(job *model.BulkJob) *JobView {
	typeTable := productFieldTypes
	if job.Type == model.JobTypeCollections {
		typeTable = collectionFieldTypes
	}

	types := make([]string, 0, len(job.Config.Settings.Fields))
	for _, field := range job.Config.Settings.Fields {
		if typeID, ok := typeTable[field]; ok {
			types = append(types, typeID)
		}
	}

	return &JobView{
		ID:               job.ID,
		Status:           string(job.Status),
		Type:             string(job.Type),
		Task:             string(job.Config.Task),
		Types:            types,
		Selection:        JobSelection{Products: len(job.Config.ProductIDs), Collections: len(job.Config.CollectionIDs)},
		WorkItemCount:    job.TotalItems,
		EstimatedCredits: job.Config.CreditCost,
		CompletedItems:   job.ProcessedItems,
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
}

// MapBulkJobs maps a job list, never returning nil.
func MapBulkJobs(jobs []*model.BulkJob) []*JobView {
	views := make([]*JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, MapBulkJob(job))
	}
	return views
}
