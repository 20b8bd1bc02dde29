package service

import (
	"reflect"
	"testing"

	"storecopy-api/internal/model"
)

func TestMapBulkJob(t *testing.T) {
	job := &model.BulkJob{
		ID:     "job-1",
		Type:   model.JobTypeProducts,
		Status: model.JobStatusRunning,
		Config: model.JobConfig{
			Task:       model.TaskProductCopy,
			ProductIDs: []string{gid("Product", "1"), gid("Product", "2")},
			Settings:   model.JobSettings{Fields: []string{"title", "meta_description", "bogus"}},
			CreditCost: 4,
		},
		TotalItems:     4,
		ProcessedItems: 2,
	}

	view := MapBulkJob(job)
	if view.WorkItemCount != 4 || view.EstimatedCredits != 4 || view.CompletedItems != 2 {
		t.Errorf("counts = %d/%d/%d, want 4/4/2", view.WorkItemCount, view.EstimatedCredits, view.CompletedItems)
	}
	if view.Selection.Products != 2 || view.Selection.Collections != 0 {
		t.Errorf("selection = %+v", view.Selection)
	}
	want := []string{"productTitle", "metaDescription"}
	if !reflect.DeepEqual(view.Types, want) {
		t.Errorf("Types = %v, want %v (unknown fields dropped)", view.Types, want)
	}
}

func TestMapBulkJobCollectionTypes(t *testing.T) {
	job := &model.BulkJob{
		ID:     "job-1",
		Type:   model.JobTypeCollections,
		Status: model.JobStatusCompleted,
		Config: model.JobConfig{
			Task:          model.TaskCollectionCopy,
			CollectionIDs: []string{gid("Collection", "1")},
			Settings:      model.JobSettings{Fields: []string{"title", "description"}},
		},
	}

	view := MapBulkJob(job)
	want := []string{"collectionTitle", "collectionDescription"}
	if !reflect.DeepEqual(view.Types, want) {
		t.Errorf("Types = %v, want %v", view.Types, want)
	}
}

func TestMapBulkJobsNeverNil(t *testing.T) {
	if views := MapBulkJobs(nil); views == nil || len(views) != 0 {
		t.Errorf("MapBulkJobs(nil) = %v, want empty non-nil slice", views)
	}
}
