package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"storecopy-api/internal/config"
	"storecopy-api/internal/handler"
	"storecopy-api/internal/middleware"
	"storecopy-api/internal/model"
	"storecopy-api/internal/repository"
	"storecopy-api/internal/router"
	"storecopy-api/internal/service"
	"storecopy-api/internal/session"
)

const (
	testAPIKey = "test-key"
	testShop   = "demo.myshopify.com"
)

// noopProcessor completes every job without external calls.
type noopProcessor struct{}

func (noopProcessor) Process(ctx context.Context, job *model.BulkJob) error { return nil }

func newTestServer(t *testing.T, initialCredits int64) *httptest.Server {
	t.Helper()

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accountRepo := repository.NewSQLiteAccountRepository(db, initialCredits)
	jobRepo := repository.NewSQLiteJobRepository(db)
	purchaseRepo := repository.NewSQLitePurchaseRepository(db)

	sessions := session.NewMemoryStore()
	if err := sessions.Save(context.Background(), &model.Session{
		ID:          model.OfflineSessionID(testShop),
		ShopDomain:  testShop,
		AccessToken: "token",
	}); err != nil {
		t.Fatalf("Save session: %v", err)
	}

	admission := service.NewAdmissionService(accountRepo, jobRepo, sessions)
	billing := service.NewBillingService(accountRepo, purchaseRepo)
	worker := service.NewWorker(jobRepo, accountRepo, map[model.TaskMode]service.Processor{
		model.TaskProductCopy:    noopProcessor{},
		model.TaskCollectionCopy: noopProcessor{},
		model.TaskAltText:        noopProcessor{},
	}, config.WorkerConfig{PollInterval: time.Hour, JobTimeout: time.Minute, CallTimeout: time.Second})

	r := router.New(router.Config{
		HealthHandler:   handler.NewHealthHandler(db, "test"),
		JobsHandler:     handler.NewJobsHandler(admission, billing, jobRepo),
		BillingHandler:  handler.NewBillingHandler(billing),
		SessionsHandler: handler.NewSessionsHandler(sessions),
		AdminHandler:    handler.NewAdminHandler(worker, billing),
		AuthMiddleware:  middleware.NewAuthMiddleware(middleware.AuthConfig{APIKey: testAPIKey}),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Shop-Domain", testShop)

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func productGids(n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, "gid://shopify/Product/"+string(rune('a'+i)))
	}
	return ids
}

func TestCreateJobEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
		"productIds": productGids(3),
		"settings":   map[string]any{"fields": []string{"title", "description"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var data struct {
		Job            *service.JobView `json:"job"`
		CreditsBalance int64            `json:"creditsBalance"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Job.WorkItemCount != 6 {
		t.Errorf("WorkItemCount = %d, want 6", data.Job.WorkItemCount)
	}
	if data.CreditsBalance != 94 {
		t.Errorf("CreditsBalance = %d, want 94", data.CreditsBalance)
	}
	if data.Job.Status != "queued" {
		t.Errorf("Status = %q, want queued", data.Job.Status)
	}
}

func TestCreateJobInsufficientCredits(t *testing.T) {
	srv := newTestServer(t, 1)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
		"productIds": productGids(3),
		"settings":   map[string]any{"fields": []string{"title"}},
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}
}

func TestCreateJobRejectsWithoutShopHeader(t *testing.T) {
	srv := newTestServer(t, 100)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/jobs", bytes.NewBufferString("{}"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuthRejectsBadAPIKey(t *testing.T) {
	srv := newTestServer(t, 100)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/credits", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("X-API-Key", "wrong")
	req.Header.Set("X-Shop-Domain", testShop)

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := srv.Client().Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without credentials", resp.StatusCode)
	}
}

func TestListJobsEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	for i := 0; i < 2; i++ {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
			"productIds": productGids(1),
			"settings":   map[string]any{"fields": []string{"title"}},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d", resp.StatusCode)
		}
	}

	resp, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/jobs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var data struct {
		Jobs           []*service.JobView `json:"jobs"`
		CreditsBalance int64              `json:"creditsBalance"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Jobs) != 2 {
		t.Errorf("len(jobs) = %d, want 2", len(data.Jobs))
	}
	if data.CreditsBalance != 98 {
		t.Errorf("CreditsBalance = %d, want 98", data.CreditsBalance)
	}
}

func TestGetJobEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
		"productIds": productGids(1),
		"settings":   map[string]any{"fields": []string{"title"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created struct {
		Job *service.JobView `json:"job"`
	}
	if err := json.Unmarshal(envelope["data"], &created); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	resp, _ = doRequest(t, srv, http.MethodGet, "/api/v1/jobs/"+created.Job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doRequest(t, srv, http.MethodGet, "/api/v1/jobs/does-not-exist", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminRunWorkerNow(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/jobs", map[string]any{
		"productIds": productGids(1),
		"settings":   map[string]any{"fields": []string{"title"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/admin/worker/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var data struct {
		Claimed bool `json:"claimed"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Claimed {
		t.Error("worker run claimed nothing")
	}
}

func TestPurchaseLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t, 0)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/billing/purchases", map[string]any{
		"chargeId":     "charge-1",
		"creditsToAdd": 500,
		"priceUsd":     9.99,
		"type":         "one_time",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record status = %d, want 201", resp.StatusCode)
	}

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/v1/billing/purchases/charge-1/complete", map[string]any{
		"status": "completed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", resp.StatusCode)
	}

	resp, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/credits", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("credits status = %d, want 200", resp.StatusCode)
	}
	var data struct {
		CreditsBalance int64 `json:"creditsBalance"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.CreditsBalance != 500 {
		t.Errorf("CreditsBalance = %d, want 500", data.CreditsBalance)
	}
}

func TestSaveSessionEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", map[string]any{
		"accessToken": "new-token",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/v1/sessions", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty token status = %d, want 400", resp.StatusCode)
	}
}
