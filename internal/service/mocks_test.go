package service

import (
	"context"
	"sync"
	"time"

	"storecopy-api/internal/model"
	"storecopy-api/internal/repository"
)

// fakeAccounts is an in-memory credit ledger with failure injection.
type fakeAccounts struct {
	mu             sync.Mutex
	balances       map[string]int64
	plansByShop    map[string]string
	subscriptions  map[string]string
	defaultBalance int64

	reserveErr error
	refunds    []int64
}

func newFakeAccounts(defaultBalance int64) *fakeAccounts {
	return &fakeAccounts{
		balances:       make(map[string]int64),
		plansByShop:    make(map[string]string),
		subscriptions:  make(map[string]string),
		defaultBalance: defaultBalance,
	}
}

func (f *fakeAccounts) account(shopDomain string) *model.Account {
	plan := f.plansByShop[shopDomain]
	if plan == "" {
		plan = "FREE"
	}
	return &model.Account{
		ShopDomain:     shopDomain,
		CreditsBalance: f.balances[shopDomain],
		CurrentPlan:    plan,
		SubscriptionID: f.subscriptions[shopDomain],
	}
}

func (f *fakeAccounts) GetOrCreate(ctx context.Context, shopDomain string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[shopDomain]; !ok {
		f.balances[shopDomain] = f.defaultBalance
	}
	return f.account(shopDomain), nil
}

func (f *fakeAccounts) Reserve(ctx context.Context, shopDomain string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return 0, f.reserveErr
	}
	balance := f.balances[shopDomain]
	if amount <= 0 {
		return balance, nil
	}
	if balance < amount {
		return balance, repository.ErrInsufficientCredits
	}
	f.balances[shopDomain] = balance - amount
	return f.balances[shopDomain], nil
}

func (f *fakeAccounts) Refund(ctx context.Context, shopDomain string, amount int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount <= 0 {
		return nil, nil
	}
	f.refunds = append(f.refunds, amount)
	f.balances[shopDomain] += amount
	return f.account(shopDomain), nil
}

func (f *fakeAccounts) Add(ctx context.Context, shopDomain string, amount int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount <= 0 {
		return nil, repository.ErrInvalidAmount
	}
	f.balances[shopDomain] += amount
	return f.account(shopDomain), nil
}

func (f *fakeAccounts) ApplySubscription(ctx context.Context, shopDomain, planID, subscriptionID string, credits int64) (*model.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[shopDomain]; !ok {
		f.balances[shopDomain] = f.defaultBalance
	}
	f.plansByShop[shopDomain] = planID
	if f.subscriptions[shopDomain] == subscriptionID {
		return f.account(shopDomain), false, nil
	}
	f.subscriptions[shopDomain] = subscriptionID
	f.balances[shopDomain] += credits
	return f.account(shopDomain), true, nil
}

func (f *fakeAccounts) balance(shopDomain string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[shopDomain]
}

// fakeJobs is an in-memory job store preserving insertion order.
type fakeJobs struct {
	mu        sync.Mutex
	jobs      []*model.BulkJob
	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{}
}

func (f *fakeJobs) Create(ctx context.Context, job *model.BulkJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	stored := *job
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.jobs = append(f.jobs, &stored)
	return nil
}

func (f *fakeJobs) ClaimNextQueued(ctx context.Context) (*model.BulkJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Status == model.JobStatusQueued {
			job.Status = model.JobStatusRunning
			claimed := *job
			return &claimed, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) SetProgress(ctx context.Context, jobID string, processed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.find(jobID)
	if job == nil || job.Status != model.JobStatusRunning {
		return repository.ErrNotFound
	}
	if processed > job.TotalItems {
		processed = job.TotalItems
	}
	job.ProcessedItems = processed
	return nil
}

func (f *fakeJobs) MarkCompleted(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.find(jobID)
	if job == nil || job.Status != model.JobStatusRunning {
		return repository.ErrNotFound
	}
	job.Status = model.JobStatusCompleted
	job.ProcessedItems = job.TotalItems
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, jobID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.find(jobID)
	if job == nil || job.Status.Terminal() {
		return repository.ErrNotFound
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = message
	return nil
}

func (f *fakeJobs) ListByShop(ctx context.Context, shopDomain string, limit int) ([]*model.BulkJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.BulkJob
	for i := len(f.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.jobs[i].ShopDomain == shopDomain {
			copied := *f.jobs[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeJobs) FindByID(ctx context.Context, shopDomain, jobID string) (*model.BulkJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.find(jobID)
	if job == nil || job.ShopDomain != shopDomain {
		return nil, repository.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) find(jobID string) *model.BulkJob {
	for _, job := range f.jobs {
		if job.ID == jobID {
			return job
		}
	}
	return nil
}

func (f *fakeJobs) get(jobID string) *model.BulkJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.find(jobID)
	if job == nil {
		return nil
	}
	copied := *job
	return &copied
}

// fakeResources is a canned platform client.
type fakeResources struct {
	mu sync.Mutex

	products    map[string]*model.Product
	collections map[string]*model.Collection
	images      map[string]*model.ProductImages

	productErr map[string]error
	updateErr  map[string]error

	productUpdates    map[string]model.ContentUpdate
	collectionUpdates map[string]model.ContentUpdate
	altUpdates        map[string]string
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		products:          make(map[string]*model.Product),
		collections:       make(map[string]*model.Collection),
		images:            make(map[string]*model.ProductImages),
		productErr:        make(map[string]error),
		updateErr:         make(map[string]error),
		productUpdates:    make(map[string]model.ContentUpdate),
		collectionUpdates: make(map[string]model.ContentUpdate),
		altUpdates:        make(map[string]string),
	}
}

func (f *fakeResources) Product(ctx context.Context, session *model.Session, productID string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.productErr[productID]; err != nil {
		return nil, err
	}
	return f.products[productID], nil
}

func (f *fakeResources) UpdateProduct(ctx context.Context, session *model.Session, productID string, update model.ContentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[productID]; err != nil {
		return err
	}
	f.productUpdates[productID] = update
	return nil
}

func (f *fakeResources) Collection(ctx context.Context, session *model.Session, collectionID string) (*model.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.productErr[collectionID]; err != nil {
		return nil, err
	}
	return f.collections[collectionID], nil
}

func (f *fakeResources) UpdateCollection(ctx context.Context, session *model.Session, collectionID string, update model.ContentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[collectionID]; err != nil {
		return err
	}
	f.collectionUpdates[collectionID] = update
	return nil
}

func (f *fakeResources) ProductImages(ctx context.Context, session *model.Session, productID string) (*model.ProductImages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.productErr[productID]; err != nil {
		return nil, err
	}
	return f.images[productID], nil
}

func (f *fakeResources) UpdateImageAlt(ctx context.Context, session *model.Session, productID, imageID, altText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[productID]; err != nil {
		return err
	}
	f.altUpdates[imageID] = altText
	return nil
}

// fakeGenerator returns canned content.
type fakeGenerator struct {
	configured bool
	content    model.GeneratedContent
	altText    string
	err        error

	calls int
}

func (f *fakeGenerator) Configured() bool { return f.configured }

func (f *fakeGenerator) ProductCopy(ctx context.Context, product *model.Product, settings model.JobSettings) (*model.GeneratedContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	content := f.content
	return &content, nil
}

func (f *fakeGenerator) CollectionCopy(ctx context.Context, collection *model.Collection, settings model.JobSettings) (*model.GeneratedContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	content := f.content
	return &content, nil
}

func (f *fakeGenerator) ImageAltText(ctx context.Context, prompt model.AltTextPrompt) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.altText, nil
}

// fakeProcessor records the jobs it receives and returns a fixed error.
type fakeProcessor struct {
	err  error
	seen []*model.BulkJob
}

func (f *fakeProcessor) Process(ctx context.Context, job *model.BulkJob) error {
	f.seen = append(f.seen, job)
	return f.err
}

// fakePurchases is an in-memory purchase store.
type fakePurchases struct {
	mu        sync.Mutex
	purchases map[string]*model.CreditPurchase
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{purchases: make(map[string]*model.CreditPurchase)}
}

func (f *fakePurchases) UpsertPending(ctx context.Context, purchase *model.CreditPurchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *purchase
	stored.Status = model.PurchasePending
	f.purchases[purchase.ChargeID] = &stored
	return nil
}

func (f *fakePurchases) Finalize(ctx context.Context, chargeID string, status model.PurchaseStatus) (*model.CreditPurchase, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.purchases[chargeID]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if purchase.Status != model.PurchasePending {
		copied := *purchase
		return &copied, false, nil
	}
	purchase.Status = status
	copied := *purchase
	return &copied, true, nil
}

func (f *fakePurchases) FindByChargeID(ctx context.Context, chargeID string) (*model.CreditPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.purchases[chargeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *purchase
	return &copied, nil
}

func (f *fakePurchases) ListPending(ctx context.Context, shopDomain string) ([]*model.CreditPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.CreditPurchase
	for _, purchase := range f.purchases {
		if purchase.ShopDomain == shopDomain && purchase.Status == model.PurchasePending {
			copied := *purchase
			out = append(out, &copied)
		}
	}
	return out, nil
}
