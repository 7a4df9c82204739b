package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"golang.org/x/oauth2"
)

// fakeClock часы, которые не спят и запоминают запрошенные паузы
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  []time.Duration
	onWait func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	n := len(c.waits)
	hook := c.onWait
	now := c.now
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration{}, c.waits...)
}

// MockTokens источник токенов с подменяемым поведением
type MockTokens struct {
	TokenFunc func(ctx context.Context) (*oauth2.Token, error)
	Calls     int
}

func (m *MockTokens) Token(ctx context.Context) (*oauth2.Token, error) {
	m.Calls++
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx)
	}
	return &oauth2.Token{AccessToken: "token-1"}, nil
}

// MockAPI API маркетплейса с подменяемым поведением
type MockAPI struct {
	mu                sync.Mutex
	UploadImageFunc   func(ctx context.Context, token, imageURL string) (string, error)
	CreateProductFunc func(ctx context.Context, token string, req ProductRequest, key string) (string, error)
	Created           []ProductRequest
	Keys              []string
	Tokens            []string
}

func (m *MockAPI) UploadImage(ctx context.Context, token, imageURL string) (string, error) {
	if m.UploadImageFunc != nil {
		return m.UploadImageFunc(ctx, token, imageURL)
	}
	return "https://shop-phinf.example.com/" + imageURL[len(imageURL)-5:], nil
}

func (m *MockAPI) CreateProduct(ctx context.Context, token string, req ProductRequest, key string) (string, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	m.Keys = append(m.Keys, key)
	m.Tokens = append(m.Tokens, token)
	n := len(m.Created)
	m.mu.Unlock()

	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, token, req, key)
	}
	return fmt.Sprintf("%d", 1000+n), nil
}

func (m *MockAPI) ProductRequest(l models.Listing, images []string) ProductRequest {
	return NewProductRequest(l, images, DefaultReturnPolicy())
}

func testListings(n int) []models.Listing {
	out := make([]models.Listing, n)
	for i := range out {
		out[i] = models.Listing{
			SellerCode:       fmt.Sprintf("AMZ_%04d", i+1),
			CategoryCode:     "50000169",
			LeafCategoryCode: "50000169",
			Title:            fmt.Sprintf("Serum %d", i+1),
			SalePrice:        int64(10000 * (i + 1)),
			ImageURL:         fmt.Sprintf("https://img.example.com/%d.jpg", i+1),
			Defaults:         models.DefaultListingDefaults(),
		}
	}
	return out
}

func newTestPublisher(tokens TokenSource, api API, clock *fakeClock) *Publisher {
	return NewPublisher(tokens, api, NewFixedIntervalPacer(2*time.Second, clock), clock, logger.NewNopLogger())
}

func assertAccounting(t *testing.T, r *models.BatchResult) {
	t.Helper()
	if r.Total != r.Succeeded+r.Failed {
		t.Errorf("Total = %d, want Succeeded+Failed = %d", r.Total, r.Succeeded+r.Failed)
	}
	if r.Total+len(r.Excluded) != r.Requested && r.State != models.BatchStateAuthFailed {
		t.Errorf("accounted %d+%d, want %d", r.Total, len(r.Excluded), r.Requested)
	}
	seen := make(map[int]bool)
	for _, o := range r.Outcomes() {
		if seen[o.Index] {
			t.Errorf("index %d reported twice", o.Index)
		}
		seen[o.Index] = true
	}
	for _, e := range r.Excluded {
		if seen[e.Index] {
			t.Errorf("excluded index %d also has an outcome", e.Index)
		}
		seen[e.Index] = true
	}
}

func TestPublisher_PublishesSequentiallyWithPacing(t *testing.T) {
	clock := newFakeClock()
	api := &MockAPI{}
	tokens := &MockTokens{}
	p := newTestPublisher(tokens, api, clock)

	var states []models.BatchState
	r := p.Run(context.Background(), Batch{
		ID:       "batch-1",
		Listings: testListings(3),
		OnProgress: func(s *models.BatchResult) {
			if len(states) == 0 || states[len(states)-1] != s.State {
				states = append(states, s.State)
			}
		},
	})

	if r.State != models.BatchStateCompleted {
		t.Fatalf("State = %s, want COMPLETED", r.State)
	}
	if r.Succeeded != 3 || r.Failed != 0 {
		t.Errorf("success/failed = %d/%d, want 3/0", r.Succeeded, r.Failed)
	}
	assertAccounting(t, r)

	waits := clock.Waits()
	if len(waits) != 2 {
		t.Fatalf("pacer waits = %d, want 2 (before every item but the first)", len(waits))
	}
	for _, w := range waits {
		if w != 2*time.Second {
			t.Errorf("wait = %s, want 2s", w)
		}
	}

	wantStates := []models.BatchState{
		models.BatchStateInit,
		models.BatchStateAuthenticated,
		models.BatchStatePublishing,
		models.BatchStateCompleted,
	}
	if fmt.Sprint(states) != fmt.Sprint(wantStates) {
		t.Errorf("states = %v, want %v", states, wantStates)
	}

	for i, o := range r.Successes {
		if o.Index != i+1 {
			t.Errorf("outcome %d Index = %d, want input order", i, o.Index)
		}
		if o.RemoteID == "" {
			t.Errorf("outcome %d has empty RemoteID", i)
		}
	}
	if tokens.Calls != 1 {
		t.Errorf("token requests = %d, want one per batch", tokens.Calls)
	}
	for _, tok := range api.Tokens {
		if tok != "token-1" {
			t.Errorf("request token = %q, want token-1", tok)
		}
	}
}

func TestPublisher_AuthFailureIsFatal(t *testing.T) {
	clock := newFakeClock()
	api := &MockAPI{}
	tokens := &MockTokens{TokenFunc: func(context.Context) (*oauth2.Token, error) {
		return nil, errors.New("401 unauthorized")
	}}
	p := newTestPublisher(tokens, api, clock)

	r := p.PublishBatch(context.Background(), testListings(4))

	if r.State != models.BatchStateAuthFailed {
		t.Errorf("State = %s, want AUTH_FAILED", r.State)
	}
	if r.FailureCode != models.FailureAuth {
		t.Errorf("FailureCode = %s, want AUTH_FAILURE", r.FailureCode)
	}
	if r.Total != 0 || r.Succeeded != 0 || r.Failed != 0 {
		t.Errorf("processed %d items, want 0", r.Total)
	}
	if r.Requested != 4 {
		t.Errorf("Requested = %d, want 4", r.Requested)
	}
	if len(api.Created) != 0 {
		t.Errorf("CreateProduct called %d times after auth failure", len(api.Created))
	}
	if len(clock.Waits()) != 0 {
		t.Errorf("pacer used after auth failure")
	}
	assertAccounting(t, r)
}

func TestPublisher_ItemFailureDoesNotAbortBatch(t *testing.T) {
	clock := newFakeClock()
	api := &MockAPI{
		CreateProductFunc: func(_ context.Context, _ string, req ProductRequest, _ string) (string, error) {
			switch req.OriginProduct.SellerCode {
			case "AMZ_0002":
				return "", &PublishError{Code: models.FailurePublishRejected, Status: 400, Body: `{"code":"BadRequest"}`}
			case "AMZ_0003":
				return "", &PublishError{Code: models.FailureNetworkTimeout, Err: context.DeadlineExceeded}
			}
			return "777", nil
		},
	}
	p := newTestPublisher(&MockTokens{}, api, clock)

	r := p.PublishBatch(context.Background(), testListings(4))

	if r.State != models.BatchStateCompleted {
		t.Fatalf("State = %s, want COMPLETED", r.State)
	}
	if r.Succeeded != 2 || r.Failed != 2 {
		t.Errorf("success/failed = %d/%d, want 2/2", r.Succeeded, r.Failed)
	}
	if r.Failures[0].FailureCode != models.FailurePublishRejected || r.Failures[0].Index != 2 {
		t.Errorf("first failure = %+v, want PUBLISH_REJECTED at index 2", r.Failures[0])
	}
	if r.Failures[1].FailureCode != models.FailureNetworkTimeout {
		t.Errorf("second failure code = %s, want NETWORK_TIMEOUT", r.Failures[1].FailureCode)
	}
	if len(clock.Waits()) != 3 {
		t.Errorf("pacer waits = %d, want 3 regardless of failures", len(clock.Waits()))
	}
	assertAccounting(t, r)

	outcomes := r.Outcomes()
	for i, o := range outcomes {
		if o.Index != i+1 {
			t.Errorf("Outcomes()[%d].Index = %d, want %d", i, o.Index, i+1)
		}
	}
}

func TestPublisher_DropsFailedImages(t *testing.T) {
	clock := newFakeClock()
	api := &MockAPI{
		UploadImageFunc: func(_ context.Context, _, imageURL string) (string, error) {
			if imageURL == "https://img.example.com/broken.jpg" {
				return "", &PublishError{Code: models.FailureMediaFetch, Status: 404, Err: ErrImageDownload}
			}
			return "https://shop-phinf.example.com/ok.jpg", nil
		},
	}
	p := newTestPublisher(&MockTokens{}, api, clock)

	listings := testListings(1)
	listings[0].AdditionalImages = []string{"https://img.example.com/broken.jpg", "https://img.example.com/2.jpg"}

	r := p.PublishBatch(context.Background(), listings)

	if r.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, want 1", r.Succeeded)
	}
	o := r.Successes[0]
	if o.ImagesTotal != 3 || o.ImagesUploaded != 2 {
		t.Errorf("images = %d/%d, want 2 of 3 uploaded", o.ImagesUploaded, o.ImagesTotal)
	}
	if got := len(api.Created[0].OriginProduct.Images); got != 2 {
		t.Errorf("request images = %d, want 2", got)
	}
}

func TestPublisher_CancellationBetweenItems(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &MockAPI{
		CreateProductFunc: func(itemCtx context.Context, _ string, req ProductRequest, _ string) (string, error) {
			if req.OriginProduct.SellerCode == "AMZ_0002" {
				cancel()
				if itemCtx.Err() != nil {
					return "", errors.New("item context cancelled mid-item")
				}
			}
			return "555", nil
		},
	}
	p := newTestPublisher(&MockTokens{}, api, clock)

	r := p.Run(ctx, Batch{ID: "batch-cancel", Listings: testListings(5)})

	if r.State != models.BatchStateCompleted {
		t.Errorf("State = %s, want COMPLETED", r.State)
	}
	if !r.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if r.Total != 2 || r.Succeeded != 2 {
		t.Errorf("Total/Succeeded = %d/%d, want 2/2", r.Total, r.Succeeded)
	}
	if len(r.Excluded) != 3 {
		t.Fatalf("Excluded = %d, want 3", len(r.Excluded))
	}
	for i, e := range r.Excluded {
		if e.Reason != models.ExcludedCancelled || e.Index != i+3 {
			t.Errorf("Excluded[%d] = %+v, want CANCELLED index %d", i, e, i+3)
		}
	}
	if r.Failed != 0 {
		t.Errorf("Failed = %d, unattempted items must not be failures", r.Failed)
	}
	assertAccounting(t, r)
}

func TestPublisher_CancelledBeforeStart(t *testing.T) {
	clock := newFakeClock()
	tokens := &MockTokens{}
	p := newTestPublisher(tokens, &MockAPI{}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := p.PublishBatch(ctx, testListings(2))
	if tokens.Calls != 0 {
		t.Errorf("token requested for cancelled batch")
	}
	if len(r.Excluded) != 2 || r.Total != 0 {
		t.Errorf("Excluded/Total = %d/%d, want 2/0", len(r.Excluded), r.Total)
	}
	assertAccounting(t, r)
}

func TestPublisher_PanicBecomesItemFailure(t *testing.T) {
	clock := newFakeClock()
	api := &MockAPI{
		CreateProductFunc: func(_ context.Context, _ string, req ProductRequest, _ string) (string, error) {
			if req.OriginProduct.SellerCode == "AMZ_0001" {
				panic("boom")
			}
			return "1", nil
		},
	}
	p := newTestPublisher(&MockTokens{}, api, clock)

	r := p.PublishBatch(context.Background(), testListings(2))
	if r.Failed != 1 || r.Succeeded != 1 {
		t.Fatalf("success/failed = %d/%d, want 1/1", r.Succeeded, r.Failed)
	}
	if r.Failures[0].FailureCode != models.FailureTransform {
		t.Errorf("FailureCode = %s, want TRANSFORM_ERROR", r.Failures[0].FailureCode)
	}
}

func TestIdempotencyKey_Stable(t *testing.T) {
	a := testListings(2)
	b := testListings(2)

	if IdempotencyKey(a[0]) != IdempotencyKey(b[0]) {
		t.Error("IdempotencyKey differs for identical listings")
	}
	if IdempotencyKey(a[0]) == IdempotencyKey(a[1]) {
		t.Error("IdempotencyKey equal for different listings")
	}
}
