package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/internal/security"
	"github.com/athebyme/listing-pipeline/internal/utils"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
)

// MockPipeline для тестирования
type MockPipeline struct {
	RenderFunc       func(ctx context.Context, raws []models.RawProduct, artifact export.Artifact) (*services.RenderedDocument, error)
	StartPublishFunc func(ctx context.Context, raws []models.RawProduct) (*services.StartedBatch, error)
	CancelBatchFunc  func(ctx context.Context, batchID string) error
	GetBatchFunc     func(ctx context.Context, batchID string) (*models.BatchResult, error)
	ListBatchesFunc  func(ctx context.Context, filter *models.BatchFilter, pagination *pkgutils.Pagination) (*pkgutils.PagedResult, error)
}

func (m *MockPipeline) Assemble(_ context.Context, raws []models.RawProduct) *services.AssembleResult {
	return &services.AssembleResult{Listings: make([]models.Listing, len(raws)), Rejections: []models.Rejection{}}
}

func (m *MockPipeline) Export(context.Context, []models.RawProduct, string) (*services.ExportReport, error) {
	return nil, nil
}

func (m *MockPipeline) Render(ctx context.Context, raws []models.RawProduct, artifact export.Artifact) (*services.RenderedDocument, error) {
	return m.RenderFunc(ctx, raws, artifact)
}

func (m *MockPipeline) Publish(context.Context, []models.RawProduct) (*models.BatchResult, []models.Rejection, error) {
	return nil, nil, utils.ErrPublisherDisabled
}

func (m *MockPipeline) StartPublish(ctx context.Context, raws []models.RawProduct) (*services.StartedBatch, error) {
	return m.StartPublishFunc(ctx, raws)
}

func (m *MockPipeline) CancelBatch(ctx context.Context, batchID string) error {
	return m.CancelBatchFunc(ctx, batchID)
}

func (m *MockPipeline) GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error) {
	return m.GetBatchFunc(ctx, batchID)
}

func (m *MockPipeline) ListBatches(ctx context.Context, filter *models.BatchFilter, pagination *pkgutils.Pagination) (*pkgutils.PagedResult, error) {
	if m.ListBatchesFunc != nil {
		return m.ListBatchesFunc(ctx, filter, pagination)
	}
	p := pkgutils.NewPagination(1, 20, "", true)
	return pkgutils.NewPagedResult([]models.BatchSummary{}, p), nil
}

const batchID = "0b8f3c1e-7a4d-4c2b-9e1f-5d6a7b8c9d0e"

func newTestRouter(t *testing.T, pipeline *MockPipeline) (http.Handler, *security.JWTManager) {
	t.Helper()
	jwtManager, err := security.NewJWTManager("test-secret", time.Hour, "")
	if err != nil {
		t.Fatal(err)
	}
	return SetupRouter(pipeline, logger.NewNopLogger(), []string{"*"}, jwtManager), jwtManager
}

func do(t *testing.T, h http.Handler, method, path, token, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthIsPublic(t *testing.T) {
	h, _ := newTestRouter(t, &MockPipeline{})

	rec := do(t, h, http.MethodGet, "/health", "", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRouter_Auth(t *testing.T) {
	h, jwtManager := newTestRouter(t, &MockPipeline{
		StartPublishFunc: func(context.Context, []models.RawProduct) (*services.StartedBatch, error) {
			return &services.StartedBatch{BatchID: batchID, Requested: 1}, nil
		},
	})
	viewer, _ := jwtManager.Generate("viewer-1", []string{RoleViewer})
	publisher, _ := jwtManager.Generate("publisher-1", []string{RolePublisher})
	body := `[{"title":"Serum","price_usd":"45.99"}]`

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "abc", http.StatusUnauthorized},
		{"viewer cannot publish", viewer, http.StatusForbidden},
		{"publisher starts batch", publisher, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/batches", tt.token, "application/json", body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRouter_StartBatchResponse(t *testing.T) {
	h, jwtManager := newTestRouter(t, &MockPipeline{
		StartPublishFunc: func(_ context.Context, raws []models.RawProduct) (*services.StartedBatch, error) {
			if len(raws) != 2 {
				t.Errorf("raws = %d, want 2", len(raws))
			}
			return &services.StartedBatch{BatchID: batchID, Requested: 2, Rejections: []models.Rejection{}}, nil
		},
	})
	token, _ := jwtManager.Generate("p", []string{RolePublisher})

	csvBody := "title,price_usd\nSerum,45.99\nMixer,129\n"
	rec := do(t, h, http.MethodPost, "/api/v1/batches", token, "text/csv", csvBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Location") != "/api/v1/batches/"+batchID {
		t.Errorf("Location = %s", rec.Header().Get("Location"))
	}

	var resp struct {
		Success bool                  `json:"success"`
		Data    services.StartedBatch `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.BatchID != batchID {
		t.Errorf("response = %+v", resp)
	}
}

func TestRouter_BatchErrors(t *testing.T) {
	h, jwtManager := newTestRouter(t, &MockPipeline{
		StartPublishFunc: func(context.Context, []models.RawProduct) (*services.StartedBatch, error) {
			return &services.StartedBatch{}, utils.ErrNothingToPublish
		},
		GetBatchFunc: func(_ context.Context, id string) (*models.BatchResult, error) {
			if id == batchID {
				return nil, utils.ErrBatchNotFound
			}
			return nil, utils.ErrInvalidBatchID
		},
		CancelBatchFunc: func(context.Context, string) error {
			return utils.ErrBatchNotRunning
		},
	})
	token, _ := jwtManager.Generate("p", []string{RolePublisher})

	tests := []struct {
		name   string
		method string
		path   string
		ct     string
		body   string
		want   int
	}{
		{"nothing to publish", http.MethodPost, "/api/v1/batches", "application/json", `[{"title":""}]`, http.StatusUnprocessableEntity},
		{"malformed body", http.MethodPost, "/api/v1/batches", "application/json", `{`, http.StatusBadRequest},
		{"unsupported media", http.MethodPost, "/api/v1/batches", "application/xml", `<a/>`, http.StatusUnsupportedMediaType},
		{"sync publishing disabled", http.MethodPost, "/api/v1/batches/sync", "application/json", `[{"title":"a"}]`, http.StatusServiceUnavailable},
		{"unknown batch", http.MethodGet, "/api/v1/batches/" + batchID, "", "", http.StatusNotFound},
		{"invalid batch id", http.MethodGet, "/api/v1/batches/xyz", "", "", http.StatusBadRequest},
		{"cancel finished batch", http.MethodDelete, "/api/v1/batches/" + batchID, "", "", http.StatusConflict},
		{"list batches", http.MethodGet, "/api/v1/batches?state=completed", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, token, tt.ct, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRouter_GetBatchPolling(t *testing.T) {
	state := models.BatchStatePublishing
	h, jwtManager := newTestRouter(t, &MockPipeline{
		GetBatchFunc: func(context.Context, string) (*models.BatchResult, error) {
			return &models.BatchResult{ID: batchID, State: state}, nil
		},
	})
	token, _ := jwtManager.Generate("v", []string{RoleViewer})

	rec := do(t, h, http.MethodGet, "/api/v1/batches/"+batchID, token, "", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Retry-After") != "2" {
		t.Errorf("running batch: status = %d, Retry-After = %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	state = models.BatchStateCompleted
	rec = do(t, h, http.MethodGet, "/api/v1/batches/"+batchID, token, "", "")
	if rec.Header().Get("Retry-After") != "" {
		t.Errorf("finished batch: Retry-After = %q, want none", rec.Header().Get("Retry-After"))
	}
}

func TestRouter_ListBatchesQuery(t *testing.T) {
	var got *pkgutils.Pagination
	h, jwtManager := newTestRouter(t, &MockPipeline{
		ListBatchesFunc: func(_ context.Context, _ *models.BatchFilter, p *pkgutils.Pagination) (*pkgutils.PagedResult, error) {
			got = p
			return pkgutils.NewPagedResult([]models.BatchSummary{}, p), nil
		},
	})
	token, _ := jwtManager.Generate("v", []string{RoleViewer})

	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
		sortBy   string
		desc     bool
	}{
		{"defaults", "", 1, pkgutils.DefaultPageSize, "started_at", true},
		{"sort ascending", "?sort=failed&page=3&page_size=50", 3, 50, "failed", false},
		{"sort descending", "?sort=-total", 1, pkgutils.DefaultPageSize, "total", true},
		{"page size over limit", "?page=0&page_size=500", 1, pkgutils.DefaultPageSize, "started_at", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/batches"+tt.query, token, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got.Page != tt.page || got.PageSize != tt.pageSize || got.SortBy != tt.sortBy || got.SortDesc != tt.desc {
				t.Errorf("pagination = %+v", got)
			}
		})
	}
}

func TestRouter_Export(t *testing.T) {
	h, jwtManager := newTestRouter(t, &MockPipeline{
		RenderFunc: func(_ context.Context, raws []models.RawProduct, artifact export.Artifact) (*services.RenderedDocument, error) {
			if raws[0].Title == "" {
				return nil, export.ErrExportEmpty
			}
			if artifact != export.ArtifactReference {
				t.Errorf("artifact = %s, want reference", artifact)
			}
			return &services.RenderedDocument{FileName: "ref.xlsx", Content: []byte("PK"), Rows: 1}, nil
		},
	})
	token, _ := jwtManager.Generate("v", []string{RoleViewer})

	rec := do(t, h, http.MethodPost, "/api/v1/listings/export?artifact=reference", token, "application/json", `[{"title":"a","price_usd":"1"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Disposition") != `attachment; filename="ref.xlsx"` {
		t.Errorf("Content-Disposition = %s", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "PK" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/v1/listings/export", token, "application/json", `[{"title":""}]`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty export status = %d, want 422", rec.Code)
	}
}
