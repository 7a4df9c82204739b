package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

func TestSigner_Sign(t *testing.T) {
	s := NewSigner("client-id", "secret", "")

	got := s.Sign("1700000000000", "POST", "/external/v2/products", "")
	if got != "G9R3/5RIi9+yLOe4RnQJ465dWWgGycSZ0iY60VQuMGk=" {
		t.Errorf("Sign = %s", got)
	}
	if got == s.Sign("1700000000000", "POST", "/external/v2/products", "{}") {
		t.Error("body does not affect signature")
	}
	if got == s.Sign("1700000000001", "POST", "/external/v2/products", "") {
		t.Error("timestamp does not affect signature")
	}
}

func TestSigner_Apply(t *testing.T) {
	s := NewSigner("client-id", "secret", "customer-7")
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/external/v2/products", nil)
	s.Apply(req, "tok", []byte(`{"a":1}`))

	if req.Header.Get(HeaderTimestamp) != "1700000000000" {
		t.Errorf("X-Timestamp = %s", req.Header.Get(HeaderTimestamp))
	}
	if req.Header.Get(HeaderAPIKey) != "client-id" || req.Header.Get(HeaderCustomer) != "customer-7" {
		t.Errorf("identity headers = %v", req.Header)
	}
	want := s.Sign("1700000000000", "POST", "/external/v2/products", `{"a":1}`)
	if req.Header.Get(HeaderSignature) != want {
		t.Errorf("X-Signature = %s, want %s", req.Header.Get(HeaderSignature), want)
	}
	if req.Header.Get("Authorization") != "Bearer tok" {
		t.Errorf("Authorization = %s", req.Header.Get("Authorization"))
	}
}

// fakeMarketplace поднимает тестовый сервер API маркетплейса и источника изображений
func fakeMarketplace(t *testing.T, signer *Signer, register http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/images/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("\xff\xd8\xff fake jpeg"))
	})
	mux.HandleFunc("/images/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc(ImageUploadPath, func(w http.ResponseWriter, r *http.Request) {
		want := signer.Sign(r.Header.Get(HeaderTimestamp), r.Method, r.URL.Path, "")
		if r.Header.Get(HeaderSignature) != want {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		file, header, err := r.FormFile(imageFieldName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != imageFileName {
			http.Error(w, "bad filename", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"imageUrl":"https://shop-phinf.example.com/uploaded.jpg"}`))
	})
	mux.HandleFunc(ProductsPath, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		want := signer.Sign(r.Header.Get(HeaderTimestamp), r.Method, r.URL.Path, string(body))
		if r.Header.Get(HeaderSignature) != want {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		register(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, signer *Signer, timeout time.Duration) *Client {
	return NewClient(ClientConfig{BaseURL: srv.URL, RequestTimeout: timeout}, signer, srv.Client(), logger.NewNopLogger())
}

func TestClient_UploadImage(t *testing.T) {
	signer := NewSigner("id", "secret", "")
	srv := fakeMarketplace(t, signer, nil)
	c := newTestClient(srv, signer, time.Second)

	ref, err := c.UploadImage(context.Background(), "tok", srv.URL+"/images/ok.jpg")
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}
	if ref != "https://shop-phinf.example.com/uploaded.jpg" {
		t.Errorf("ref = %s", ref)
	}

	_, err = c.UploadImage(context.Background(), "tok", srv.URL+"/images/missing.jpg")
	if FailureCodeOf(err) != models.FailureMediaFetch {
		t.Errorf("missing image code = %s, want MEDIA_FETCH_FAILURE", FailureCodeOf(err))
	}
}

func TestClient_CreateProduct(t *testing.T) {
	signer := NewSigner("id", "secret", "")
	var gotKey string
	var gotBody ProductRequest
	srv := fakeMarketplace(t, signer, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(HeaderIdempotency)
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"originProductId": 9876543210}`))
	})
	c := newTestClient(srv, signer, time.Second)

	l := testListings(1)[0]
	id, err := c.CreateProduct(context.Background(), "tok", c.ProductRequest(l, []string{"https://shop-phinf.example.com/a.jpg"}), IdempotencyKey(l))
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if id != "9876543210" {
		t.Errorf("id = %s, want 9876543210", id)
	}
	if gotKey != IdempotencyKey(l) {
		t.Errorf("idempotency key = %s", gotKey)
	}
	if gotBody.OriginProduct.LeafCategoryID != "50000169" || gotBody.SmartstoreChannelProduct.SalePrice != 10000 {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.SmartstoreChannelProduct.DeliveryInfo.DeliveryCompany != "CJGLS" {
		t.Errorf("delivery company = %s", gotBody.SmartstoreChannelProduct.DeliveryInfo.DeliveryCompany)
	}
	if len(gotBody.OriginProduct.Images) != 1 {
		t.Errorf("images = %v", gotBody.OriginProduct.Images)
	}
}

func TestClient_CreateProductRejected(t *testing.T) {
	signer := NewSigner("id", "secret", "")
	srv := fakeMarketplace(t, signer, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"InvalidCategory"}`, http.StatusBadRequest)
	})
	c := newTestClient(srv, signer, time.Second)

	_, err := c.CreateProduct(context.Background(), "tok", c.ProductRequest(testListings(1)[0], nil), "")
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("error = %v, want *PublishError", err)
	}
	if pubErr.Code != models.FailurePublishRejected || pubErr.Status != http.StatusBadRequest {
		t.Errorf("PublishError = %+v", pubErr)
	}
	if !strings.Contains(pubErr.Body, "InvalidCategory") {
		t.Errorf("Body = %q, want remote reason", pubErr.Body)
	}
}

func TestClient_CreateProductMissingID(t *testing.T) {
	signer := NewSigner("id", "secret", "")
	srv := fakeMarketplace(t, signer, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := newTestClient(srv, signer, time.Second)

	_, err := c.CreateProduct(context.Background(), "tok", c.ProductRequest(testListings(1)[0], nil), "")
	if !errors.Is(err, ErrMissingProductID) {
		t.Errorf("error = %v, want ErrMissingProductID", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	signer := NewSigner("id", "secret", "")
	release := make(chan struct{})
	srv := fakeMarketplace(t, signer, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c := newTestClient(srv, signer, 50*time.Millisecond)

	_, err := c.CreateProduct(context.Background(), "tok", c.ProductRequest(testListings(1)[0], nil), "")
	if FailureCodeOf(err) != models.FailureNetworkTimeout {
		t.Errorf("code = %s, want NETWORK_TIMEOUT (err: %v)", FailureCodeOf(err), err)
	}
}

func TestFixedIntervalPacer_Wait(t *testing.T) {
	clock := newFakeClock()
	p := NewFixedIntervalPacer(1500*time.Millisecond, clock)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if waits := clock.Waits(); len(waits) != 1 || waits[0] != 1500*time.Millisecond {
		t.Errorf("waits = %v, want [1.5s]", waits)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled context = %v, want context.Canceled", err)
	}
}
