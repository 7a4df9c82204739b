package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/cache"
	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// fakeOpenAI отвечает на chat completion фиксированным текстом
func fakeOpenAI(t *testing.T, reply string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "user" {
				prompts = append(prompts, m.Content)
			}
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func TestOpenAITranslator_Translate(t *testing.T) {
	srv, prompts := fakeOpenAI(t, "  수분 세럼 \n", http.StatusOK)
	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Timeout: time.Second, MaxInput: 10})

	got, err := tr.Translate(context.Background(), "Hydrating Serum for dry skin")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "수분 세럼" {
		t.Errorf("Translate = %q, want trimmed reply", got)
	}
	if len(*prompts) != 1 || (*prompts)[0] != "Hydrating" {
		t.Errorf("prompts = %q, want input cut to 10 runes", *prompts)
	}
}

func TestOpenAITranslator_Errors(t *testing.T) {
	srv, _ := fakeOpenAI(t, "", http.StatusTooManyRequests)
	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	if _, err := tr.Translate(context.Background(), "Serum"); err == nil {
		t.Error("Translate succeeded on 429, want error")
	}

	empty, _ := fakeOpenAI(t, "   ", http.StatusOK)
	tr = NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: empty.URL + "/v1"})
	if _, err := tr.Translate(context.Background(), "Serum"); !errors.Is(err, ErrEmptyTranslation) {
		t.Errorf("error = %v, want ErrEmptyTranslation", err)
	}
}

func TestCachedTranslator(t *testing.T) {
	calls := 0
	fail := false
	next := interfaces.TranslatorFunc(func(_ context.Context, text string) (string, error) {
		calls++
		if fail {
			return "", errors.New("upstream down")
		}
		return "번역:" + text, nil
	})
	c := NewCachedTranslator(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Translate(ctx, "Serum")
		if err != nil || got != "번역:Serum" {
			t.Fatalf("Translate = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}

	fail = true
	if _, err := c.Translate(ctx, "Cream"); err == nil {
		t.Error("Translate succeeded with failing upstream")
	}
	fail = false
	if got, _ := c.Translate(ctx, "Cream"); got != "번역:Cream" {
		t.Errorf("failure was cached: got %q", got)
	}
}
