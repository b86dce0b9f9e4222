package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
)

func azureTestConfig(baseURL string) config.Azure {
	return config.Azure{
		APIKey:        "key",
		BaseURL:       baseURL,
		Region:        "japaneast",
		APIVersion:    "3.0",
		RetryDelaysMS: []int{1, 1, 1, 1},
	}
}

func TestAzureTranslateSendsExpectedRequest(t *testing.T) {
	var gotKey, gotRegion, gotVersion, gotFrom, gotTo string
	var gotBody []map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotRegion = r.Header.Get("Ocp-Apim-Subscription-Region")
		gotVersion = r.URL.Query().Get("api-version")
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"translations":[{"text":"Hello","to":"en"}]},
			{"translations":[{"text":"Goodbye","to":"en"}]}
		]`))
	}))
	defer server.Close()

	client := NewAzureClient(azureTestConfig(server.URL), logging.NewNop())
	translations, err := client.Translate(context.Background(), []string{"你好", "再见"}, "zh-Hans", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(translations) != 2 || translations[0] != "Hello" || translations[1] != "Goodbye" {
		t.Fatalf("unexpected translations: %v", translations)
	}

	if gotKey != "key" || gotRegion != "japaneast" {
		t.Errorf("subscription headers = %q %q", gotKey, gotRegion)
	}
	if gotVersion != "3.0" || gotFrom != "zh-hans" || gotTo != "en" {
		t.Errorf("query = version %q from %q to %q", gotVersion, gotFrom, gotTo)
	}
	if len(gotBody) != 2 || gotBody[0]["Text"] != "你好" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestAzureTranslateRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"translations":[{"text":"Hi"}]}]`))
	}))
	defer server.Close()

	client := NewAzureClient(azureTestConfig(server.URL), logging.NewNop())
	translations, err := client.Translate(context.Background(), []string{"你好"}, "zh-Hans", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if translations[0] != "Hi" {
		t.Fatalf("unexpected translations: %v", translations)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestAzureTranslateDoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewAzureClient(azureTestConfig(server.URL), logging.NewNop())
	if _, err := client.Translate(context.Background(), []string{"你好"}, "zh-Hans", "en"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestAzureTranslateExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := azureTestConfig(server.URL)
	cfg.RetryDelaysMS = []int{1, 1}
	client := NewAzureClient(cfg, logging.NewNop())
	_, err := client.Translate(context.Background(), []string{"你好"}, "zh-Hans", "en")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected delays+1 attempts, got %d", got)
	}
}

func TestAzureTranslateEmptyBatchAndMissingKey(t *testing.T) {
	client := NewAzureClient(azureTestConfig("http://localhost"), logging.NewNop())
	translations, err := client.Translate(context.Background(), nil, "zh-Hans", "en")
	if err != nil || len(translations) != 0 {
		t.Fatalf("empty batch: %v %v", translations, err)
	}

	cfg := azureTestConfig("http://localhost")
	cfg.APIKey = ""
	client = NewAzureClient(cfg, logging.NewNop())
	if _, err := client.Translate(context.Background(), []string{"x"}, "zh-Hans", "en"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
