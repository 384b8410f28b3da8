package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/claimhub/ClaimHub/internal/verdict"
)

const ptClaimsPayload = `{
  "claims": [
    {
      "text": "Vacinas causam a doença X, segundo publicação viral",
      "claimReview": [
        {
          "publisher": {"name": "Checker", "site": "checker.example"},
          "url": "https://checker.example/review/1",
          "title": "Alegação sobre vacinas é falsa",
          "reviewDate": "2024-05-01T10:00:00Z",
          "textualRating": "Falso"
        }
      ]
    },
    {
      "text": "Claim sem review associado",
      "claimReview": []
    },
    {
      "text": "Claim cujo review não tem URL",
      "claimReview": [
        {"publisher": {"name": "X"}, "url": "", "textualRating": "Verdadeiro"}
      ]
    }
  ]
}`

func newClaimSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Query().Get("languageCode") {
		case "pt":
			fmt.Fprint(w, ptClaimsPayload)
		default:
			// Every other language fails; the pt results must survive.
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestAPISourceFetchPartialLanguageFailure(t *testing.T) {
	server := newClaimSearchServer(t)
	defer server.Close()

	src := NewAPISource("claims_api", "Claim Search API", server.URL, "test-key", []string{"pt", "en"})
	store := newMemStore()

	added, err := src.Fetch(context.Background(), store)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1 (only the valid pt claim)", added)
	}

	c, ok := store.get("https://checker.example/review/1")
	if !ok {
		t.Fatalf("claim not stored")
	}
	if c.Verdict != verdict.False {
		t.Errorf("verdict = %q, want %q", c.Verdict, verdict.False)
	}
	if c.Source != "Checker" {
		t.Errorf("source = %q, want Checker", c.Source)
	}
	if c.Language != "pt" {
		t.Errorf("language = %q, want pt", c.Language)
	}
	if c.Category != "Geral" {
		t.Errorf("category = %q, want Geral", c.Category)
	}
	if c.PublishedAt.Year() != 2024 {
		t.Errorf("publishedAt = %v, want parsed review date", c.PublishedAt)
	}
	if len(c.Tags) == 0 || c.Tags[0] != "fact-check" {
		t.Errorf("tags = %v, want fact-check marker first", c.Tags)
	}

	st := src.Stats()
	if st.LastCount != 1 || st.TotalCount != 1 || st.LastRun == "" {
		t.Fatalf("stats = %+v, want last=1 total=1 with timestamp", st)
	}
}

func TestAPISourceSecondRunAddsNothing(t *testing.T) {
	server := newClaimSearchServer(t)
	defer server.Close()

	src := NewAPISource("claims_api", "Claim Search API", server.URL, "test-key", []string{"pt"})
	store := newMemStore()

	if added, _ := src.Fetch(context.Background(), store); added != 1 {
		t.Fatalf("first run added = %d, want 1", added)
	}
	if added, _ := src.Fetch(context.Background(), store); added != 0 {
		t.Fatalf("second run added = %d, want 0 (dedup by URL)", added)
	}
	if store.size() != 1 {
		t.Fatalf("store size = %d, want 1", store.size())
	}
	if st := src.Stats(); st.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1", st.TotalCount)
	}
}

func TestAPISourceDisabledSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	src := NewAPISource("claims_api", "Claim Search API", server.URL, "test-key", []string{"pt"})
	src.SetEnabled(false)

	added, err := src.Fetch(context.Background(), newMemStore())
	if err != nil || added != 0 {
		t.Fatalf("disabled Fetch = (%d, %v), want (0, nil)", added, err)
	}
	if hits.Load() != 0 {
		t.Fatalf("disabled source must not hit the network, got %d requests", hits.Load())
	}
}

func TestAPISourceWithoutKey(t *testing.T) {
	src := NewAPISource("claims_api", "Claim Search API", "http://unused.invalid", "", []string{"pt"})

	added, err := src.Fetch(context.Background(), newMemStore())
	if err != nil || added != 0 {
		t.Fatalf("keyless Fetch = (%d, %v), want (0, nil)", added, err)
	}
}

func TestAPISourceAllLanguagesFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewAPISource("claims_api", "Claim Search API", server.URL, "test-key", []string{"pt", "en"})

	added, err := src.Fetch(context.Background(), newMemStore())
	if err != nil {
		t.Fatalf("transport failures must not surface: %v", err)
	}
	if added != 0 {
		t.Fatalf("added = %d, want 0", added)
	}
	if st := src.Stats(); st.LastCount != 0 || st.LastRun == "" {
		t.Fatalf("stats should record the empty run: %+v", st)
	}
}
