package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/claimhub/ClaimHub/internal/verdict"
)

const (
	apiClientTimeout    = 15 * time.Second
	apiMaxResponseBytes = 1 << 20 // 1MB

	defaultPageSize   = 20
	defaultMaxAgeDays = 60
)

// APISource queries a structured claim-search endpoint (Google Fact Check
// Tools compatible) once per configured language. Page size and recency
// window are tuning knobs, not invariants.
type APISource struct {
	baseSource

	endpoint   string
	apiKey     string
	query      string
	pageSize   int
	maxAgeDays int
	client     *http.Client
}

func NewAPISource(id, name, endpoint, apiKey string, languages []string) *APISource {
	if len(languages) == 0 {
		languages = []string{"pt", "en", "es"}
	}
	return &APISource{
		baseSource: baseSource{id: id, name: name, enabled: true, languages: languages},
		endpoint:   endpoint,
		apiKey:     apiKey,
		query:      "fact check",
		pageSize:   defaultPageSize,
		maxAgeDays: defaultMaxAgeDays,
		client:     &http.Client{Timeout: apiClientTimeout},
	}
}

func (s *APISource) Type() string { return "api" }

type claimSearchResponse struct {
	Claims []apiClaim `json:"claims"`
}

type apiClaim struct {
	Text        string      `json:"text"`
	ClaimReview []apiReview `json:"claimReview"`
}

type apiReview struct {
	Publisher struct {
		Name string `json:"name"`
		Site string `json:"site"`
	} `json:"publisher"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	ReviewDate    string `json:"reviewDate"`
	TextualRating string `json:"textualRating"`
}

func (s *APISource) Fetch(ctx context.Context, store Store) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	if s.apiKey == "" {
		log.Printf("%s: api key not configured, skipping", s.id)
		return 0, nil
	}

	// One failing language must not hide the others' results.
	total := 0
	for _, lang := range s.languages {
		added, err := s.fetchLang(ctx, store, lang)
		if err != nil {
			log.Printf("%s: language %s: %v", s.id, lang, err)
			continue
		}
		total += added
	}

	s.updateStats(total)
	return total, nil
}

func (s *APISource) fetchLang(ctx context.Context, store Store, lang string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("claim search: create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("key", s.apiKey)
	q.Set("query", s.query)
	q.Set("languageCode", lang)
	q.Set("pageSize", strconv.Itoa(s.pageSize))
	q.Set("maxAgeDays", strconv.Itoa(s.maxAgeDays))
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("claim search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("claim search: unexpected status %d", resp.StatusCode)
	}

	var payload claimSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, apiMaxResponseBytes)).Decode(&payload); err != nil {
		return 0, fmt.Errorf("claim search: decode: %w", err)
	}

	added := 0
	for _, c := range payload.Claims {
		// A malformed claim skips itself, never the batch.
		if len(c.ClaimReview) == 0 {
			continue
		}
		review := c.ClaimReview[0]
		if review.URL == "" {
			continue
		}

		exists, err := store.ExistsByURL(review.URL)
		if err != nil || exists {
			continue
		}

		title := review.Title
		if title == "" {
			title = truncateRunes(c.Text, titleRuneLimit)
		}

		publisher := review.Publisher.Name
		if publisher == "" {
			publisher = "Unknown"
		}

		claim := Claim{
			Title:       title,
			Summary:     truncateRunes(c.Text, summaryRuneLimit),
			URL:         review.URL,
			Source:      publisher,
			Verdict:     verdict.Classify(review.TextualRating),
			PublishedAt: parseISODate(review.ReviewDate, time.Now()),
			Language:    lang,
			Category:    "Geral",
			Tags:        capTags([]string{"fact-check", "claims-api", slugify(publisher)}),
		}
		if err := store.Insert(claim); err != nil {
			log.Printf("%s: insert %s: %v", s.id, review.URL, err)
			continue
		}
		added++
	}
	return added, nil
}
