package source

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store used across the source tests. It mirrors
// the real storage semantics: URL is the identity key and a duplicate insert
// is silently ignored.
type memStore struct {
	mu     sync.Mutex
	claims map[string]Claim
}

func newMemStore() *memStore {
	return &memStore{claims: make(map[string]Claim)}
}

func (m *memStore) ExistsByURL(url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[url]
	return ok, nil
}

func (m *memStore) Insert(c Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.URL == "" {
		return fmt.Errorf("claim without url")
	}
	if _, ok := m.claims[c.URL]; ok {
		return nil
	}
	m.claims[c.URL] = c
	return nil
}

func (m *memStore) get(url string) (Claim, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[url]
	return c, ok
}

func (m *memStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Polígrafo RSS":      "polígrafo-rss",
		"  Claim Search API": "claim-search-api",
		"Observador":         "observador",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("uma alegação enganosa", 12); len([]rune(got)) != 12 {
		t.Fatalf("truncateRunes length = %d, want 12: %q", len([]rune(got)), got)
	}

	// Under the limit the string is untouched apart from trimming.
	if got := truncateRunes("  curto  ", 100); got != "curto" {
		t.Fatalf("truncateRunes = %q, want %q", got, "curto")
	}
}

func TestCapTags(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e", "f", "g"}
	if got := capTags(tags); len(got) != maxTags {
		t.Fatalf("capTags length = %d, want %d", len(got), maxTags)
	}
	short := []string{"a"}
	if got := capTags(short); len(got) != 1 {
		t.Fatalf("capTags should keep short lists intact, got %v", got)
	}
}

func TestParseISODate(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := parseISODate("2024-05-01T10:00:00Z", fallback)
	if got.Year() != 2024 || got.Month() != 5 || got.Day() != 1 {
		t.Fatalf("parseISODate RFC3339 = %v", got)
	}

	if got := parseISODate("2024-05-01", fallback); got.Day() != 1 || got.Month() != 5 {
		t.Fatalf("parseISODate date-only = %v", got)
	}

	if got := parseISODate("not a date", fallback); !got.Equal(fallback) {
		t.Fatalf("parseISODate should fall back, got %v", got)
	}
	if got := parseISODate("", fallback); !got.Equal(fallback) {
		t.Fatalf("parseISODate empty should fall back, got %v", got)
	}
}

func TestBaseSourceStats(t *testing.T) {
	b := baseSource{id: "x", name: "X", enabled: true, languages: []string{"pt"}}

	b.updateStats(3)
	b.updateStats(2)

	st := b.Stats()
	if st.LastCount != 2 {
		t.Fatalf("LastCount = %d, want 2", st.LastCount)
	}
	if st.TotalCount != 5 {
		t.Fatalf("TotalCount = %d, want 5", st.TotalCount)
	}
	if st.LastRun == "" {
		t.Fatalf("LastRun should be set")
	}
	if _, err := time.Parse(time.RFC3339, st.LastRun); err != nil {
		t.Fatalf("LastRun not RFC3339: %q", st.LastRun)
	}
}

func TestRestoreStateKeepsDefaultLanguages(t *testing.T) {
	b := baseSource{id: "x", name: "X", enabled: true, languages: []string{"pt"}}

	b.RestoreState(false, nil, RunStats{TotalCount: 7})
	if b.Enabled() {
		t.Fatalf("enabled should be restored to false")
	}
	if len(b.Languages()) != 1 || b.Languages()[0] != "pt" {
		t.Fatalf("empty persisted languages must keep defaults, got %v", b.Languages())
	}
	if b.Stats().TotalCount != 7 {
		t.Fatalf("stats not restored: %+v", b.Stats())
	}

	b.RestoreState(true, []string{"en", "es"}, RunStats{})
	if len(b.Languages()) != 2 {
		t.Fatalf("persisted languages should replace defaults, got %v", b.Languages())
	}
}
