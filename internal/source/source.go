package source

import (
	"context"
	"strings"
	"time"

	"github.com/claimhub/ClaimHub/internal/verdict"
)

const (
	summaryRuneLimit = 500
	titleRuneLimit   = 100
	maxTags          = 5
)

// Claim is the normalized record every source produces. The URL is the sole
// identity key; records are never mutated after insertion.
type Claim struct {
	Title       string
	Summary     string
	URL         string
	Source      string
	Verdict     verdict.Verdict
	PublishedAt time.Time
	Language    string
	Category    string
	Tags        []string
}

// Store is the storage collaborator sources write through. Implementations
// must enforce uniqueness on URL as a backstop for the exists-then-insert
// sequence.
type Store interface {
	ExistsByURL(url string) (bool, error)
	Insert(c Claim) error
}

// RunStats tracks the outcome of update runs for one source. Persisted
// across restarts in the source configuration document.
type RunStats struct {
	LastRun    string `json:"last_run"`
	LastCount  int    `json:"last_count"`
	TotalCount int    `json:"total_count"`
}

// Source abstracts one upstream provider of fact-checked claims.
type Source interface {
	ID() string
	Name() string
	Type() string
	Enabled() bool
	SetEnabled(enabled bool)
	Languages() []string
	Stats() RunStats

	// RestoreState applies persisted state loaded at startup. An empty
	// language list keeps the source's coded default.
	RestoreState(enabled bool, languages []string, stats RunStats)

	// Fetch pulls claims from upstream, writes new ones through store and
	// returns the count of newly inserted records. Disabled sources return
	// 0 without touching the network.
	Fetch(ctx context.Context, store Store) (int, error)
}

// baseSource carries the identity and run state shared by all variants.
type baseSource struct {
	id        string
	name      string
	enabled   bool
	languages []string
	stats     RunStats
}

func (b *baseSource) ID() string          { return b.id }
func (b *baseSource) Name() string        { return b.name }
func (b *baseSource) Enabled() bool       { return b.enabled }
func (b *baseSource) SetEnabled(e bool)   { b.enabled = e }
func (b *baseSource) Languages() []string { return b.languages }
func (b *baseSource) Stats() RunStats     { return b.stats }

func (b *baseSource) RestoreState(enabled bool, languages []string, stats RunStats) {
	b.enabled = enabled
	if len(languages) > 0 {
		b.languages = languages
	}
	b.stats = stats
}

func (b *baseSource) updateStats(count int) {
	b.stats.LastRun = time.Now().Format(time.RFC3339)
	b.stats.LastCount = count
	b.stats.TotalCount += count
}

// slugify turns a display name into a short tag ("Polígrafo RSS" ->
// "polígrafo-rss").
func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// truncateRunes caps s at limit runes so multi-byte text cannot overflow
// storage column limits.
func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func capTags(tags []string) []string {
	if len(tags) > maxTags {
		return tags[:maxTags]
	}
	return tags
}

var isoLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseISODate accepts the date shapes seen in claim reviews and JSON-LD
// blocks, falling back when nothing parses.
func parseISODate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
