package source

import (
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/claimhub/ClaimHub/internal/verdict"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const (
	feedClientTimeout    = 15 * time.Second
	feedMaxResponseBytes = 4 << 20 // 4MB

	defaultMaxEntries = 15
)

// FeedSource ingests a syndication feed (RSS or Atom). Per-run work is
// bounded by maxEntries regardless of feed size.
type FeedSource struct {
	baseSource

	feedURL    string
	maxEntries int
	client     *http.Client
	parser     *gofeed.Parser
	stripper   *bluemonday.Policy
}

func NewFeedSource(id, name, feedURL, language string) *FeedSource {
	if language == "" {
		language = "pt"
	}
	return &FeedSource{
		baseSource: baseSource{id: id, name: name, enabled: true, languages: []string{language}},
		feedURL:    feedURL,
		maxEntries: defaultMaxEntries,
		client:     &http.Client{Timeout: feedClientTimeout},
		parser:     gofeed.NewParser(),
		stripper:   bluemonday.StrictPolicy(),
	}
}

func (s *FeedSource) Type() string { return "rss" }

func (s *FeedSource) Fetch(ctx context.Context, store Store) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	log.Printf("fetch feed %s...", s.name)

	feed, err := s.loadFeed(ctx)
	if err != nil {
		log.Printf("%s: %v", s.id, err)
		s.updateStats(0)
		return 0, nil
	}

	items := feed.Items
	if len(items) > s.maxEntries {
		items = items[:s.maxEntries]
	}

	added := 0
	for _, item := range items {
		if item == nil || item.Link == "" {
			continue
		}

		exists, err := store.ExistsByURL(item.Link)
		if err != nil || exists {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		summary = truncateRunes(s.stripHTML(summary), summaryRuneLimit)

		title := item.Title
		if title == "" {
			title = truncateRunes(summary, titleRuneLimit)
		}

		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		tags := []string{"rss", slugify(s.name)}
		for _, cat := range item.Categories {
			if cat != "" {
				tags = append(tags, cat)
			}
		}

		claim := Claim{
			Title:       title,
			Summary:     summary,
			URL:         item.Link,
			Source:      s.name,
			Verdict:     verdict.Classify(title + " " + summary),
			PublishedAt: published,
			Language:    s.languages[0],
			Category:    "Fact Check",
			Tags:        capTags(tags),
		}
		if err := store.Insert(claim); err != nil {
			log.Printf("%s: insert %s: %v", s.id, item.Link, err)
			continue
		}
		added++
	}

	s.updateStats(added)
	return added, nil
}

func (s *FeedSource) loadFeed(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, feedMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("feed: read body: %w", err)
	}

	feed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("feed: parse: %w", err)
	}
	return feed, nil
}

// stripHTML flattens entry markup to plain text. The strict policy drops
// every tag; entities are unescaped afterwards.
func (s *FeedSource) stripHTML(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.stripper.Sanitize(v)))
}
