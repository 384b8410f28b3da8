package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/claimhub/ClaimHub/internal/verdict"
	"github.com/gocolly/colly/v2"
)

const (
	scrapeUserAgent = "ClaimHubBot/1.0"

	seedTimeout     = 20 * time.Second
	articleTimeout  = 10 * time.Second
	articleMaxBytes = 2 << 20 // 2MB

	defaultMaxLinks = 12
	minHrefLength   = 10
	longLinkLength  = 50
)

// Link-relevance markers. Weights are tuning knobs carried over from the
// upstream heuristic, not correctness requirements.
var (
	factCheckMarkers = []string{"fact-check", "factcheck"}
	ratingMarkers    = []string{"verdadeiro", "falso", "enganoso", "false", "true"}
)

// ScraperSource crawls seed pages for fact-check article links and extracts
// ClaimReview JSON-LD markup from the best-scoring candidates.
type ScraperSource struct {
	baseSource

	seedURLs []string
	maxLinks int
	client   *http.Client
	robots   *robotsChecker
}

func NewScraperSource(id, name string, seedURLs []string, language string) *ScraperSource {
	if language == "" {
		language = "pt"
	}
	return &ScraperSource{
		baseSource: baseSource{id: id, name: name, enabled: true, languages: []string{language}},
		seedURLs:   seedURLs,
		maxLinks:   defaultMaxLinks,
		client:     &http.Client{Timeout: articleTimeout},
		robots:     newRobotsChecker(scrapeUserAgent, articleTimeout),
	}
}

func (s *ScraperSource) Type() string { return "scraper" }

func (s *ScraperSource) Fetch(ctx context.Context, store Store) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	added := 0
	for _, seed := range s.seedURLs {
		log.Printf("scraping %s...", seed)
		n, err := s.scrapeSeed(ctx, store, seed)
		if err != nil {
			// A failing seed degrades the yield, never the run.
			log.Printf("%s: scrape %s: %v", s.id, seed, err)
			continue
		}
		added += n
	}

	s.updateStats(added)
	return added, nil
}

func (s *ScraperSource) scrapeSeed(ctx context.Context, store Store, seed string) (int, error) {
	seedURL, err := url.Parse(seed)
	if err != nil {
		return 0, fmt.Errorf("parse seed: %w", err)
	}

	if !s.robots.allowed(ctx, seed) {
		log.Printf("%s: robots.txt disallows %s", s.id, seed)
		return 0, nil
	}

	links, err := s.collectLinks(seedURL)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, link := range rankLinks(links, s.maxLinks) {
		exists, err := store.ExistsByURL(link)
		if err != nil || exists {
			continue
		}
		if !s.robots.allowed(ctx, link) {
			continue
		}

		claim, ok := s.extractClaim(ctx, link)
		if !ok {
			continue
		}
		if err := store.Insert(claim); err != nil {
			log.Printf("%s: insert %s: %v", s.id, link, err)
			continue
		}
		added++
	}
	return added, nil
}

// collectLinks harvests candidate hrefs from the seed page, keeping only
// non-trivial same-host links resolved to absolute form.
func (s *ScraperSource) collectLinks(seedURL *url.URL) ([]string, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(seedURL.Hostname()),
		colly.UserAgent(scrapeUserAgent),
	)
	c.SetRequestTimeout(seedTimeout)

	seen := make(map[string]struct{})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if len(href) < minHrefLength || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}

		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			return
		}
		target, err := url.Parse(abs)
		if err != nil || !sameHost(target.Hostname(), seedURL.Hostname()) {
			return
		}
		seen[abs] = struct{}{}
	})

	if err := c.Visit(seedURL.String()); err != nil {
		return nil, fmt.Errorf("visit seed: %w", err)
	}

	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	return links, nil
}

func sameHost(host, seedHost string) bool {
	return strings.TrimPrefix(host, "www.") == strings.TrimPrefix(seedHost, "www.")
}

// rankLinks scores candidates by how much their URL looks like a fact-check
// article and keeps the top positively-scored ones. Ties break on the link
// string so the processing order is deterministic.
func rankLinks(links []string, limit int) []string {
	type scored struct {
		link  string
		score int
	}

	ranked := make([]scored, 0, len(links))
	for _, link := range links {
		lower := strings.ToLower(link)
		score := 0
		for _, m := range factCheckMarkers {
			if strings.Contains(lower, m) {
				score += 5
				break
			}
		}
		for _, m := range ratingMarkers {
			if strings.Contains(lower, m) {
				score += 2
				break
			}
		}
		if len(link) > longLinkLength {
			score++
		}
		if score > 0 {
			ranked = append(ranked, scored{link: link, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].link < ranked[j].link
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.link
	}
	return out
}

// extractClaim fetches one article page and pulls the first ClaimReview
// JSON-LD object out of it. Any failure at any level means "no candidate";
// at most one record per page.
func (s *ScraperSource) extractClaim(ctx context.Context, link string) (Claim, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Claim{}, false
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Claim{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Claim{}, false
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, articleMaxBytes))
	if err != nil {
		return Claim{}, false
	}

	var (
		claim Claim
		found bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		review, ok := findClaimReview(sel.Text())
		if !ok {
			return true
		}

		claimText := stringField(review, "itemReviewed", "name")
		if claimText == "" {
			claimText = stringField(review, "itemReviewed", "text")
		}
		if claimText == "" {
			claimText = "Fact Check"
		}

		rating := stringField(review, "reviewRating", "alternateName")
		if rating == "" {
			rating = stringField(review, "reviewRating", "ratingValue")
		}

		author := stringField(review, "author", "name")
		if author == "" {
			author = s.name
		}

		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" {
			title = truncateRunes(claimText, titleRuneLimit)
		}

		claim = Claim{
			Title:       title,
			Summary:     truncateRunes(claimText, summaryRuneLimit),
			URL:         link,
			Source:      author,
			Verdict:     verdict.Classify(rating),
			PublishedAt: parseISODate(stringValue(review["datePublished"]), time.Now()),
			Language:    s.languages[0],
			Category:    "Fact Check",
			Tags:        capTags([]string{"scraped", "claim-review", slugify(author)}),
		}
		found = true
		return false
	})

	return claim, found
}

// findClaimReview parses one ld+json block and returns the first object
// declaring type ClaimReview, flattening @graph arrays, singletons and
// top-level arrays into one object list.
func findClaimReview(raw string) (map[string]any, bool) {
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}

	var objects []any
	switch v := data.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			objects = graph
		} else {
			objects = []any{v}
		}
	case []any:
		objects = v
	default:
		return nil, false
	}

	for _, o := range objects {
		obj, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if isClaimReview(obj["@type"]) {
			return obj, true
		}
	}
	return nil, false
}

func isClaimReview(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "ClaimReview"
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s == "ClaimReview" {
				return true
			}
		}
	}
	return false
}

// stringField digs one level into obj and returns the named field as a
// string.
func stringField(obj map[string]any, key, field string) string {
	nested, ok := obj[key].(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(nested[field])
}

// stringValue renders scalar JSON values as strings; ratingValue is numeric
// on some publishers.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
