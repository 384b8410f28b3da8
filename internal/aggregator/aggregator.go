package aggregator

import (
	"context"
	"log"
	"sync"

	"github.com/claimhub/ClaimHub/internal/config"
	"github.com/claimhub/ClaimHub/internal/source"
)

// Aggregator owns the configured source set and orchestrates update cycles.
// Sources run sequentially in slice order; the storage layer's unique URL
// index is the backstop should a caller ever run cycles concurrently.
type Aggregator struct {
	mu      sync.Mutex
	sources []source.Source
	cfg     *ConfigStore
}

// SourceStatus is the read-only snapshot exposed to the control surface.
type SourceStatus struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Type      string          `json:"type"`
	Languages []string        `json:"languages"`
	Stats     source.RunStats `json:"stats"`
}

// New builds the default source set, applying persisted state on top of the
// coded defaults.
func New(cfg *config.Config) *Aggregator {
	sources := []source.Source{
		source.NewAPISource("claims_api", "Claim Search API",
			cfg.FactCheckAPIURL, cfg.FactCheckAPIKey, []string{"pt", "en", "es"}),
		source.NewScraperSource("poligrafo_scraper", "Polígrafo Scraper",
			[]string{"https://poligrafo.sapo.pt"}, "pt"),
		source.NewScraperSource("observador_scraper", "Observador Scraper",
			[]string{"https://observador.pt/factcheck"}, "pt"),
		source.NewFeedSource("poligrafo_rss", "Polígrafo RSS",
			"https://poligrafo.sapo.pt/rss", "pt"),
	}

	return NewWithSources(NewConfigStore(cfg.SourcesConfigPath), sources)
}

// NewWithSources wires an explicit source list; run order follows slice
// order. Persisted state is applied to matching source ids, everything else
// keeps its coded defaults.
func NewWithSources(cfg *ConfigStore, sources []source.Source) *Aggregator {
	states := cfg.Load()
	for _, src := range sources {
		if st, ok := states[src.ID()]; ok {
			src.RestoreState(st.Enabled, st.Languages, st.Stats)
		}
	}
	return &Aggregator{sources: sources, cfg: cfg}
}

// Status returns a snapshot of every configured source. No side effects.
func (a *Aggregator) Status() []SourceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]SourceStatus, 0, len(a.sources))
	for _, src := range a.sources {
		out = append(out, SourceStatus{
			ID:        src.ID(),
			Name:      src.Name(),
			Enabled:   src.Enabled(),
			Type:      src.Type(),
			Languages: src.Languages(),
			Stats:     src.Stats(),
		})
	}
	return out
}

// Toggle flips a source's enabled flag and persists the change. Returns
// false when the id is unknown.
func (a *Aggregator) Toggle(id string, enabled bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, src := range a.sources {
		if src.ID() != id {
			continue
		}
		src.SetEnabled(enabled)
		a.persist()
		return true
	}
	return false
}

// UpdateAll runs every enabled source in order and returns the total count
// of newly stored claims. A failing source is logged and contributes 0; the
// cycle itself never fails. Configuration and stats are persisted once at
// the end.
func (a *Aggregator) UpdateAll(ctx context.Context, store source.Store) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := 0
	for _, src := range a.sources {
		if !src.Enabled() {
			continue
		}
		log.Printf("running source %s...", src.Name())
		added, err := src.Fetch(ctx, store)
		if err != nil {
			log.Printf("source %s failed: %v", src.Name(), err)
			continue
		}
		total += added
	}

	a.persist()
	return total
}

func (a *Aggregator) persist() {
	states := make(map[string]SourceState, len(a.sources))
	for _, src := range a.sources {
		states[src.ID()] = SourceState{
			Enabled:   src.Enabled(),
			Languages: src.Languages(),
			Stats:     src.Stats(),
			Type:      src.Type(),
		}
	}
	if err := a.cfg.Save(states); err != nil {
		log.Printf("save source config: %v", err)
	}
}
