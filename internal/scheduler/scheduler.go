package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/claimhub/ClaimHub/internal/aggregator"
	"github.com/claimhub/ClaimHub/internal/storage"
	"github.com/robfig/cron/v3"
)

const (
	startupDelay = 15 * time.Second
	cycleTimeout = 5 * time.Minute
)

type Scheduler struct {
	cron  *cron.Cron
	agg   *aggregator.Aggregator
	store *storage.Store
}

func New(spec string, agg *aggregator.Aggregator, store *storage.Store) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{cron: c, agg: agg, store: store}
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the schedule and kicks off a delayed first cycle so startup
// requests are not competing with the initial collection.
func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

// RunOnce exposes a single cycle for manual triggering.
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start update cycle...")

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	added := s.agg.UpdateAll(ctx, s.store)
	log.Printf("update cycle done, %d new claims", added)
}
