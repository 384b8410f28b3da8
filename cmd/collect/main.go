package main

import (
	"context"
	"log"
	"time"

	"github.com/claimhub/ClaimHub/internal/aggregator"
	"github.com/claimhub/ClaimHub/internal/config"
	"github.com/claimhub/ClaimHub/internal/storage"
)

// One-shot entry point: run a single update cycle and exit. Suitable for
// manual triggering or an external cron.
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	agg := aggregator.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	added := agg.UpdateAll(ctx, store)
	log.Printf("update done, %d new claims", added)
}
