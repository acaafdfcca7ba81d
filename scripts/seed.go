// Seed script that runs a few demo corrections through the learner and
// optionally verifies them with the configured evidence provider.
// Run with: go run ./scripts/seed.go [-verify]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Harshitk-cp/factlearn/internal/config"
	"github.com/Harshitk-cp/factlearn/internal/detect"
	"github.com/Harshitk-cp/factlearn/internal/evidence"
	"github.com/Harshitk-cp/factlearn/internal/lock"
	"github.com/Harshitk-cp/factlearn/internal/service"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var demoConversations = []struct {
	userRef string
	context []string
	message string
}{
	{"demo-user-1", []string{"Any good coffee near the river?", "Riverside Coffee is popular."}, "Actually, it's called Riverside Roasters"},
	{"demo-user-2", []string{"那家咖啡店叫什麼？"}, "正確的名字是老街咖啡。"},
	{"demo-user-3", []string{"心斎橋のカフェは？"}, "いや、心斎橋焙煎所という名前です"},
	{"demo-user-4", []string{"Who wrote Kafka on the Shore?"}, "The book? The correct name is Norwegian Wood"},
	{"demo-user-5", nil, "no, it's Riverside Roasters"},
}

func main() {
	verify := flag.Bool("verify", false, "verify pending facts after seeding")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var backend store.Backend
	switch config.StoreBackend() {
	case "postgres":
		pool, err := pgxpool.New(ctx, config.DatabaseURL())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		pb := store.NewPostgresBackend(pool)
		if err := pb.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		backend = pb
	default:
		fb, err := store.NewFileBackend(config.DataDir())
		if err != nil {
			log.Fatalf("Failed to open data dir: %v", err)
		}
		backend = fb
	}

	pending := store.NewPendingStore(backend)
	knowledge := store.NewKnowledgeStore(backend)
	if err := pending.Load(ctx); err != nil {
		log.Fatalf("Failed to load pending facts: %v", err)
	}
	if err := knowledge.Load(ctx); err != nil {
		log.Fatalf("Failed to load knowledge: %v", err)
	}

	learner := service.NewLearnerService(detect.New(), pending, knowledge, logger)
	for _, c := range demoConversations {
		out := learner.Process(ctx, c.userRef, c.message, c.context)
		fmt.Printf("%-20s %q\n", out.Kind, c.message)
	}

	if !*verify {
		stats, err := pending.Stats(ctx)
		if err != nil {
			log.Fatalf("Failed to read stats: %v", err)
		}
		fmt.Printf("\nPending: %d  Verified: %d  Rejected: %d\n", stats.Pending, stats.Verified, stats.Rejected)
		return
	}

	provider, err := evidence.NewClient(config.EvidenceProvider(), config.EvidenceAPIKey(), config.EvidenceModel(), config.EvidenceRPS())
	if err != nil {
		log.Fatalf("Failed to create evidence provider: %v", err)
	}
	verifier := service.NewVerifierService(provider, pending, knowledge, lock.NewLocalLock(), logger)
	verifier.SetThreshold(config.VerifyThreshold())
	verifier.SetTimeout(config.VerifyTimeout())

	report, err := verifier.RunPending(ctx)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Printf("\nVerified: %d  Rejected: %d  Failed: %d\n", report.Verified, report.Rejected, report.Failed)
}
