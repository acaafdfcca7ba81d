package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PendingFilter struct {
	Category      *Category
	MinConfidence float64
}

// SubmitResult reports whether a submission created a new pending row or
// refreshed the existing one for the same normalized fact.
type SubmitResult struct {
	Created bool
	Fact    PendingFact
}

type PendingStats struct {
	Pending     int        `json:"pending"`
	Verified    int        `json:"verified"`
	Rejected    int        `json:"rejected"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// PendingFactStore holds unverified corrections plus the audit lists of
// facts that already left the queue.
type PendingFactStore interface {
	Submit(ctx context.Context, f *PendingFact) (*SubmitResult, error)
	FindPending(ctx context.Context, normalized string) (*PendingFact, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]PendingFact, error)
	MarkVerified(ctx context.Context, id uuid.UUID, v Verification) (*PendingFact, error)
	MarkRejected(ctx context.Context, id uuid.UUID, v Verification, reason string) (*PendingFact, error)
	ListDecided(ctx context.Context) ([]PendingFact, error)
	Stats(ctx context.Context) (*PendingStats, error)
}

type KnowledgeStats struct {
	ByCategory  map[Category]int `json:"by_category"`
	Total       int              `json:"total"`
	Rejected    int              `json:"rejected"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

// KnowledgeStore holds verified facts keyed by category and key.
type KnowledgeStore interface {
	AddVerified(ctx context.Context, f *VerifiedFact) error
	AddRejected(ctx context.Context, f *RejectedFact) error
	FindByNormalized(ctx context.Context, normalized string) (*VerifiedFact, error)
	IsRejected(ctx context.Context, normalized string) (bool, error)
	VerdictAt(ctx context.Context, normalized string) (time.Time, error)
	Search(ctx context.Context, terms []string) ([]VerifiedFact, error)
	List(ctx context.Context) ([]VerifiedFact, error)
	Stats(ctx context.Context) (*KnowledgeStats, error)
}

// Evidence is the evidence-search provider's answer for one claim.
type Evidence struct {
	Verified   bool           `json:"verified"`
	Confidence float64        `json:"confidence"`
	Evidence   string         `json:"evidence"`
	Sources    []string       `json:"sources"`
	Details    map[string]any `json:"details,omitempty"`
}

type EvidenceProvider interface {
	Search(ctx context.Context, claim string) (*Evidence, error)
}

type CorrectionDetector interface {
	Detect(message string) *CorrectionCandidate
}

type CorrectionNotifier interface {
	CorrectionDetected(ctx context.Context, e CorrectionEvent) error
}
