package domain

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionCandidate is what the detector extracts from a single message.
type CorrectionCandidate struct {
	Fact       string   `json:"fact"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Pattern    string   `json:"pattern"`
	Language   string   `json:"language"`
}

type OutcomeKind string

const (
	OutcomeNoMatch            OutcomeKind = "no_match"
	OutcomeNewPending         OutcomeKind = "new_pending"
	OutcomeDuplicatePending   OutcomeKind = "duplicate_pending"
	OutcomeAlreadyKnown       OutcomeKind = "already_known"
	OutcomePreviouslyRejected OutcomeKind = "previously_rejected"
	OutcomeDetectionFailed    OutcomeKind = "detection_failed"
)

// DetectionOutcome is the result of running one user message through the learner.
// Fact is set for new_pending and duplicate_pending.
type DetectionOutcome struct {
	Kind      OutcomeKind          `json:"outcome"`
	Candidate *CorrectionCandidate `json:"candidate,omitempty"`
	Fact      *PendingFact         `json:"fact,omitempty"`
	Err       error                `json:"-"`
}

type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	// VerificationFailed means the provider could not answer; the fact stays pending.
	VerificationFailed VerificationStatus = "failed"
)

// VerificationResult describes what happened to one fact in a verification pass.
type VerificationResult struct {
	FactID     uuid.UUID          `json:"fact_id"`
	Fact       string             `json:"fact"`
	Status     VerificationStatus `json:"status"`
	Verified   bool               `json:"verified"`
	Confidence float64            `json:"confidence"`
	Evidence   string             `json:"evidence,omitempty"`
	Sources    []string           `json:"sources,omitempty"`
	Details    map[string]any     `json:"details,omitempty"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
}

// CorrectionEvent is published when a new correction enters the pending queue.
type CorrectionEvent struct {
	FactID     uuid.UUID `json:"fact_id"`
	Fact       string    `json:"fact"`
	Normalized string    `json:"normalized"`
	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
	UserRef    string    `json:"user_ref"`
	DetectedAt time.Time `json:"detected_at"`
}
