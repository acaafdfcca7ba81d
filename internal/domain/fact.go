package domain

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryPlace   Category = "place"
	CategoryPerson  Category = "person"
	CategoryMedia   Category = "media"
	CategoryGeneral Category = "general"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPlace, CategoryPerson, CategoryMedia, CategoryGeneral}

func ValidCategory(c string) bool {
	switch Category(c) {
	case CategoryPlace, CategoryPerson, CategoryMedia, CategoryGeneral:
		return true
	}
	return false
}

type FactStatus string

const (
	StatusPending  FactStatus = "pending"
	StatusVerified FactStatus = "verified"
	StatusRejected FactStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s FactStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// FactSource records who submitted a correction and in which conversation state.
type FactSource struct {
	UserRef   string    `json:"user_ref"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Verification is the verifier outcome attached to a fact once it leaves Pending.
type Verification struct {
	Confidence float64        `json:"confidence"`
	Evidence   string         `json:"evidence"`
	Sources    []string       `json:"sources,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// PendingFact is a user correction awaiting verification.
type PendingFact struct {
	ID              uuid.UUID     `json:"id"`
	Fact            string        `json:"fact"`
	Normalized      string        `json:"normalized"`
	Category        Category      `json:"category"`
	Confidence      float64       `json:"confidence"`
	Pattern         string        `json:"pattern,omitempty"`
	Source          FactSource    `json:"source"`
	Status          FactStatus    `json:"status"`
	Occurrences     int           `json:"occurrences"`
	Verification    *Verification `json:"verification,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// VerifiedFact is a correction confirmed by the evidence provider.
type VerifiedFact struct {
	Key        string         `json:"key"`
	Category   Category       `json:"category"`
	VerifiedAt time.Time      `json:"verified_at"`
	Confidence float64        `json:"confidence"`
	Evidence   string         `json:"evidence"`
	Sources    []string       `json:"sources"`
	Details    map[string]any `json:"details,omitempty"`
}

// RejectedFact is the knowledge-side record of a correction that failed verification.
type RejectedFact struct {
	Key        string    `json:"key"`
	Category   Category  `json:"category"`
	RejectedAt time.Time `json:"rejected_at"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

// ClampConfidence forces c into [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
