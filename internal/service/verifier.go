package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/lock"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

var (
	ErrBatchInProgress = errors.New("a verification run is already in progress")
	ErrFactTextEmpty   = errors.New("fact is required")
)

const (
	DefaultVerifyThreshold      = 0.7
	DefaultVerifyTimeout        = 60 * time.Second
	DefaultVerifyConcurrency    = 4
	DefaultPendingMinConfidence = 0.5

	// RejectionBelowThreshold is recorded as the reason for threshold rejections.
	RejectionBelowThreshold = "confidence below threshold"
	// RejectionContradicted is recorded when the provider judged the claim inaccurate.
	RejectionContradicted = "evidence contradicts claim"
	// OperatorUserRef marks facts submitted through the ops entry point.
	OperatorUserRef = "operator"
)

// BatchReport summarizes one RunPending pass.
type BatchReport struct {
	StartedAt time.Time                   `json:"started_at"`
	Duration  time.Duration               `json:"duration_ns"`
	Total     int                         `json:"total"`
	Verified  int                         `json:"verified"`
	Rejected  int                         `json:"rejected"`
	Failed    int                         `json:"failed"`
	Replayed  int                         `json:"replayed"`
	Results   []domain.VerificationResult `json:"results"`
}

// VerifierService checks pending facts against the evidence provider and
// moves them to Verified or Rejected. Provider failures leave the fact pending.
type VerifierService struct {
	provider  domain.EvidenceProvider
	pending   domain.PendingFactStore
	knowledge domain.KnowledgeStore
	runLock   lock.Locker
	logger    *zap.Logger

	threshold     float64
	timeout       time.Duration
	concurrency   int
	minConfidence float64
	now           func() time.Time
}

func NewVerifierService(p domain.EvidenceProvider, ps domain.PendingFactStore, ks domain.KnowledgeStore, l lock.Locker, logger *zap.Logger) *VerifierService {
	return &VerifierService{
		provider:      p,
		pending:       ps,
		knowledge:     ks,
		runLock:       l,
		logger:        logger,
		threshold:     DefaultVerifyThreshold,
		timeout:       DefaultVerifyTimeout,
		concurrency:   DefaultVerifyConcurrency,
		minConfidence: DefaultPendingMinConfidence,
		now:           time.Now,
	}
}

func (s *VerifierService) SetThreshold(t float64) {
	s.threshold = domain.ClampConfidence(t)
}

func (s *VerifierService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *VerifierService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

func (s *VerifierService) SetMinConfidence(c float64) {
	s.minConfidence = domain.ClampConfidence(c)
}

// Verify asks the provider about one fact and applies the threshold. A fact is
// accepted only when the provider judges it accurate with enough confidence.
// The returned result is always populated; Status tells what happened.
func (s *VerifierService) Verify(ctx context.Context, f domain.PendingFact) domain.VerificationResult {
	res := domain.VerificationResult{FactID: f.ID, Fact: f.Fact}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	ev, err := s.provider.Search(callCtx, f.Fact)
	cancel()
	if err == nil && ev == nil {
		err = errors.New("provider returned no evidence")
	}
	if err != nil {
		s.logger.Warn("fact verification failed, leaving pending",
			zap.String("fact_id", f.ID.String()),
			zap.String("fact", f.Fact),
			zap.Error(err))
		return failedResult(res, err)
	}

	res.Confidence = domain.ClampConfidence(ev.Confidence)
	res.Evidence = ev.Evidence
	res.Sources = ev.Sources
	res.Details = ev.Details
	v := domain.Verification{
		Confidence: res.Confidence,
		Evidence:   ev.Evidence,
		Sources:    ev.Sources,
		Details:    ev.Details,
	}

	if ev.Verified && res.Confidence >= s.threshold {
		if err := s.accept(ctx, f, v); err != nil {
			return failedResult(res, err)
		}
		res.Status = domain.VerificationVerified
		res.Verified = true
		s.logger.Info("fact verified",
			zap.String("fact_id", f.ID.String()),
			zap.String("fact", f.Fact),
			zap.Float64("confidence", res.Confidence))
		return res
	}

	reason := RejectionBelowThreshold
	if !ev.Verified {
		reason = RejectionContradicted
	}
	if err := s.reject(ctx, f, v, reason); err != nil {
		return failedResult(res, err)
	}
	res.Status = domain.VerificationRejected
	s.logger.Info("fact rejected",
		zap.String("fact_id", f.ID.String()),
		zap.String("fact", f.Fact),
		zap.String("reason", reason),
		zap.Float64("confidence", res.Confidence),
		zap.Float64("threshold", s.threshold))
	return res
}

// accept claims the fact in the pending document first, so a fact that was
// already decided never reaches the knowledge store. A knowledge write lost
// after the claim is restored by replay on the next run.
func (s *VerifierService) accept(ctx context.Context, f domain.PendingFact, v domain.Verification) error {
	moved, err := s.pending.MarkVerified(ctx, f.ID, v)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if err := s.writeVerdict(ctx, *moved); err != nil {
		return fmt.Errorf("add verified fact: %w", err)
	}
	return nil
}

func (s *VerifierService) reject(ctx context.Context, f domain.PendingFact, v domain.Verification, reason string) error {
	moved, err := s.pending.MarkRejected(ctx, f.ID, v, reason)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if err := s.writeVerdict(ctx, *moved); err != nil {
		return fmt.Errorf("add rejected fact: %w", err)
	}
	return nil
}

// writeVerdict copies a decided fact into the knowledge store, stamped with
// the time it was decided.
func (s *VerifierService) writeVerdict(ctx context.Context, f domain.PendingFact) error {
	var v domain.Verification
	if f.Verification != nil {
		v = *f.Verification
	}
	switch {
	case f.Status == domain.StatusVerified && f.VerifiedAt != nil:
		return s.knowledge.AddVerified(ctx, &domain.VerifiedFact{
			Key:        f.Normalized,
			Category:   f.Category,
			VerifiedAt: *f.VerifiedAt,
			Confidence: v.Confidence,
			Evidence:   v.Evidence,
			Sources:    v.Sources,
			Details:    v.Details,
		})
	case f.Status == domain.StatusRejected && f.RejectedAt != nil:
		return s.knowledge.AddRejected(ctx, &domain.RejectedFact{
			Key:        f.Normalized,
			Category:   f.Category,
			RejectedAt: *f.RejectedAt,
			Confidence: v.Confidence,
			Reason:     f.RejectionReason,
		})
	}
	return fmt.Errorf("fact %s has no verdict", f.ID)
}

func decidedAt(f domain.PendingFact) (time.Time, bool) {
	switch {
	case f.Status == domain.StatusVerified && f.VerifiedAt != nil:
		return *f.VerifiedAt, true
	case f.Status == domain.StatusRejected && f.RejectedAt != nil:
		return *f.RejectedAt, true
	}
	return time.Time{}, false
}

// Replay brings the knowledge store up to date with the verdicts recorded in
// the pending document. It is idempotent and takes the run lock.
func (s *VerifierService) Replay(ctx context.Context) (int, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return s.replay(ctx)
}

// replay rewrites the latest verdict of every key whose knowledge entry is
// missing or older than it.
func (s *VerifierService) replay(ctx context.Context) (int, error) {
	decided, err := s.pending.ListDecided(ctx)
	if err != nil {
		return 0, fmt.Errorf("list decided facts: %w", err)
	}

	latest := make(map[string]domain.PendingFact, len(decided))
	keys := make([]string, 0, len(decided))
	for _, f := range decided {
		at, ok := decidedAt(f)
		if !ok {
			continue
		}
		prev, seen := latest[f.Normalized]
		if !seen {
			keys = append(keys, f.Normalized)
		} else if prevAt, _ := decidedAt(prev); !at.After(prevAt) {
			continue
		}
		latest[f.Normalized] = f
	}

	replayed := 0
	for _, key := range keys {
		f := latest[key]
		want, _ := decidedAt(f)
		have, err := s.knowledge.VerdictAt(ctx, key)
		switch {
		case err == nil && !have.Before(want):
			continue
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return replayed, fmt.Errorf("read verdict: %w", err)
		}
		if err := s.writeVerdict(ctx, f); err != nil {
			return replayed, fmt.Errorf("replay verdict for %s: %w", f.ID, err)
		}
		replayed++
		s.logger.Info("verdict replayed",
			zap.String("fact_id", f.ID.String()),
			zap.String("fact", f.Fact),
			zap.String("status", string(f.Status)))
	}
	return replayed, nil
}

func (s *VerifierService) acquire(ctx context.Context) (func(), error) {
	release, err := s.runLock.TryLock(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, ErrBatchInProgress
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	return release, nil
}

func failedResult(res domain.VerificationResult, err error) domain.VerificationResult {
	res.Status = domain.VerificationFailed
	res.Verified = false
	res.Err = err
	res.Error = err.Error()
	return res
}

// VerifyBatch verifies facts concurrently. Result i belongs to facts[i];
// one fact failing never stops the others.
func (s *VerifierService) VerifyBatch(ctx context.Context, facts []domain.PendingFact) []domain.VerificationResult {
	results := make([]domain.VerificationResult, len(facts))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range facts {
		i := i
		g.Go(func() error {
			results[i] = s.Verify(ctx, facts[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunPending verifies every pending fact at or above the minimum confidence.
// Only one run may be active at a time.
func (s *VerifierService) RunPending(ctx context.Context) (*BatchReport, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &BatchReport{StartedAt: s.now().UTC()}
	if report.Replayed, err = s.replay(ctx); err != nil {
		s.logger.Warn("verdict replay failed", zap.Error(err))
	}

	facts, err := s.pending.ListPending(ctx, domain.PendingFilter{MinConfidence: s.minConfidence})
	if err != nil {
		return nil, fmt.Errorf("list pending facts: %w", err)
	}

	s.logger.Info("verification run started", zap.Int("facts", len(facts)))
	report.Results = s.VerifyBatch(ctx, facts)
	report.Total = len(facts)
	for _, r := range report.Results {
		switch r.Status {
		case domain.VerificationVerified:
			report.Verified++
		case domain.VerificationRejected:
			report.Rejected++
		default:
			report.Failed++
		}
	}
	report.Duration = s.now().Sub(report.StartedAt)

	s.logger.Info("verification run finished",
		zap.Int("total", report.Total),
		zap.Int("verified", report.Verified),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
		zap.Int("replayed", report.Replayed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// VerifyText verifies one fact given by text. An existing pending entry is
// used when there is one; otherwise the text is queued as an operator
// submission first. It shares the run lock with RunPending.
func (s *VerifierService) VerifyText(ctx context.Context, text string) (*domain.VerificationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrFactTextEmpty
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := s.pending.FindPending(ctx, domain.Normalize(text))
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		res, err := s.pending.Submit(ctx, &domain.PendingFact{
			Fact:       text,
			Normalized: domain.Normalize(text),
			Category:   domain.Classify(text, ""),
			Confidence: 1,
			Pattern:    "operator",
			Source: domain.FactSource{
				UserRef:   OperatorUserRef,
				Message:   text,
				Timestamp: s.now().UTC(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("submit fact: %w", err)
		}
		f = &res.Fact
	default:
		return nil, fmt.Errorf("find pending fact: %w", err)
	}

	res := s.Verify(ctx, *f)
	return &res, nil
}
