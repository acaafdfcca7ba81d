package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"go.uber.org/zap"
)

const (
	// DefaultDetectTimeout bounds one Process call.
	DefaultDetectTimeout = 2 * time.Second
	// ContextTurns is how many preceding turns are kept as the source context.
	ContextTurns = 3
	// MaxContextRunes caps the stored source context.
	MaxContextRunes = 500
	// NotifyTimeout bounds one background correction notification.
	NotifyTimeout = 10 * time.Second
)

// LearnerService turns user messages into pending facts. It sits on the
// user-facing message path, so it never returns an error: failures become a
// detection_failed outcome and a log line.
type LearnerService struct {
	detector  domain.CorrectionDetector
	pending   domain.PendingFactStore
	knowledge domain.KnowledgeStore
	notifier  domain.CorrectionNotifier
	logger    *zap.Logger

	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewLearnerService(d domain.CorrectionDetector, ps domain.PendingFactStore, ks domain.KnowledgeStore, logger *zap.Logger) *LearnerService {
	return &LearnerService{
		detector:  d,
		pending:   ps,
		knowledge: ks,
		logger:    logger,
		timeout:   DefaultDetectTimeout,
		now:       time.Now,
	}
}

func (s *LearnerService) SetNotifier(n domain.CorrectionNotifier) {
	s.notifier = n
}

func (s *LearnerService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Process runs detection on message and records the result.
// contextWindow holds the preceding turns, oldest first.
func (s *LearnerService) Process(ctx context.Context, userRef, message string, contextWindow []string) (out domain.DetectionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.failed(out.Candidate, fmt.Errorf("panic: %v", r))
		}
	}()

	candidate := s.detector.Detect(message)
	if candidate == nil {
		return domain.DetectionOutcome{Kind: domain.OutcomeNoMatch}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.record(ctx, candidate, userRef, message, contextWindow)
	if err != nil {
		return s.failed(candidate, err)
	}
	return out
}

func (s *LearnerService) record(ctx context.Context, c *domain.CorrectionCandidate, userRef, message string, contextWindow []string) (domain.DetectionOutcome, error) {
	normalized := domain.Normalize(c.Fact)

	_, err := s.knowledge.FindByNormalized(ctx, normalized)
	switch {
	case err == nil:
		s.logger.Debug("correction already known", zap.String("fact", c.Fact))
		return domain.DetectionOutcome{Kind: domain.OutcomeAlreadyKnown, Candidate: c}, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.DetectionOutcome{}, fmt.Errorf("check knowledge: %w", err)
	}

	rejected, err := s.knowledge.IsRejected(ctx, normalized)
	if err != nil {
		return domain.DetectionOutcome{}, fmt.Errorf("check rejected: %w", err)
	}
	if rejected {
		s.logger.Debug("correction previously rejected", zap.String("fact", c.Fact))
		return domain.DetectionOutcome{Kind: domain.OutcomePreviouslyRejected, Candidate: c}, nil
	}

	f := &domain.PendingFact{
		Fact:       c.Fact,
		Normalized: normalized,
		Category:   c.Category,
		Confidence: c.Confidence,
		Pattern:    c.Pattern,
		Source: domain.FactSource{
			UserRef:   domain.HashUserRef(userRef),
			Message:   message,
			Context:   contextSnippet(contextWindow),
			Timestamp: s.now().UTC(),
		},
	}
	res, err := s.pending.Submit(ctx, f)
	if err != nil {
		return domain.DetectionOutcome{}, fmt.Errorf("submit pending fact: %w", err)
	}

	if !res.Created {
		s.logger.Info("duplicate correction refreshed",
			zap.String("fact_id", res.Fact.ID.String()),
			zap.String("fact", res.Fact.Fact),
			zap.Int("occurrences", res.Fact.Occurrences))
		return domain.DetectionOutcome{Kind: domain.OutcomeDuplicatePending, Candidate: c, Fact: &res.Fact}, nil
	}

	s.logger.Info("new pending fact",
		zap.String("fact_id", res.Fact.ID.String()),
		zap.String("fact", res.Fact.Fact),
		zap.String("category", string(res.Fact.Category)),
		zap.Float64("confidence", res.Fact.Confidence),
		zap.String("pattern", res.Fact.Pattern))
	s.notify(ctx, res.Fact)
	return domain.DetectionOutcome{Kind: domain.OutcomeNewPending, Candidate: c, Fact: &res.Fact}, nil
}

// notify publishes the event in the background so a slow notifier never
// delays the caller. Wait drains pending notifications.
func (s *LearnerService) notify(ctx context.Context, f domain.PendingFact) {
	if s.notifier == nil {
		return
	}
	e := domain.CorrectionEvent{
		FactID:     f.ID,
		Fact:       f.Fact,
		Normalized: f.Normalized,
		Category:   f.Category,
		Confidence: f.Confidence,
		UserRef:    f.Source.UserRef,
		DetectedAt: f.Source.Timestamp,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
		defer cancel()
		if err := s.notifier.CorrectionDetected(ctx, e); err != nil {
			s.logger.Warn("correction notification failed", zap.String("fact_id", f.ID.String()), zap.Error(err))
		}
	}()
}

func (s *LearnerService) failed(c *domain.CorrectionCandidate, err error) domain.DetectionOutcome {
	fields := []zap.Field{zap.Error(err)}
	if c != nil {
		fields = append(fields, zap.String("fact", c.Fact))
	}
	s.logger.Error("correction detection failed", fields...)
	return domain.DetectionOutcome{Kind: domain.OutcomeDetectionFailed, Candidate: c, Err: err}
}

// ProcessAsync runs Process in the background so the caller's response is
// never delayed. Use Wait to drain in-flight calls on shutdown.
func (s *LearnerService) ProcessAsync(userRef, message string, contextWindow []string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Process(context.Background(), userRef, message, contextWindow)
	}()
}

// Wait blocks until background detections and notifications are done.
func (s *LearnerService) Wait() {
	s.wg.Wait()
}

func contextSnippet(turns []string) string {
	if len(turns) > ContextTurns {
		turns = turns[len(turns)-ContextTurns:]
	}
	return domain.TruncateRunes(strings.Join(turns, "\n"), MaxContextRunes)
}
