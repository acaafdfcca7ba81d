// Package notify tells operators about newly detected corrections.
package notify

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"go.uber.org/zap"
)

// LogNotifier writes each event to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) CorrectionDetected(_ context.Context, e domain.CorrectionEvent) error {
	n.logger.Info("correction detected",
		zap.String("fact_id", e.FactID.String()),
		zap.String("fact", e.Fact),
		zap.String("category", string(e.Category)),
		zap.Float64("confidence", e.Confidence),
		zap.String("user_ref", e.UserRef),
	)
	return nil
}

// Multi fans an event out to every notifier. All notifiers are called even
// if some fail; the errors are joined.
type Multi []domain.CorrectionNotifier

func (m Multi) CorrectionDetected(ctx context.Context, e domain.CorrectionEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.CorrectionDetected(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
