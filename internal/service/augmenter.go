package service

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"go.uber.org/zap"
)

// AugmenterService picks verified facts to inject into the generation context.
type AugmenterService struct {
	knowledge domain.KnowledgeStore
	logger    *zap.Logger
}

func NewAugmenterService(ks domain.KnowledgeStore, logger *zap.Logger) *AugmenterService {
	return &AugmenterService{knowledge: ks, logger: logger}
}

// RelevantFacts returns the verified facts whose key occurs in message, in
// knowledge store order. Matching is plain containment on normalized text.
// The result is never nil; a store failure yields no facts.
func (s *AugmenterService) RelevantFacts(ctx context.Context, message string) []domain.VerifiedFact {
	out := make([]domain.VerifiedFact, 0)
	msg := domain.Normalize(message)
	if msg == "" {
		return out
	}

	facts, err := s.knowledge.List(ctx)
	if err != nil {
		s.logger.Warn("failed to read knowledge for augmentation", zap.Error(err))
		return out
	}
	for _, f := range facts {
		key := domain.Normalize(f.Key)
		if key != "" && strings.Contains(msg, key) {
			out = append(out, f)
		}
	}
	return out
}
