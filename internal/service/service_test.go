package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type testStores struct {
	pending   *store.PendingStore
	knowledge *store.KnowledgeStore
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return testStores{
		pending:   store.NewPendingStore(b),
		knowledge: store.NewKnowledgeStore(b),
	}
}

func submitPending(t *testing.T, ps domain.PendingFactStore, text string) domain.PendingFact {
	t.Helper()
	res, err := ps.Submit(context.Background(), &domain.PendingFact{
		Fact:       text,
		Category:   domain.Classify(text, ""),
		Confidence: 0.8,
		Source:     domain.FactSource{UserRef: "u_test", Message: "it's called " + text},
	})
	require.NoError(t, err)
	return res.Fact
}

// MockKnowledgeStore mocks the KnowledgeStore interface.
type MockKnowledgeStore struct {
	mock.Mock
}

func (m *MockKnowledgeStore) AddVerified(ctx context.Context, f *domain.VerifiedFact) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockKnowledgeStore) AddRejected(ctx context.Context, f *domain.RejectedFact) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockKnowledgeStore) FindByNormalized(ctx context.Context, normalized string) (*domain.VerifiedFact, error) {
	args := m.Called(ctx, normalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifiedFact), args.Error(1)
}

func (m *MockKnowledgeStore) IsRejected(ctx context.Context, normalized string) (bool, error) {
	args := m.Called(ctx, normalized)
	return args.Bool(0), args.Error(1)
}

func (m *MockKnowledgeStore) VerdictAt(ctx context.Context, normalized string) (time.Time, error) {
	args := m.Called(ctx, normalized)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockKnowledgeStore) Search(ctx context.Context, terms []string) ([]domain.VerifiedFact, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VerifiedFact), args.Error(1)
}

func (m *MockKnowledgeStore) List(ctx context.Context) ([]domain.VerifiedFact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VerifiedFact), args.Error(1)
}

func (m *MockKnowledgeStore) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeStats), args.Error(1)
}

// MockPendingStore mocks the PendingFactStore interface.
type MockPendingStore struct {
	mock.Mock
}

func (m *MockPendingStore) Submit(ctx context.Context, f *domain.PendingFact) (*domain.SubmitResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmitResult), args.Error(1)
}

func (m *MockPendingStore) FindPending(ctx context.Context, normalized string) (*domain.PendingFact, error) {
	args := m.Called(ctx, normalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingFact), args.Error(1)
}

func (m *MockPendingStore) ListPending(ctx context.Context, filter domain.PendingFilter) ([]domain.PendingFact, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingFact), args.Error(1)
}

func (m *MockPendingStore) MarkVerified(ctx context.Context, id uuid.UUID, v domain.Verification) (*domain.PendingFact, error) {
	args := m.Called(ctx, id, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingFact), args.Error(1)
}

func (m *MockPendingStore) MarkRejected(ctx context.Context, id uuid.UUID, v domain.Verification, reason string) (*domain.PendingFact, error) {
	args := m.Called(ctx, id, v, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingFact), args.Error(1)
}

func (m *MockPendingStore) ListDecided(ctx context.Context) ([]domain.PendingFact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingFact), args.Error(1)
}

func (m *MockPendingStore) Stats(ctx context.Context) (*domain.PendingStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingStats), args.Error(1)
}
