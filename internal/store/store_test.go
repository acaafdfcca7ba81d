package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func pendingFact(text string, confidence float64) *domain.PendingFact {
	return &domain.PendingFact{
		Fact:       text,
		Category:   domain.CategoryPlace,
		Confidence: confidence,
		Source:     domain.FactSource{UserRef: "u_test", Message: "it's called " + text},
	}
}

func TestFileBackend_UpdateAndRead(t *testing.T) {
	ctx := context.Background()
	b := newFileBackend(t)

	_, err := b.Read(ctx, "doc")
	assert.ErrorIs(t, err, ErrNotFound)

	err = b.Update(ctx, "doc", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`{"a":1}`), nil
	})
	require.NoError(t, err)

	data, err := b.Read(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	// nil from fn leaves the document alone
	err = b.Update(ctx, "doc", func(current []byte) ([]byte, error) { return nil, nil })
	require.NoError(t, err)
	data, err = b.Read(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	entries, err := os.ReadDir(b.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileBackend_ConcurrentUpdatesSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewPendingStore(newFileBackend(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Submit(ctx, pendingFact(uuid.NewString(), 0.8))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Pending)
}

func TestPendingStore_SubmitDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewPendingStore(newFileBackend(t))

	first, err := s.Submit(ctx, pendingFact("Riverside Roasters", 0.8))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 1, first.Fact.Occurrences)
	assert.Equal(t, domain.StatusPending, first.Fact.Status)
	assert.NotEqual(t, uuid.Nil, first.Fact.ID)

	dup := pendingFact("ＲＩＶＥＲＳＩＤＥ   roasters", 0.6)
	dup.Source.UserRef = "u_other"
	second, err := s.Submit(ctx, dup)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Fact.ID, second.Fact.ID)
	assert.Equal(t, 2, second.Fact.Occurrences)
	assert.Equal(t, "u_other", second.Fact.Source.UserRef)
	assert.Equal(t, "Riverside Roasters", second.Fact.Fact)

	pending, err := s.ListPending(ctx, domain.PendingFilter{})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPendingStore_SubmitRejectsEmptyFact(t *testing.T) {
	s := NewPendingStore(newFileBackend(t))
	_, err := s.Submit(context.Background(), pendingFact("   ", 0.8))
	assert.ErrorIs(t, err, ErrInvalidFact)
}

func TestPendingStore_ListPendingFilter(t *testing.T) {
	ctx := context.Background()
	s := NewPendingStore(newFileBackend(t))

	media := pendingFact("Norwegian Wood", 0.6)
	media.Category = domain.CategoryMedia
	for _, f := range []*domain.PendingFact{
		pendingFact("Riverside Roasters", 0.8),
		pendingFact("Low Cafe", 0.3),
		media,
	} {
		_, err := s.Submit(ctx, f)
		require.NoError(t, err)
	}

	all, err := s.ListPending(ctx, domain.PendingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Riverside Roasters", all[0].Fact, "queue order is preserved")

	confident, err := s.ListPending(ctx, domain.PendingFilter{MinConfidence: 0.5})
	require.NoError(t, err)
	assert.Len(t, confident, 2)

	cat := domain.CategoryMedia
	onlyMedia, err := s.ListPending(ctx, domain.PendingFilter{Category: &cat, MinConfidence: 0.5})
	require.NoError(t, err)
	require.Len(t, onlyMedia, 1)
	assert.Equal(t, "Norwegian Wood", onlyMedia[0].Fact)
}

func TestPendingStore_Transitions(t *testing.T) {
	ctx := context.Background()
	s := NewPendingStore(newFileBackend(t))

	a, err := s.Submit(ctx, pendingFact("Riverside Roasters", 0.8))
	require.NoError(t, err)
	b, err := s.Submit(ctx, pendingFact("Fake Cafe", 0.8))
	require.NoError(t, err)

	verified, err := s.MarkVerified(ctx, a.Fact.ID, domain.Verification{Confidence: 0.9, Evidence: "listed"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, verified.Status)
	require.NotNil(t, verified.VerifiedAt)
	rejected, err := s.MarkRejected(ctx, b.Fact.ID, domain.Verification{Confidence: 0.2}, "confidence below threshold")
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectedAt)

	// terminal states never change
	_, err = s.MarkRejected(ctx, a.Fact.ID, domain.Verification{}, "x")
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = s.MarkVerified(ctx, b.Fact.ID, domain.Verification{})
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = s.MarkVerified(ctx, uuid.New(), domain.Verification{})
	assert.ErrorIs(t, err, ErrNotPending)

	decided, err := s.ListDecided(ctx)
	require.NoError(t, err)
	require.Len(t, decided, 2)
	assert.Equal(t, a.Fact.ID, decided[0].ID)
	assert.Equal(t, b.Fact.ID, decided[1].ID)

	_, err = s.FindPending(ctx, "riverside roasters")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 1, stats.Verified)
	assert.Equal(t, 1, stats.Rejected)
	require.NotNil(t, stats.LastUpdated)

	doc, err := s.read(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Verified, 1)
	assert.Equal(t, domain.StatusVerified, doc.Verified[0].Status)
	require.NotNil(t, doc.Verified[0].VerifiedAt)
	require.Len(t, doc.Rejected, 1)
	assert.Equal(t, "confidence below threshold", doc.Rejected[0].RejectionReason)
}

func TestPendingStore_MalformedDocumentLeftUntouched(t *testing.T) {
	ctx := context.Background()
	b := newFileBackend(t)
	path := b.Path(PendingDocument)
	garbage := []byte(`{"pending": [ not json`)
	require.NoError(t, os.WriteFile(path, garbage, 0o600))

	s := NewPendingStore(b)
	assert.ErrorIs(t, s.Load(ctx), ErrMalformedDocument)

	_, err := s.Submit(ctx, pendingFact("Riverside Roasters", 0.8))
	assert.ErrorIs(t, err, ErrMalformedDocument)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, garbage, after)
}

func TestPendingStore_InvariantViolationIsMalformed(t *testing.T) {
	b := newFileBackend(t)
	doc := `{"pending":[
		{"id":"` + uuid.NewString() + `","fact":"A","normalized":"a","status":"pending","confidence":0.8},
		{"id":"` + uuid.NewString() + `","fact":"a","normalized":"a","status":"pending","confidence":0.8}
	]}`
	require.NoError(t, os.WriteFile(b.Path(PendingDocument), []byte(doc), 0o600))

	err := NewPendingStore(b).Load(context.Background())
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestKnowledgeStore_AddVerifiedReplacesByKey(t *testing.T) {
	ctx := context.Background()
	s := NewKnowledgeStore(newFileBackend(t))

	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{
		Key: "Riverside Roasters", Category: domain.CategoryPlace, Confidence: 0.8, Evidence: "old",
	}))
	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{
		Key: "riverside roasters", Category: domain.CategoryPlace, Confidence: 1.5, Evidence: "new",
	}))

	facts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "new", facts[0].Evidence)
	assert.Equal(t, 1.0, facts[0].Confidence)
	assert.Equal(t, "riverside roasters", facts[0].Key)

	found, err := s.FindByNormalized(ctx, "RIVERSIDE ROASTERS")
	require.NoError(t, err)
	assert.Equal(t, "new", found.Evidence)

	_, err = s.FindByNormalized(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKnowledgeStore_RejectedTombstone(t *testing.T) {
	ctx := context.Background()
	s := NewKnowledgeStore(newFileBackend(t))

	require.NoError(t, s.AddRejected(ctx, &domain.RejectedFact{Key: "Fake Cafe", Reason: "confidence below threshold"}))
	rejected, err := s.IsRejected(ctx, "fake cafe")
	require.NoError(t, err)
	assert.True(t, rejected)

	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{Key: "Fake Cafe", Category: domain.CategoryPlace, Confidence: 0.9}))
	rejected, err = s.IsRejected(ctx, "fake cafe")
	require.NoError(t, err)
	assert.False(t, rejected)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByCategory[domain.CategoryPlace])
	assert.Equal(t, 0, stats.Rejected)
}

func TestKnowledgeStore_VerdictAt(t *testing.T) {
	ctx := context.Background()
	s := NewKnowledgeStore(newFileBackend(t))
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	_, err := s.VerdictAt(ctx, "riverside roasters")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{Key: "Riverside Roasters", Category: domain.CategoryPlace, VerifiedAt: t1, Confidence: 0.9}))
	at, err := s.VerdictAt(ctx, "RIVERSIDE ROASTERS")
	require.NoError(t, err)
	assert.True(t, at.Equal(t1))

	require.NoError(t, s.AddRejected(ctx, &domain.RejectedFact{Key: "riverside roasters", RejectedAt: t2, Confidence: 0.2}))
	at, err = s.VerdictAt(ctx, "riverside roasters")
	require.NoError(t, err)
	assert.True(t, at.Equal(t2))
}

func TestKnowledgeStore_SearchAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewKnowledgeStore(newFileBackend(t))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{
		Key: "Norwegian Wood", Category: domain.CategoryMedia, VerifiedAt: base.Add(time.Hour),
		Details: map[string]any{"author": "Haruki Murakami"},
	}))
	require.NoError(t, s.AddVerified(ctx, &domain.VerifiedFact{
		Key: "Riverside Roasters", Category: domain.CategoryPlace, VerifiedAt: base,
		Details: map[string]any{"city": "Portland"},
	}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "riverside roasters", all[0].Key)
	assert.Equal(t, "norwegian wood", all[1].Key)

	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{"key substring", []string{"ROAST"}, []string{"riverside roasters"}},
		{"details value", []string{"murakami"}, []string{"norwegian wood"}},
		{"any term", []string{"portland", "wood"}, []string{"riverside roasters", "norwegian wood"}},
		{"no match", []string{"tokyo"}, nil},
		{"empty terms ignored", []string{"", "  "}, nil},
		{"no terms", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.terms)
			require.NoError(t, err)
			require.NotNil(t, got)
			keys := make([]string, 0, len(got))
			for _, f := range got {
				keys = append(keys, f.Key)
			}
			if tt.want == nil {
				assert.Empty(t, keys)
			} else {
				assert.Equal(t, tt.want, keys)
			}
		})
	}
}

func TestKnowledgeStore_MalformedDocument(t *testing.T) {
	b := newFileBackend(t)
	require.NoError(t, os.WriteFile(filepath.Join(b.dir, KnowledgeDocument+".json"), []byte(`{"facts":{"planet":{}}}`), 0o600))
	assert.ErrorIs(t, NewKnowledgeStore(b).Load(context.Background()), ErrMalformedDocument)
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	b := NewPostgresBackend(pool)
	require.NoError(t, b.EnsureSchema(ctx))
	name := "test_" + uuid.NewString()
	defer func() { _, _ = pool.Exec(ctx, `DELETE FROM fact_documents WHERE name = $1`, name) }()

	_, err = b.Read(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Update(ctx, name, func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`{"pending":[]}`), nil
	}))
	data, err := b.Read(ctx, name)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pending":[]}`, string(data))
}
