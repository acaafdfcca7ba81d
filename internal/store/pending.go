package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/google/uuid"
)

// PendingDocument is the backend name of the pending-facts document.
const PendingDocument = "pending_facts"

type pendingDocument struct {
	Pending     []domain.PendingFact `json:"pending"`
	Verified    []domain.PendingFact `json:"verified"`
	Rejected    []domain.PendingFact `json:"rejected"`
	LastUpdated *time.Time           `json:"last_updated"`
}

func (d *pendingDocument) validate() error {
	seen := make(map[string]bool, len(d.Pending))
	for i, f := range d.Pending {
		if f.Status != domain.StatusPending {
			return fmt.Errorf("pending[%d]: status %q", i, f.Status)
		}
		if f.Normalized == "" {
			return fmt.Errorf("pending[%d]: empty normalized fact", i)
		}
		if seen[f.Normalized] {
			return fmt.Errorf("pending[%d]: duplicate fact %q", i, f.Normalized)
		}
		seen[f.Normalized] = true
		if f.Confidence < 0 || f.Confidence > 1 {
			return fmt.Errorf("pending[%d]: confidence %v out of range", i, f.Confidence)
		}
	}
	for i, f := range d.Verified {
		if f.Status != domain.StatusVerified {
			return fmt.Errorf("verified[%d]: status %q", i, f.Status)
		}
	}
	for i, f := range d.Rejected {
		if f.Status != domain.StatusRejected {
			return fmt.Errorf("rejected[%d]: status %q", i, f.Status)
		}
	}
	return nil
}

func (d *pendingDocument) indexByID(id uuid.UUID) int {
	for i := range d.Pending {
		if d.Pending[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *pendingDocument) indexByNormalized(normalized string) int {
	for i := range d.Pending {
		if d.Pending[i].Normalized == normalized {
			return i
		}
	}
	return -1
}

// PendingStore is the pending-facts queue backed by a single document.
type PendingStore struct {
	backend Backend
	now     func() time.Time
}

func NewPendingStore(b Backend) *PendingStore {
	return &PendingStore{backend: b, now: time.Now}
}

// Load reads and validates the document. Call it at startup so a corrupt
// document stops the process instead of being overwritten later.
func (s *PendingStore) Load(ctx context.Context) error {
	_, err := s.read(ctx)
	return err
}

func (s *PendingStore) read(ctx context.Context) (*pendingDocument, error) {
	data, err := s.backend.Read(ctx, PendingDocument)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return decodePending(data)
}

func decodePending(data []byte) (*pendingDocument, error) {
	doc := &pendingDocument{}
	if err := decodeDocument(PendingDocument, data, doc); err != nil {
		return nil, err
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, PendingDocument, err)
	}
	return doc, nil
}

// update applies fn to the current document and writes it back if fn reports a change.
func (s *PendingStore) update(ctx context.Context, fn func(doc *pendingDocument) (bool, error)) error {
	return s.backend.Update(ctx, PendingDocument, func(current []byte) ([]byte, error) {
		doc, err := decodePending(current)
		if err != nil {
			return nil, err
		}
		changed, err := fn(doc)
		if err != nil || !changed {
			return nil, err
		}
		now := s.now().UTC()
		doc.LastUpdated = &now
		return encodeDocument(doc)
	})
}

// Submit inserts f into the queue, or refreshes the pending entry that has the
// same normalized text: its source is replaced by f's and its occurrence count
// grows. There is never more than one pending row per normalized fact.
func (s *PendingStore) Submit(ctx context.Context, f *domain.PendingFact) (*domain.SubmitResult, error) {
	if f.Normalized == "" {
		f.Normalized = domain.Normalize(f.Fact)
	}
	if f.Normalized == "" {
		return nil, fmt.Errorf("%w: empty fact text", ErrInvalidFact)
	}
	f.Confidence = domain.ClampConfidence(f.Confidence)
	if !domain.ValidCategory(string(f.Category)) {
		f.Category = domain.CategoryGeneral
	}
	if f.Source.Timestamp.IsZero() {
		f.Source.Timestamp = s.now().UTC()
	}

	var result domain.SubmitResult
	err := s.update(ctx, func(doc *pendingDocument) (bool, error) {
		if i := doc.indexByNormalized(f.Normalized); i >= 0 {
			existing := &doc.Pending[i]
			existing.Source = f.Source
			existing.Occurrences++
			result = domain.SubmitResult{Created: false, Fact: *existing}
			return true, nil
		}

		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.Status = domain.StatusPending
		f.Occurrences = 1
		doc.Pending = append(doc.Pending, *f)
		result = domain.SubmitResult{Created: true, Fact: *f}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *PendingStore) FindPending(ctx context.Context, normalized string) (*domain.PendingFact, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	i := doc.indexByNormalized(domain.Normalize(normalized))
	if i < 0 {
		return nil, ErrNotFound
	}
	f := doc.Pending[i]
	return &f, nil
}

// ListPending returns pending facts in queue order.
func (s *PendingStore) ListPending(ctx context.Context, filter domain.PendingFilter) ([]domain.PendingFact, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingFact, 0, len(doc.Pending))
	for _, f := range doc.Pending {
		if filter.Category != nil && f.Category != *filter.Category {
			continue
		}
		if f.Confidence < filter.MinConfidence {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// MarkVerified moves a pending fact to the verified audit list and returns the
// moved entry. ErrNotPending means another caller already decided the fact.
func (s *PendingStore) MarkVerified(ctx context.Context, id uuid.UUID, v domain.Verification) (*domain.PendingFact, error) {
	var moved domain.PendingFact
	err := s.update(ctx, func(doc *pendingDocument) (bool, error) {
		i := doc.indexByID(id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrNotPending, id)
		}
		moved = doc.Pending[i]
		now := s.now().UTC()
		moved.Status = domain.StatusVerified
		moved.Verification = &v
		moved.VerifiedAt = &now

		doc.Pending = append(doc.Pending[:i], doc.Pending[i+1:]...)
		doc.Verified = append(doc.Verified, moved)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// MarkRejected moves a pending fact to the rejected list.
func (s *PendingStore) MarkRejected(ctx context.Context, id uuid.UUID, v domain.Verification, reason string) (*domain.PendingFact, error) {
	var moved domain.PendingFact
	err := s.update(ctx, func(doc *pendingDocument) (bool, error) {
		i := doc.indexByID(id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrNotPending, id)
		}
		moved = doc.Pending[i]
		now := s.now().UTC()
		moved.Status = domain.StatusRejected
		moved.Verification = &v
		moved.RejectedAt = &now
		moved.RejectionReason = reason

		doc.Pending = append(doc.Pending[:i], doc.Pending[i+1:]...)
		doc.Rejected = append(doc.Rejected, moved)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// ListDecided returns the verified and rejected audit entries.
func (s *PendingStore) ListDecided(ctx context.Context) ([]domain.PendingFact, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingFact, 0, len(doc.Verified)+len(doc.Rejected))
	out = append(out, doc.Verified...)
	return append(out, doc.Rejected...), nil
}

func (s *PendingStore) Stats(ctx context.Context) (*domain.PendingStats, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.PendingStats{
		Pending:     len(doc.Pending),
		Verified:    len(doc.Verified),
		Rejected:    len(doc.Rejected),
		LastUpdated: doc.LastUpdated,
	}, nil
}
