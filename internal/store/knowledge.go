package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
)

// KnowledgeDocument is the backend name of the knowledge document.
const KnowledgeDocument = "knowledge"

type knowledgeDocument struct {
	Facts       map[domain.Category]map[string]domain.VerifiedFact `json:"facts"`
	Rejected    map[string]domain.RejectedFact                    `json:"rejected"`
	LastUpdated *time.Time                                        `json:"last_updated"`
}

func (d *knowledgeDocument) init() {
	if d.Facts == nil {
		d.Facts = make(map[domain.Category]map[string]domain.VerifiedFact)
	}
	if d.Rejected == nil {
		d.Rejected = make(map[string]domain.RejectedFact)
	}
}

func (d *knowledgeDocument) validate() error {
	for cat, facts := range d.Facts {
		if !domain.ValidCategory(string(cat)) {
			return fmt.Errorf("unknown category %q", cat)
		}
		for key, f := range facts {
			if key == "" || f.Key != key {
				return fmt.Errorf("%s: entry key %q does not match map key %q", cat, f.Key, key)
			}
			if f.Confidence < 0 || f.Confidence > 1 {
				return fmt.Errorf("%s/%s: confidence %v out of range", cat, key, f.Confidence)
			}
		}
	}
	for key, r := range d.Rejected {
		if key == "" || r.Key != key {
			return fmt.Errorf("rejected: entry key %q does not match map key %q", r.Key, key)
		}
	}
	return nil
}

// removeVerified drops every verified entry stored under key, in any category.
func (d *knowledgeDocument) removeVerified(key string) {
	for cat, facts := range d.Facts {
		delete(facts, key)
		if len(facts) == 0 {
			delete(d.Facts, cat)
		}
	}
}

// ordered returns all verified facts sorted by verification time, then category, then key.
func (d *knowledgeDocument) ordered() []domain.VerifiedFact {
	out := make([]domain.VerifiedFact, 0)
	for _, facts := range d.Facts {
		for _, f := range facts {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.VerifiedAt.Equal(b.VerifiedAt) {
			return a.VerifiedAt.Before(b.VerifiedAt)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Key < b.Key
	})
	return out
}

// KnowledgeStore holds verified facts and the tombstones of rejected ones.
// Keys are normalized fact text.
type KnowledgeStore struct {
	backend Backend
	now     func() time.Time
}

func NewKnowledgeStore(b Backend) *KnowledgeStore {
	return &KnowledgeStore{backend: b, now: time.Now}
}

func (s *KnowledgeStore) Load(ctx context.Context) error {
	_, err := s.read(ctx)
	return err
}

func (s *KnowledgeStore) read(ctx context.Context) (*knowledgeDocument, error) {
	data, err := s.backend.Read(ctx, KnowledgeDocument)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return decodeKnowledge(data)
}

func decodeKnowledge(data []byte) (*knowledgeDocument, error) {
	doc := &knowledgeDocument{}
	if err := decodeDocument(KnowledgeDocument, data, doc); err != nil {
		return nil, err
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, KnowledgeDocument, err)
	}
	doc.init()
	return doc, nil
}

func (s *KnowledgeStore) update(ctx context.Context, fn func(doc *knowledgeDocument) error) error {
	return s.backend.Update(ctx, KnowledgeDocument, func(current []byte) ([]byte, error) {
		doc, err := decodeKnowledge(current)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		doc.LastUpdated = &now
		return encodeDocument(doc)
	})
}

// AddVerified stores f under its category, replacing any entry with the same
// key. A rejection tombstone for the key is cleared.
func (s *KnowledgeStore) AddVerified(ctx context.Context, f *domain.VerifiedFact) error {
	key := domain.Normalize(f.Key)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidFact)
	}
	entry := *f
	entry.Key = key
	entry.Confidence = domain.ClampConfidence(entry.Confidence)
	if !domain.ValidCategory(string(entry.Category)) {
		entry.Category = domain.CategoryGeneral
	}
	if entry.VerifiedAt.IsZero() {
		entry.VerifiedAt = s.now().UTC()
	}
	if entry.Sources == nil {
		entry.Sources = []string{}
	}

	return s.update(ctx, func(doc *knowledgeDocument) error {
		doc.removeVerified(key)
		delete(doc.Rejected, key)
		facts, ok := doc.Facts[entry.Category]
		if !ok {
			facts = make(map[string]domain.VerifiedFact)
			doc.Facts[entry.Category] = facts
		}
		facts[key] = entry
		return nil
	})
}

// AddRejected records a tombstone for f. Any verified entry with the same key
// is removed so the latest verdict wins.
func (s *KnowledgeStore) AddRejected(ctx context.Context, f *domain.RejectedFact) error {
	key := domain.Normalize(f.Key)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidFact)
	}
	entry := *f
	entry.Key = key
	entry.Confidence = domain.ClampConfidence(entry.Confidence)
	if entry.RejectedAt.IsZero() {
		entry.RejectedAt = s.now().UTC()
	}

	return s.update(ctx, func(doc *knowledgeDocument) error {
		doc.removeVerified(key)
		doc.Rejected[key] = entry
		return nil
	})
}

func (s *KnowledgeStore) FindByNormalized(ctx context.Context, normalized string) (*domain.VerifiedFact, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	key := domain.Normalize(normalized)
	for _, cat := range domain.Categories {
		if f, ok := doc.Facts[cat][key]; ok {
			return &f, nil
		}
	}
	return nil, ErrNotFound
}

func (s *KnowledgeStore) IsRejected(ctx context.Context, normalized string) (bool, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	_, ok := doc.Rejected[domain.Normalize(normalized)]
	return ok, nil
}

// VerdictAt returns when the current verdict for normalized was recorded,
// verified or rejected. ErrNotFound means there is no verdict yet.
func (s *KnowledgeStore) VerdictAt(ctx context.Context, normalized string) (time.Time, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return time.Time{}, err
	}
	key := domain.Normalize(normalized)
	for _, cat := range domain.Categories {
		if f, ok := doc.Facts[cat][key]; ok {
			return f.VerifiedAt, nil
		}
	}
	if r, ok := doc.Rejected[key]; ok {
		return r.RejectedAt, nil
	}
	return time.Time{}, ErrNotFound
}

// Search returns facts where any term occurs in the key or in a details value.
func (s *KnowledgeStore) Search(ctx context.Context, terms []string) ([]domain.VerifiedFact, error) {
	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := domain.Normalize(t); n != "" {
			needles = append(needles, n)
		}
	}
	if len(needles) == 0 {
		return []domain.VerifiedFact{}, nil
	}

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VerifiedFact, 0)
	for _, f := range doc.ordered() {
		if matchesAny(f, needles) {
			out = append(out, f)
		}
	}
	return out, nil
}

func matchesAny(f domain.VerifiedFact, needles []string) bool {
	haystacks := []string{f.Key}
	for _, v := range f.Details {
		if str, ok := v.(string); ok {
			haystacks = append(haystacks, domain.Normalize(str))
		} else if v != nil {
			haystacks = append(haystacks, domain.Normalize(fmt.Sprint(v)))
		}
	}
	for _, n := range needles {
		for _, h := range haystacks {
			if strings.Contains(h, n) {
				return true
			}
		}
	}
	return false
}

func (s *KnowledgeStore) List(ctx context.Context) ([]domain.VerifiedFact, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.ordered(), nil
}

func (s *KnowledgeStore) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.KnowledgeStats{
		ByCategory:  make(map[domain.Category]int, len(domain.Categories)),
		Rejected:    len(doc.Rejected),
		LastUpdated: doc.LastUpdated,
	}
	for _, cat := range domain.Categories {
		stats.ByCategory[cat] = len(doc.Facts[cat])
		stats.Total += len(doc.Facts[cat])
	}
	return stats, nil
}
