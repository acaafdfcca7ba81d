package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// A verified place is injected when a later message names it.
func TestAugmenter_RelevantFactsAfterVerification(t *testing.T) {
	ctx := context.Background()
	provider := evidence.NewMockClient().
		On("Riverside Roasters", scored(0.95)).
		On("Fake Cafe", scored(0.4))
	v, st := newTestVerifier(t, provider)
	v.Verify(ctx, submitPending(t, st.pending, "Riverside Roasters"))
	v.Verify(ctx, submitPending(t, st.pending, "Fake Cafe"))

	a := NewAugmenterService(st.knowledge, testLogger())

	facts := a.RelevantFacts(ctx, "Tell me about Riverside Roasters")
	require.Len(t, facts, 1)
	assert.Equal(t, "riverside roasters", facts[0].Key)

	none := a.RelevantFacts(ctx, "Tell me about something unrelated")
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Empty(t, a.RelevantFacts(ctx, "Is Fake Cafe any good?"), "rejected facts are never injected")
}

func TestAugmenter_Matching(t *testing.T) {
	ctx := context.Background()
	st := newTestStores(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"Riverside Roasters", "心斎橋焙煎所", "Norwegian Wood"} {
		require.NoError(t, st.knowledge.AddVerified(ctx, &domain.VerifiedFact{
			Key: key, Category: domain.Classify(key, ""), VerifiedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	a := NewAugmenterService(st.knowledge, testLogger())

	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{"case insensitive", "RIVERSIDE   ROASTERS open today?", []string{"riverside roasters"}},
		{"full width", "ｒｉｖｅｒｓｉｄｅ ｒｏａｓｔｅｒｓ", []string{"riverside roasters"}},
		{"japanese", "心斎橋焙煎所に行きたい", []string{"心斎橋焙煎所"}},
		{"several in store order", "Norwegian Wood at Riverside Roasters", []string{"riverside roasters", "norwegian wood"}},
		{"partial key does not match", "Riverside is nice", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.RelevantFacts(ctx, tt.message)
			keys := make([]string, 0, len(got))
			for _, f := range got {
				keys = append(keys, f.Key)
			}
			if tt.want == nil {
				assert.Empty(t, keys)
				return
			}
			assert.Equal(t, tt.want, keys)
			// deterministic
			assert.Equal(t, got, a.RelevantFacts(ctx, tt.message))
		})
	}
}

func TestAugmenter_StoreErrorYieldsEmpty(t *testing.T) {
	ks := new(MockKnowledgeStore)
	ks.On("List", mock.Anything).Return(nil, errors.New("unreadable"))

	got := NewAugmenterService(ks, testLogger()).RelevantFacts(context.Background(), "Riverside Roasters")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
