package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pciassist/internal/index"
	"pciassist/internal/kb"
)

// fakeVec returns canned hits or a canned error.
type fakeVec struct {
	hits []index.Hit
	err  error
}

func (f *fakeVec) Query(_ context.Context, _ string, topK int) ([]index.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func testKB(t *testing.T) *kb.KB {
	t.Helper()
	k, err := kb.New(map[string]string{
		"1":      "Install and maintain network security controls.",
		"1.2.5":  "Ports, protocols, and services are identified and approved.",
		"3.4.1":  "PAN is rendered unreadable anywhere it is stored.",
		"12.5.2": "PCI DSS scope is documented and confirmed at least annually.",
	})
	require.NoError(t, err)
	return k
}

func TestLooksLikeRequirementID(t *testing.T) {
	accepted := []string{"3.4.1", "12.5.2", "A1.2", "3"}
	for _, s := range accepted {
		assert.True(t, LooksLikeRequirementID(s), "should accept %q", s)
	}

	rejected := []string{"see section three", "N/A", "", "3.4.", ".4.1", "firewall", "3..4"}
	for _, s := range rejected {
		assert.False(t, LooksLikeRequirementID(s), "should reject %q", s)
	}
}

func TestRetrieveUnionAndOrder(t *testing.T) {
	r := New(testKB(t), &fakeVec{hits: []index.Hit{
		{ID: "3.4.1", Score: 0.9},
		{ID: "1", Score: 0.7},
	}}, 5)

	bundle := r.Retrieve(context.Background(), "obs", []string{"scope"})

	// Vector hits first in index order, then keyword hits in KB order.
	assert.Equal(t, []string{"3.4.1", "1", "12.5.2"}, bundle.IDs())
	assert.Equal(t, MethodVector, bundle.Excerpts[0].Method)
	assert.Equal(t, MethodKeyword, bundle.Excerpts[2].Method)
}

func TestRetrieveDeduplicates(t *testing.T) {
	r := New(testKB(t), &fakeVec{hits: []index.Hit{{ID: "3.4.1", Score: 0.9}}}, 5)

	// "3.4.1" is matched by both the vector index and the keyword list.
	bundle := r.Retrieve(context.Background(), "obs", []string{"3.4.1"})

	assert.Equal(t, []string{"3.4.1"}, bundle.IDs())
	assert.Equal(t, MethodVector, bundle.Excerpts[0].Method, "first occurrence wins")
}

func TestRetrieveIdentifierKeywordFallsBackToSection(t *testing.T) {
	r := New(testKB(t), &fakeVec{}, 5)

	// "1.9.9" is not a KB key; its leading section "1" is.
	bundle := r.Retrieve(context.Background(), "obs", []string{"1.9.9"})

	assert.Equal(t, []string{"1"}, bundle.IDs())
}

func TestRetrieveFreeTextKeywordCaseInsensitive(t *testing.T) {
	r := New(testKB(t), &fakeVec{}, 5)

	bundle := r.Retrieve(context.Background(), "obs", []string{"UNREADABLE"})

	assert.Equal(t, []string{"3.4.1"}, bundle.IDs())
}

func TestRetrieveVectorFailureTolerated(t *testing.T) {
	r := New(testKB(t), &fakeVec{err: errors.New("index offline")}, 5)

	bundle := r.Retrieve(context.Background(), "obs", []string{"scope"})

	assert.Equal(t, []string{"12.5.2"}, bundle.IDs())
}

func TestRetrieveUnknownVectorIDDropped(t *testing.T) {
	r := New(testKB(t), &fakeVec{hits: []index.Hit{{ID: "99.99", Score: 0.9}}}, 5)

	bundle := r.Retrieve(context.Background(), "obs", nil)

	assert.True(t, bundle.Empty())
}

func TestRetrieveEmptyBundleSentinel(t *testing.T) {
	r := New(testKB(t), &fakeVec{}, 5)

	bundle := r.Retrieve(context.Background(), "obs", nil)

	require.True(t, bundle.Empty())
	assert.Equal(t, NoContextSentinel, bundle.Render())
}

func TestRetrieveDeterministic(t *testing.T) {
	r := New(testKB(t), &fakeVec{hits: []index.Hit{{ID: "1", Score: 0.8}}}, 5)
	keywords := []string{"documented", "3.4.1", "ports"}

	first := r.Retrieve(context.Background(), "obs", keywords)
	for i := 0; i < 10; i++ {
		again := r.Retrieve(context.Background(), "obs", keywords)
		assert.Equal(t, first, again)
	}
}

func TestRenderFormat(t *testing.T) {
	r := New(testKB(t), &fakeVec{hits: []index.Hit{{ID: "3.4.1", Score: 0.9}}}, 5)

	bundle := r.Retrieve(context.Background(), "obs", nil)

	assert.Equal(t, "--- From Requirement 3.4.1 ---\nPAN is rendered unreadable anywhere it is stored.", bundle.Render())
}
