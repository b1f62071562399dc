package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostingDumpParseRoundTrip(t *testing.T) {
	p := NewPosting(7, []int{2, 9, 14}, true)
	p.LocalTFIDFScore = 1.2345
	p.GlobalTFIDFScore = 0.987
	p.PageRank = 0.4001

	dumped := p.Dump()
	got, err := ParsePosting(dumped)
	require.NoError(t, err)

	assert.Equal(t, 7, got.DocID)
	assert.Equal(t, 3, got.DocTermFrequency)
	assert.InDelta(t, 1.235, got.LocalTFIDFScore, 0.0005)
	assert.InDelta(t, 0.987, got.GlobalTFIDFScore, 0.0005)
	assert.InDelta(t, 0.4, got.PageRank, 0.0005)
	assert.Equal(t, []int{2, 9, 14}, got.TermPosList)
}

func TestPostingDumpParseRoundTripNoPositions(t *testing.T) {
	p := NewPosting(3, []int{1, 2}, false)
	got, err := ParsePosting(p.Dump())
	require.NoError(t, err)
	assert.Equal(t, 3, got.DocID)
	assert.Equal(t, 2, got.DocTermFrequency)
	assert.Nil(t, got.TermPosList)
}

func TestListAddAndLookup(t *testing.T) {
	l := New()
	l.Add(1, []int{0, 5}, true)
	l.Add(2, []int{3}, true)

	assert.Equal(t, 3, l.TotalTermFrequency)
	assert.Equal(t, 2, l.Len())

	p, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, p.DocTermFrequency)

	_, ok = l.Get(99)
	assert.False(t, ok)
}

func TestListDumpParseRoundTrip(t *testing.T) {
	l := New()
	l.Add(1, []int{0, 5}, true)
	l.Add(2, []int{3}, true)
	l.ComputeLocalTFIDF(10, true)
	l.SetPageRankings([]float64{0, 0.5, 0.25})

	dumped := l.Dump()
	parsed, err := Parse(dumped, true)
	require.NoError(t, err)

	assert.Equal(t, l.TotalTermFrequency, parsed.TotalTermFrequency)
	assert.Equal(t, l.Len(), parsed.Len())

	for _, docID := range []int{1, 2} {
		want, _ := l.Get(docID)
		got, ok := parsed.Get(docID)
		require.True(t, ok)
		assert.Equal(t, want.DocTermFrequency, got.DocTermFrequency)
		assert.InDelta(t, want.LocalTFIDFScore, got.LocalTFIDFScore, 0.0005)
		assert.InDelta(t, want.GlobalTFIDFScore, got.GlobalTFIDFScore, 0.0005)
		assert.InDelta(t, want.PageRank, got.PageRank, 0.0005)
		assert.Equal(t, want.TermPosList, got.TermPosList)
	}
}

func TestFromFragmentsConcatenatesPartials(t *testing.T) {
	a := New()
	a.Add(1, []int{0}, true)
	b := New()
	b.Add(2, []int{1, 2}, true)

	merged, err := FromFragments([]string{a.DumpRawPostings(), b.DumpRawPostings()}, true)
	require.NoError(t, err)

	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 3, merged.TotalTermFrequency)
	p1, _ := merged.Get(1)
	assert.Equal(t, 1, p1.DocTermFrequency)
	p2, _ := merged.Get(2)
	assert.Equal(t, 2, p2.DocTermFrequency)
}

func TestFromFragmentsSkipsEmptyFragments(t *testing.T) {
	a := New()
	a.Add(5, []int{0}, false)

	merged, err := FromFragments([]string{"", a.DumpRawPostings(), ""}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())
}

func TestComputeLocalTFIDF(t *testing.T) {
	l := New()
	l.Add(1, []int{0, 1}, false) // tf=2
	l.Add(2, []int{0}, false)    // tf=1
	l.ComputeLocalTFIDF(4, false)

	p1, _ := l.Get(1)
	p2, _ := l.Get(2)
	assert.Greater(t, p1.LocalTFIDFScore, p2.LocalTFIDFScore)
	assert.Equal(t, float64(-1), p1.GlobalTFIDFScore)
}

func TestAddGlobalTFIDFMissingReferenceDoc(t *testing.T) {
	l := New()
	l.Add(1, nil, false)
	ref := New()
	ref.Add(2, nil, false)
	ref.ComputeLocalTFIDF(2, true)

	err := l.AddGlobalTFIDF(ref)
	require.Error(t, err)
	var missing *MissingReferenceDocError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, missing.DocID)
}

func TestSortOrdersDescendingByWeightedScore(t *testing.T) {
	l := New()
	l.Add(1, nil, false)
	l.Add(2, nil, false)
	l.Add(3, nil, false)
	l.Postings[0].PageRank, l.Postings[0].LocalTFIDFScore, l.Postings[0].GlobalTFIDFScore = 0.1, 0, 0
	l.Postings[1].PageRank, l.Postings[1].LocalTFIDFScore, l.Postings[1].GlobalTFIDFScore = 0.9, 0, 0
	l.Postings[2].PageRank, l.Postings[2].LocalTFIDFScore, l.Postings[2].GlobalTFIDFScore = 0.5, 0, 0

	l.Sort(1, 0, 0)

	require.Len(t, l.Postings, 3)
	assert.Equal(t, 2, l.Postings[0].DocID)
	assert.Equal(t, 3, l.Postings[1].DocID)
	assert.Equal(t, 1, l.Postings[2].DocID)
}

func TestLimitTruncatesAndRebuildsIndex(t *testing.T) {
	l := New()
	l.Add(1, nil, false)
	l.Add(2, nil, false)
	l.Add(3, nil, false)

	l.Limit(2)

	assert.Equal(t, 2, l.Len())
	_, ok := l.Get(3)
	assert.False(t, ok)
}
