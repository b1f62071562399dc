package tiered

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/tinysearch/internal/tokenizer"
	"github.com/kittclouds/tinysearch/internal/zone"
)

// fakeTokenizer replaces the real goquery/snowball pipeline with a plain
// whitespace tokenizer and caller-supplied links/simhashes, so build
// tests don't depend on real HTML parsing or stemming, per spec.md §8's
// instruction to exercise the end-to-end scenarios with an in-memory
// fake tokenizer.
type fakeTokenizer struct {
	links   map[string]map[string]map[string]int // docURL -> target -> term -> count
	simhash map[string]uint32                    // content -> forced simhash
}

func newFakeTokenizer() *fakeTokenizer {
	return &fakeTokenizer{
		links:   make(map[string]map[string]map[string]int),
		simhash: make(map[string]uint32),
	}
}

func (f *fakeTokenizer) TokenizeHTML(content string, maxNGram int) (tokenizer.ZoneTerms, error) {
	words := strings.Fields(content)
	zones := make(tokenizer.ZoneTerms)
	zones[zone.Title] = positions(words)
	// Full body is the title text repeated, per spec.md's toy-corpus shape.
	zones[zone.FullBody] = positions(append(append([]string{}, words...), words...))
	zones[zone.Header] = map[string][]int{}
	zones[zone.Bold] = map[string][]int{}
	return zones, nil
}

func (f *fakeTokenizer) GetPageLinks(docURL, content string, maxNGram int) (map[string]map[string]int, error) {
	return f.links[docURL], nil
}

func (f *fakeTokenizer) GetDocSimhash(content string) (uint32, error) {
	if h, ok := f.simhash[content]; ok {
		return h, nil
	}
	return fnv32(content), nil
}

func positions(words []string) map[string][]int {
	m := make(map[string][]int)
	for i, w := range words {
		m[w] = append(m[w], i)
	}
	return m
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

func writeCorpusFile(t *testing.T, dir string, n int, url, content string) {
	t.Helper()
	entry := CorpusEntry{URL: url, Content: content, Encoding: "utf-8"}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, strconv.Itoa(n)+".json"), data, 0o644))
}

func buildToyCorpus(t *testing.T) (*TieredIndexSet, BuildStats) {
	t.Helper()
	corpusDir := t.TempDir()
	indexDir := t.TempDir()

	writeCorpusFile(t, corpusDir, 0, "http://ex/0", "foo")
	writeCorpusFile(t, corpusDir, 1, "http://ex/1", "bar foo")
	writeCorpusFile(t, corpusDir, 2, "http://ex/2", "baz")

	ft := newFakeTokenizer()
	ft.links["http://ex/0"] = map[string]map[string]int{
		"http://ex/1": {"next": 1},
		"http://ex/2": {"more": 1},
	}
	ft.links["http://ex/1"] = map[string]map[string]int{
		"http://ex/2": {"more": 1},
	}

	set := New(indexDir, 2, 0.85, 20)
	set.Tokenizer = ft

	stats, err := set.BuildTieredIndexes(corpusDir)
	require.NoError(t, err)
	return set, stats
}

func TestBuildTieredIndexesAcceptsAllDocs(t *testing.T) {
	set, stats := buildToyCorpus(t)
	assert.Equal(t, 3, stats.DocumentsAccepted)
	assert.Equal(t, 3, set.NumDocs())

	for _, name := range []string{zone.Title, zone.Anchor, zone.Header, zone.Bold, zone.Limited, zone.FullBody} {
		assert.Equal(t, zone.StateReadable, set.Zone(name).State(), "zone %s", name)
	}
}

func TestBuildTieredIndexesAssignsSequentialDocIDs(t *testing.T) {
	set, _ := buildToyCorpus(t)
	for i, url := range []string{"http://ex/0", "http://ex/1", "http://ex/2"} {
		id, ok := set.DocID(url)
		require.True(t, ok)
		assert.Equal(t, i, id)
		gotURL, ok := set.URL(id)
		require.True(t, ok)
		assert.Equal(t, url, gotURL)
	}
}

func TestBuildTieredIndexesRejectsExactDuplicate(t *testing.T) {
	corpusDir := t.TempDir()
	indexDir := t.TempDir()
	writeCorpusFile(t, corpusDir, 0, "http://ex/0", "foo")
	writeCorpusFile(t, corpusDir, 1, "http://ex/1", "bar foo")
	writeCorpusFile(t, corpusDir, 2, "http://ex/2", "baz")
	writeCorpusFile(t, corpusDir, 3, "http://ex/3", "bar foo") // byte-identical to doc 1

	set := New(indexDir, 2, 0.85, 20)
	set.Tokenizer = newFakeTokenizer()

	stats, err := set.BuildTieredIndexes(corpusDir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentsAccepted)
	assert.Equal(t, 1, stats.ExactDuplicatesSkipped)
	_, ok := set.DocID("http://ex/3")
	assert.False(t, ok)
}

func TestBuildTieredIndexesRejectsNearDuplicate(t *testing.T) {
	corpusDir := t.TempDir()
	indexDir := t.TempDir()
	writeCorpusFile(t, corpusDir, 0, "http://ex/0", "foo")
	writeCorpusFile(t, corpusDir, 1, "http://ex/1", "bar foo")
	writeCorpusFile(t, corpusDir, 2, "http://ex/2", "baz")
	writeCorpusFile(t, corpusDir, 3, "http://ex/3", "bar foo plus") // distinct content, forced near-dup simhash

	ft := newFakeTokenizer()
	ft.simhash["bar foo"] = 0b1010
	ft.simhash["bar foo plus"] = 0b1011 // exactly one bit different

	set := New(indexDir, 2, 0.85, 20)
	set.Tokenizer = ft

	stats, err := set.BuildTieredIndexes(corpusDir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentsAccepted)
	assert.Equal(t, 1, stats.NearDuplicatesSkipped)
	_, ok := set.DocID("http://ex/3")
	assert.False(t, ok)
}

func TestBuildTieredIndexesPopulatesAnchorZoneFromLinks(t *testing.T) {
	set, _ := buildToyCorpus(t)
	anchor := set.Zone(zone.Anchor)

	// doc 1 ("http://ex/1") is linked to by doc 0 with anchor term "next",
	// and by nobody else with that term: exactly one posting.
	list, err := anchor.Retrieve("next")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
	p, ok := list.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, p.DocTermFrequency)

	// doc 2 is linked to by both doc 0 and doc 1 with "more": aggregated
	// to a single posting with tf 2, not two postings.
	list, err = anchor.Retrieve("more")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
	p, ok = list.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, p.DocTermFrequency)
}
