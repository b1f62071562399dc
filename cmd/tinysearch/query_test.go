package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/tinysearch/internal/scorer"
	"github.com/kittclouds/tinysearch/internal/tiered"
	"github.com/kittclouds/tinysearch/internal/tokenizer"
	"github.com/kittclouds/tinysearch/internal/zone"
)

type replStub struct{}

func (replStub) TokenizeHTML(content string, maxNGram int) (tokenizer.ZoneTerms, error) {
	words := strings.Fields(content)
	zones := make(tokenizer.ZoneTerms)
	m := make(map[string][]int)
	for i, w := range words {
		m[w] = append(m[w], i)
	}
	zones[zone.Title] = m
	zones[zone.FullBody] = m
	zones[zone.Header] = map[string][]int{}
	zones[zone.Bold] = map[string][]int{}
	return zones, nil
}

func (replStub) GetPageLinks(docURL, content string, maxNGram int) (map[string]map[string]int, error) {
	return nil, nil
}

func (replStub) GetDocSimhash(content string) (uint32, error) {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(content); i++ {
		h ^= uint32(content[i])
		h *= prime
	}
	return h, nil
}

func buildREPLCorpus(t *testing.T) *scorer.Scorer {
	t.Helper()
	corpusDir := t.TempDir()
	indexDir := t.TempDir()

	entries := []struct {
		url, content string
	}{
		{"http://ex/0", "baz"},
	}
	for i, e := range entries {
		data, err := json.Marshal(tiered.CorpusEntry{URL: e.url, Content: e.content, Encoding: "utf-8"})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(corpusDir, strconv.Itoa(i)+".json"), data, 0o644))
	}

	set := tiered.New(indexDir, 2, 0.85, 20)
	set.Tokenizer = replStub{}
	_, err := set.BuildTieredIndexes(corpusDir)
	require.NoError(t, err)
	return scorer.New(set, 2)
}

func TestRunREPLPrintsResultsForMatchingQuery(t *testing.T) {
	s := buildREPLCorpus(t)
	in := strings.NewReader("baz\n!Exit\n")
	var out strings.Builder

	err := runREPL(in, &out, s, 10)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "http://ex/0")
}

func TestRunREPLPrintsAdvisoryForNoMatch(t *testing.T) {
	s := buildREPLCorpus(t)
	in := strings.NewReader("qux\n!Exit\n")
	var out strings.Builder

	err := runREPL(in, &out, s, 10)
	require.NoError(t, err)
	assert.Contains(t, out.String(), noGoodResults)
}

func TestRunREPLNextWithNoPriorQueryIsNoOp(t *testing.T) {
	s := buildREPLCorpus(t)
	in := strings.NewReader("!Next\n!Exit\n")
	var out strings.Builder

	err := runREPL(in, &out, s, 10)
	require.NoError(t, err)
	assert.Contains(t, out.String(), noGoodResults)
}

func TestRunREPLNextPaginatesLastQuery(t *testing.T) {
	s := buildREPLCorpus(t)
	in := strings.NewReader("baz\n!Next\n!Exit\n")
	var out strings.Builder

	err := runREPL(in, &out, s, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "http://ex/0"))
}

func TestRunREPLExitStopsTheLoop(t *testing.T) {
	s := buildREPLCorpus(t)
	in := strings.NewReader("!Exit\nbaz\n")
	var out strings.Builder

	err := runREPL(in, &out, s, 10)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "http://ex/0")
}
