// Package tiered owns the six zone indexes as one set, and drives the
// two-pass corpus build: dedup + per-zone tokenization in the first pass,
// link-graph and anchor-text extraction in the second, PageRank, and the
// ordered zone merges. Grounded on
// original_source/Indexer/TieredIndex.py's build_tiered_indexes.
package tiered

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kittclouds/tinysearch/internal/dedupe"
	"github.com/kittclouds/tinysearch/internal/linkgraph"
	"github.com/kittclouds/tinysearch/internal/settings"
	"github.com/kittclouds/tinysearch/internal/tokenizer"
	"github.com/kittclouds/tinysearch/internal/zone"
)

// TieredIndexSet owns the six zone indexes, the link graph, and the
// doc_id <-> URL bijection built during BuildTieredIndexes.
type TieredIndexSet struct {
	IndexDir           string
	MaxNGram           int
	PageRankDamping    float64
	PageRankIterations int
	Tokenizer          Tokenizer
	Logger             *slog.Logger

	zones map[string]*zone.ZoneIndex
	graph *linkgraph.Graph

	docIDToURL map[int]string
	urlToDocID map[string]int
	nextDocID  int
}

// New returns a TieredIndexSet with its six zones created (but not yet
// built) under indexDir.
func New(indexDir string, maxNGram int, damping float64, iterations int) *TieredIndexSet {
	zones := make(map[string]*zone.ZoneIndex, 6)
	for name, desc := range zone.Descriptors(maxNGram) {
		zones[name] = zone.New(desc, indexDir)
	}
	return &TieredIndexSet{
		IndexDir:           indexDir,
		MaxNGram:           maxNGram,
		PageRankDamping:    damping,
		PageRankIterations: iterations,
		Tokenizer:          Default(),
		Logger:             slog.Default(),
		zones:              zones,
		docIDToURL:         make(map[int]string),
		urlToDocID:         make(map[string]int),
	}
}

// Zone returns the named zone's index, for the scorer and for tests.
func (t *TieredIndexSet) Zone(name string) *zone.ZoneIndex { return t.zones[name] }

// Load reopens a previously built TieredIndexSet from its persisted
// settings files under indexDir, for the query command's startup path.
// It never rebuilds anything: every zone must already have its settings
// snapshot on disk, and each zone is reopened Readable from it.
func Load(indexDir string, maxNGram int) (*TieredIndexSet, error) {
	ts, err := settings.LoadTiered(filepath.Join(indexDir, "tiered.settings.json"))
	if err != nil {
		return nil, fmt.Errorf("tiered: load settings: %w", err)
	}

	set := &TieredIndexSet{
		IndexDir:           indexDir,
		MaxNGram:           maxNGram,
		PageRankDamping:    ts.PageRankDamping,
		PageRankIterations: ts.PageRankIterations,
		Tokenizer:          Default(),
		Logger:             slog.Default(),
		zones:              make(map[string]*zone.ZoneIndex, len(zone.Descriptors(maxNGram))),
		graph:              linkgraph.New(),
		docIDToURL:         make(map[int]string),
		urlToDocID:         make(map[string]int),
		nextDocID:          ts.NumDocs,
	}

	for name, desc := range zone.Descriptors(maxNGram) {
		path := settings.ZonePath(indexDir, name)
		snap, err := settings.LoadZone(path)
		if err != nil {
			return nil, fmt.Errorf("tiered: load zone %s: %w", name, err)
		}
		set.zones[name] = zone.LoadFromSnapshot(desc, indexDir, *snap)
	}

	for docIDStr, url := range ts.DocIDToURL {
		var docID int
		fmt.Sscanf(docIDStr, "%d", &docID)
		set.docIDToURL[docID] = url
	}
	for url, docID := range ts.URLToDocID {
		set.urlToDocID[url] = docID
	}
	for docIDStr, targets := range ts.DocOutEdges {
		var docID int
		fmt.Sscanf(docIDStr, "%d", &docID)
		for _, target := range targets {
			set.graph.AddEdge(docID, target)
		}
	}

	return set, nil
}

// URL returns the URL for docID.
func (t *TieredIndexSet) URL(docID int) (string, bool) {
	u, ok := t.docIDToURL[docID]
	return u, ok
}

// DocID returns the doc_id for url, if it was accepted.
func (t *TieredIndexSet) DocID(url string) (int, bool) {
	id, ok := t.urlToDocID[url]
	return id, ok
}

// NumDocs returns the number of accepted documents.
func (t *TieredIndexSet) NumDocs() int { return t.nextDocID }

type acceptedDoc struct {
	docID   int
	url     string
	content string
}

// BuildTieredIndexes walks corpusDir for `*.json` CorpusEntry files in
// deterministic path order, dedups and tokenizes each in a first pass,
// extracts the link graph and anchor text in a second pass, runs
// PageRank, and merges all six zones in the fixed order full-body first,
// anchor without a reference index, everyone else against full-body. A
// zone other than full-body that received no terms is left empty instead
// of failing the build.
func (t *TieredIndexSet) BuildTieredIndexes(corpusDir string) (BuildStats, error) {
	for _, z := range t.zones {
		z.PrepForBuild()
	}
	t.graph = linkgraph.New()
	t.docIDToURL = make(map[int]string)
	t.urlToDocID = make(map[string]int)
	t.nextDocID = 0

	stats := BuildStats{
		TermsPerZone:    make(map[string]int),
		PostingsPerZone: make(map[string]int),
	}

	dedupTracker := dedupe.NewTracker()
	var accepted []acceptedDoc

	paths, err := sortedCorpusPaths(corpusDir)
	if err != nil {
		return stats, fmt.Errorf("tiered: scan corpus dir %s: %w", corpusDir, err)
	}

	for _, path := range paths {
		entry, err := loadCorpusEntry(path)
		if err != nil {
			stats.CorpusEntriesInvalid++
			t.Logger.Warn("skipping invalid corpus entry", "path", path, "error", err)
			continue
		}

		url := tokenizer.DefragURL(entry.URL)
		if _, seen := t.urlToDocID[url]; seen {
			continue
		}

		contentHash := dedupe.ContentHash(entry.Content)
		if _, dup := dedupTracker.CheckExact(contentHash); dup {
			stats.ExactDuplicatesSkipped++
			continue
		}

		simHash, err := t.Tokenizer.GetDocSimhash(entry.Content)
		if err != nil {
			stats.CorpusEntriesInvalid++
			t.Logger.Warn("simhash failed, skipping entry", "path", path, "error", err)
			continue
		}
		if matched, dup := dedupTracker.CheckNearDuplicate(simHash); dup {
			stats.NearDuplicatesSkipped++
			t.Logger.Info("near-duplicate document rejected", "url", url, "matched_doc", matched)
			continue
		}

		docID := t.nextDocID
		t.nextDocID++
		t.docIDToURL[docID] = url
		t.urlToDocID[url] = docID
		dedupTracker.Accept(docID, contentHash, simHash)
		accepted = append(accepted, acceptedDoc{docID: docID, url: url, content: entry.Content})

		zoneTerms, err := t.Tokenizer.TokenizeHTML(entry.Content, t.MaxNGram)
		if err != nil {
			return stats, fmt.Errorf("tiered: tokenize %s: %w", url, err)
		}
		if err := t.feedZone(zone.Title, docID, zoneTerms[zone.Title]); err != nil {
			return stats, err
		}
		if err := t.feedZone(zone.Header, docID, zoneTerms[zone.Header]); err != nil {
			return stats, err
		}
		if err := t.feedZone(zone.Bold, docID, zoneTerms[zone.Bold]); err != nil {
			return stats, err
		}
		// The full-body term stream feeds both limited and full-body.
		if err := t.feedZone(zone.FullBody, docID, zoneTerms[zone.FullBody]); err != nil {
			return stats, err
		}
		if err := t.feedZone(zone.Limited, docID, zoneTerms[zone.FullBody]); err != nil {
			return stats, err
		}

		stats.DocumentsAccepted++
	}

	// Second pass: link graph + anchor text, aggregated per (target, term).
	anchorCounts := make(map[int]map[string]int)
	for _, doc := range accepted {
		links, err := t.Tokenizer.GetPageLinks(doc.url, doc.content, t.MaxNGram)
		if err != nil {
			return stats, fmt.Errorf("tiered: extract links for %s: %w", doc.url, err)
		}
		for target, terms := range links {
			targetID, ok := t.urlToDocID[tokenizer.DefragURL(target)]
			if !ok {
				continue // external link, not part of the corpus
			}
			t.graph.AddEdge(doc.docID, targetID)
			if anchorCounts[targetID] == nil {
				anchorCounts[targetID] = make(map[string]int)
			}
			for term, count := range terms {
				anchorCounts[targetID][term] += count
			}
		}
	}
	for targetID, terms := range anchorCounts {
		for term, count := range terms {
			if count <= 0 {
				continue
			}
			if _, err := t.zones[zone.Anchor].AddTerm(term, targetID, make([]int, count)); err != nil {
				return stats, fmt.Errorf("tiered: add anchor term %q for doc %d: %w", term, targetID, err)
			}
		}
	}

	prByDocID := t.graph.PageRank(t.PageRankDamping, t.PageRankIterations, t.nextDocID)

	fullBody := t.zones[zone.FullBody]
	if err := fullBody.Merge(t.nextDocID, nil, prByDocID); err != nil {
		return stats, fmt.Errorf("tiered: merge %s: %w", zone.FullBody, err)
	}
	for _, name := range zone.MergeOrder {
		if name == zone.FullBody {
			continue
		}
		z := t.zones[name]
		var ref zone.Reference
		if zone.UsesReferenceIndex(name) {
			ref = fullBody
		}
		if err := z.Merge(t.nextDocID, ref, prByDocID); err != nil && !errors.Is(err, zone.ErrEmptyBuild) {
			return stats, fmt.Errorf("tiered: merge %s: %w", name, err)
		}
	}

	for name, z := range t.zones {
		stats.TermsPerZone[name] = len(z.Snapshot().PartialIndexTerms)
		for _, df := range z.DocumentFrequencies() {
			stats.PostingsPerZone[name] += df
		}
	}

	if err := t.saveSettings(); err != nil {
		return stats, err
	}

	t.Logger.Info("build complete",
		"accepted", stats.DocumentsAccepted,
		"exact_duplicates", stats.ExactDuplicatesSkipped,
		"near_duplicates", stats.NearDuplicatesSkipped,
	)
	return stats, nil
}

func (t *TieredIndexSet) feedZone(zoneName string, docID int, terms map[string][]int) error {
	z := t.zones[zoneName]
	for term, positions := range terms {
		if _, err := z.AddTerm(term, docID, positions); err != nil {
			return fmt.Errorf("tiered: add term %q to zone %s for doc %d: %w", term, zoneName, docID, err)
		}
	}
	return nil
}

func (t *TieredIndexSet) saveSettings() error {
	ts := settings.Tiered{
		ZoneSettingsFiles:  make(map[string]string, len(t.zones)),
		DocIDToURL:         make(map[string]string, len(t.docIDToURL)),
		URLToDocID:         t.urlToDocID,
		DocOutEdges:        make(map[string][]int),
		DocInEdges:         make(map[string][]int),
		NumDocs:            t.nextDocID,
		PageRankDamping:    t.PageRankDamping,
		PageRankIterations: t.PageRankIterations,
	}
	for docID, url := range t.docIDToURL {
		ts.DocIDToURL[fmt.Sprint(docID)] = url
		ts.DocOutEdges[fmt.Sprint(docID)] = []int{} // populated below if non-empty
	}
	for docID := range t.docIDToURL {
		ts.DocOutEdges[fmt.Sprint(docID)] = t.graph.OutEdges(docID)
		ts.DocInEdges[fmt.Sprint(docID)] = t.graph.InEdges(docID)
	}

	for name, z := range t.zones {
		path := settings.ZonePath(t.IndexDir, name)
		if err := settings.Save(path, z.Snapshot()); err != nil {
			return err
		}
		ts.ZoneSettingsFiles[name] = filepath.Base(path)
	}
	return settings.Save(filepath.Join(t.IndexDir, "tiered.settings.json"), ts)
}

func sortedCorpusPaths(corpusDir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func loadCorpusEntry(path string) (CorpusEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CorpusEntry{}, err
	}
	var entry CorpusEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CorpusEntry{}, err
	}
	if entry.URL == "" || entry.Content == "" || entry.Encoding == "" {
		return CorpusEntry{}, fmt.Errorf("corpus entry missing one of url/content/encoding")
	}
	return entry, nil
}
