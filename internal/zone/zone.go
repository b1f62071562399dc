// Package zone implements ZoneIndex, the SPIMI-style external-merge
// inverted index for one zone (title, anchor, header, bold, limited, or
// full-body). Grounded on original_source/Indexer/Index.py's merge
// algorithm and partial-file bookkeeping, restated in Go using the
// teacher's own plain-struct-plus-json idiom for the persisted state.
package zone

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kittclouds/tinysearch/internal/posting"
	"github.com/kittclouds/tinysearch/internal/settings"
)

// State is one point in a ZoneIndex's Fresh -> Building -> MergePending ->
// Merged -> Readable lifecycle.
type State int

const (
	StateFresh State = iota
	StateBuilding
	StateMergePending
	StateMerged
	StateReadable
)

// MaxPartialPositions bounds the SPIMI buffer: add_term flushes once the
// running position count crosses this. spec.md gives "~5-10M" as the
// real-world bound; this constant sits at the low end of that range.
const MaxPartialPositions = 5_000_000

type partialFile struct {
	name    string
	termLUT map[string]int64
}

// ZoneIndex is one zone's inverted index, from first SPIMI buffer through
// merge to a readable final index file.
type ZoneIndex struct {
	Desc     Descriptor
	IndexDir string

	state State

	buffer          map[string]*posting.List
	bufferPositions int

	partialIndexTerms map[string]struct{}
	partialFiles      []partialFile
	partialFileCounter int

	indexFileName      string
	indexFileTermLUT   map[string]int64
	documentFrequency  map[string]int
	documentTermCounts map[int]int
}

// New returns a ZoneIndex in state Fresh for desc, rooted at indexDir.
func New(desc Descriptor, indexDir string) *ZoneIndex {
	return &ZoneIndex{
		Desc:     desc,
		IndexDir: indexDir,
		state:    StateFresh,
	}
}

// LoadFromSnapshot reconstructs a Readable ZoneIndex from a previously
// persisted settings.Zone, for the query command's startup path — it
// never rebuilds a zone, only reopens one whose final index file
// already exists on disk.
func LoadFromSnapshot(desc Descriptor, indexDir string, snap settings.Zone) *ZoneIndex {
	z := New(desc, indexDir)
	z.indexFileName = snap.IndexFileName
	z.indexFileTermLUT = snap.IndexFileTermLUT
	z.documentFrequency = snap.DocumentFrequency
	z.documentTermCounts = make(map[int]int, len(snap.DocumentTermCounts))
	for docIDStr, count := range snap.DocumentTermCounts {
		var docID int
		fmt.Sscanf(docIDStr, "%d", &docID)
		z.documentTermCounts[docID] = count
	}
	z.state = StateReadable
	return z
}

// State returns the zone's current lifecycle state.
func (z *ZoneIndex) State() State { return z.state }

// PrepForBuild resets all partial-index bookkeeping and moves the zone to
// Building. The final index file, if any, is left untouched until Merge
// replaces it — re-entering Building via PrepForBuild discards prior
// partials but not a previously readable final index.
func (z *ZoneIndex) PrepForBuild() {
	z.buffer = make(map[string]*posting.List)
	z.bufferPositions = 0
	z.partialIndexTerms = make(map[string]struct{})
	z.partialFiles = nil
	z.partialFileCounter = 0
	z.documentFrequency = make(map[string]int)
	z.documentTermCounts = make(map[int]int)
	z.state = StateBuilding
}

// AddTerm appends one posting to term's in-memory SPIMI buffer for docID.
// It returns whether this call triggered a flush to a new partial file.
func (z *ZoneIndex) AddTerm(term string, docID int, positions []int) (flushed bool, err error) {
	if z.state != StateBuilding {
		return false, fmt.Errorf("%w: AddTerm requires Building, zone is in state %d", ErrWrongState, z.state)
	}

	list, ok := z.buffer[term]
	if !ok {
		list = posting.New()
		z.buffer[term] = list
	}
	list.Add(docID, positions, z.Desc.StorePositions)
	z.partialIndexTerms[term] = struct{}{}

	if z.Desc.StorePositions {
		z.bufferPositions += len(positions)
	} else {
		z.bufferPositions++
	}
	z.documentTermCounts[docID] += len(positions)
	z.documentFrequency[term]++

	if z.bufferPositions >= MaxPartialPositions {
		if err := z.flush(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// flush writes the current SPIMI buffer to a new partial-index file and
// clears it. A flush of an empty buffer is a no-op — spec.md normalizes
// the original's unconditional re-dump bug to "flush if non-empty".
func (z *ZoneIndex) flush() error {
	if len(z.buffer) == 0 {
		return nil
	}

	name := fmt.Sprintf("%s.partial.%d", z.Desc.Name, z.partialFileCounter)
	path := filepath.Join(z.IndexDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("zone %s: create partial file %s: %w", z.Desc.Name, path, err)
	}
	defer f.Close()

	terms := sortedKeys(z.buffer)
	lut := make(map[string]int64, len(terms))
	w := bufio.NewWriter(f)
	var offset int64
	for _, term := range terms {
		line := term + posting.LineDelim + z.buffer[term].DumpRawPostings() + "\n"
		lut[term] = offset
		n, err := w.WriteString(line)
		if err != nil {
			return fmt.Errorf("zone %s: write partial file %s: %w", z.Desc.Name, path, err)
		}
		offset += int64(n)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("zone %s: flush partial file %s: %w", z.Desc.Name, path, err)
	}

	z.partialFiles = append(z.partialFiles, partialFile{name: name, termLUT: lut})
	z.partialFileCounter++
	z.buffer = make(map[string]*posting.List)
	z.bufferPositions = 0
	return nil
}

// Reference is the interface Merge uses to pull global TF-IDF scores
// from another, already-merged zone (the full-body index). It is
// satisfied by *ZoneIndex itself.
type Reference interface {
	Retrieve(term string) (*posting.List, error)
}

// Merge flushes any residual SPIMI buffer, then for every term ever
// recorded streams its raw posting fragments out of every partial file,
// builds the merged PostingsList, computes local TF-IDF, attaches global
// TF-IDF (copied from reference if provided, else copied from local),
// attaches PageRank, sorts, optionally truncates, and writes the final
// index file with a term -> offset table. docCount is the total accepted
// document count used in the local TF-IDF formula; prByDocID is a dense
// PageRank array indexed by doc_id. If no term was ever recorded, Merge
// leaves the zone Readable with no terms and returns ErrEmptyBuild.
func (z *ZoneIndex) Merge(docCount int, reference Reference, prByDocID []float64) error {
	if z.state != StateBuilding {
		return fmt.Errorf("%w: Merge requires Building, zone is in state %d", ErrWrongState, z.state)
	}
	if err := z.flush(); err != nil {
		return err
	}
	z.state = StateMergePending

	if len(z.partialIndexTerms) == 0 {
		z.indexFileTermLUT = make(map[string]int64)
		z.state = StateReadable
		return ErrEmptyBuild
	}

	finalName := z.Desc.Name + ".index"
	finalPath := filepath.Join(z.IndexDir, finalName)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("zone %s: create final index %s: %w", z.Desc.Name, tmpPath, err)
	}
	w := bufio.NewWriter(f)

	terms := sortedKeysSet(z.partialIndexTerms)
	termLUT := make(map[string]int64, len(terms))
	var offset int64

	for _, term := range terms {
		fragments, err := z.collectFragments(term)
		if err != nil {
			f.Close()
			return err
		}
		list, err := posting.FromFragments(fragments, z.Desc.StorePositions)
		if err != nil {
			f.Close()
			return fmt.Errorf("%w: zone %s, term %q: %v", ErrIndexCorrupt, z.Desc.Name, term, err)
		}

		list.ComputeLocalTFIDF(docCount, reference == nil)
		if reference != nil {
			refList, err := reference.Retrieve(term)
			if err != nil {
				f.Close()
				return fmt.Errorf("zone %s: reference lookup for term %q: %w", z.Desc.Name, term, err)
			}
			if err := list.AddGlobalTFIDF(refList); err != nil {
				f.Close()
				return err
			}
		}
		list.SetPageRankings(prByDocID)
		list.Sort(z.Desc.WeightPageRank, z.Desc.WeightGlobalTFIDF, z.Desc.WeightLocalTFIDF)
		if z.Desc.PostingsListSizeLimit > 0 {
			list.Limit(z.Desc.PostingsListSizeLimit)
		}
		z.documentFrequency[term] = list.Len()

		line := term + posting.LineDelim + list.Dump() + "\n"
		termLUT[term] = offset
		n, err := w.WriteString(line)
		if err != nil {
			f.Close()
			return fmt.Errorf("zone %s: write final index %s: %w", z.Desc.Name, tmpPath, err)
		}
		offset += int64(n)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("zone %s: flush final index %s: %w", z.Desc.Name, tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("zone %s: close final index %s: %w", z.Desc.Name, tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("zone %s: rename %s to %s: %w", z.Desc.Name, tmpPath, finalPath, err)
	}

	z.indexFileName = finalName
	z.indexFileTermLUT = termLUT
	z.state = StateMerged
	z.state = StateReadable
	return nil
}

func (z *ZoneIndex) collectFragments(term string) ([]string, error) {
	fragments := make([]string, 0, len(z.partialFiles))
	for _, pf := range z.partialFiles {
		offset, ok := pf.termLUT[term]
		if !ok {
			continue
		}
		foundTerm, fragment := readFragmentAt(filepath.Join(z.IndexDir, pf.name), offset)
		if foundTerm != term {
			return nil, fmt.Errorf("%w: partial file %s offset for %q resolved to term %q", ErrIndexCorrupt, pf.name, term, foundTerm)
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

// readFragmentAt reads one line starting at offset in the file at path and
// returns the term prefix before the "=" delimiter and the raw postings
// after it. Errors are swallowed into an empty term and body; callers
// report that as ErrIndexCorrupt, collectFragments through the term
// mismatch and Retrieve through the empty body.
func readFragmentAt(path string, offset int64) (string, string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()
	if _, err := f.Seek(offset, 0); err != nil {
		return "", ""
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return "", ""
	}
	line := scanner.Text()
	idx := strings.Index(line, posting.LineDelim)
	if idx < 0 {
		return "", ""
	}
	return line[:idx], line[idx+len(posting.LineDelim):]
}

// Contains reports whether term exists in the merged, readable index.
func (z *ZoneIndex) Contains(term string) bool {
	if z.state != StateReadable {
		return false
	}
	_, ok := z.indexFileTermLUT[term]
	return ok
}

// Retrieve performs a random-access lookup of term in the final index
// file, valid only once the zone is Readable.
func (z *ZoneIndex) Retrieve(term string) (*posting.List, error) {
	if z.state != StateReadable {
		return nil, fmt.Errorf("%w: Retrieve requires Readable, zone is in state %d", ErrWrongState, z.state)
	}
	offset, ok := z.indexFileTermLUT[term]
	if !ok {
		return nil, fmt.Errorf("%w: %q in zone %s", ErrTermNotFound, term, z.Desc.Name)
	}

	path := filepath.Join(z.IndexDir, z.indexFileName)
	foundTerm, raw := readFragmentAt(path, offset)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty body for term %q in zone %s", ErrIndexCorrupt, term, z.Desc.Name)
	}
	if foundTerm != term {
		return nil, fmt.Errorf("%w: offset for %q in zone %s resolved to term %q", ErrIndexCorrupt, term, z.Desc.Name, foundTerm)
	}
	return posting.Parse(raw, z.Desc.StorePositions)
}

// DocumentFrequency returns the zone's document frequency for term, or 0
// if the term was never recorded.
func (z *ZoneIndex) DocumentFrequency(term string) int {
	return z.documentFrequency[term]
}

// DocumentFrequencies returns the zone's whole term -> document-frequency
// map, corresponding to original_source/Indexer/Index.py's
// document_term_counts field. The scorer's query-vector IDF computation
// uses this map's size as its "N" and per-term entries as "df", exactly
// as the original does — not the corpus document count, a quirk spec.md
// doesn't flag as a bug, so it's preserved as observed.
func (z *ZoneIndex) DocumentFrequencies() map[string]int {
	return z.documentFrequency
}

// DocumentTermCount returns the total number of term occurrences
// recorded for docID across every term added in this zone.
func (z *ZoneIndex) DocumentTermCount(docID int) int {
	return z.documentTermCounts[docID]
}

// Snapshot captures the zone's persisted state for a settings file.
func (z *ZoneIndex) Snapshot() settings.Zone {
	s := settings.Zone{
		IndexFileName:           z.indexFileName,
		IndexFileTermLUT:        z.indexFileTermLUT,
		DocumentFrequency:       z.documentFrequency,
		PartialIndexFileCounter: z.partialFileCounter,
	}
	s.DocumentTermCounts = make(map[string]int, len(z.documentTermCounts))
	for docID, count := range z.documentTermCounts {
		s.DocumentTermCounts[fmt.Sprint(docID)] = count
	}
	s.PartialIndexTerms = sortedKeysSet(z.partialIndexTerms)
	s.PartialIndexFilesTermLUT = make(map[string]map[string]int64, len(z.partialFiles))
	for _, pf := range z.partialFiles {
		s.PartialIndexFileNames = append(s.PartialIndexFileNames, pf.name)
		s.PartialIndexFilesTermLUT[pf.name] = pf.termLUT
	}
	return s
}

func sortedKeys(m map[string]*posting.List) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysSet(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
