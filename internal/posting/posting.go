// Package posting holds the per-term posting data shared by every zone
// index: the in-memory and serialized form of one term's (doc, score)
// pairs, plus the scoring and sorting operations the merge phase runs over
// them.
package posting

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// fieldDelim separates the fields of one Posting. docDelim separates
// Postings within a PostingsList. Neither character can appear in a URL
// or a stemmed term, so the final index line never needs escaping.
const (
	fieldDelim = ":"
	docDelim   = ","
	lineDelim  = "="
)

// Posting is one (term, doc) record. Score fields are -1 until a merge
// computes them; positions are nil for zones that don't store them.
type Posting struct {
	DocID             int
	DocTermFrequency  int
	LocalTFIDFScore   float64
	GlobalTFIDFScore  float64
	PageRank          float64
	TermPosList       []int
}

// NewPosting builds a raw posting straight from a term's positions in one
// document. Score fields are left unset (-1) until the merge phase computes
// them.
func NewPosting(docID int, positions []int, storePositions bool) Posting {
	p := Posting{
		DocID:            docID,
		DocTermFrequency: len(positions),
		LocalTFIDFScore:  -1,
		GlobalTFIDFScore: -1,
		PageRank:         -1,
	}
	if storePositions {
		p.TermPosList = positions
	}
	return p
}

// Dump serializes one posting as doc_id:tf:local:global:pr[:p1:p2...],
// floats rounded to three decimals per spec.
func (p Posting) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d%s%d%s%s%s%s%s%s",
		p.DocID, fieldDelim,
		p.DocTermFrequency, fieldDelim,
		formatScore(p.LocalTFIDFScore), fieldDelim,
		formatScore(p.GlobalTFIDFScore), fieldDelim,
		formatScore(p.PageRank),
	)
	for _, pos := range p.TermPosList {
		b.WriteString(fieldDelim)
		b.WriteString(strconv.Itoa(pos))
	}
	return b.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// ParsePosting reconstructs a Posting from one Dump()'d fragment.
func ParsePosting(raw string) (Posting, error) {
	parts := strings.Split(raw, fieldDelim)
	if len(parts) < 5 {
		return Posting{}, fmt.Errorf("posting: malformed fragment %q: want at least 5 fields, got %d", raw, len(parts))
	}

	docID, err := strconv.Atoi(parts[0])
	if err != nil {
		return Posting{}, fmt.Errorf("posting: bad doc_id in %q: %w", raw, err)
	}
	tf, err := strconv.Atoi(parts[1])
	if err != nil {
		return Posting{}, fmt.Errorf("posting: bad tf in %q: %w", raw, err)
	}
	local, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Posting{}, fmt.Errorf("posting: bad local tf-idf in %q: %w", raw, err)
	}
	global, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Posting{}, fmt.Errorf("posting: bad global tf-idf in %q: %w", raw, err)
	}
	pr, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return Posting{}, fmt.Errorf("posting: bad page rank in %q: %w", raw, err)
	}

	p := Posting{
		DocID:            docID,
		DocTermFrequency: tf,
		LocalTFIDFScore:  local,
		GlobalTFIDFScore: global,
		PageRank:         pr,
	}
	if len(parts) > 5 {
		p.TermPosList = make([]int, 0, len(parts)-5)
		for _, raw := range parts[5:] {
			pos, err := strconv.Atoi(raw)
			if err != nil {
				return Posting{}, fmt.Errorf("posting: bad position in %q: %w", raw, err)
			}
			p.TermPosList = append(p.TermPosList, pos)
		}
	}
	return p, nil
}

// List is the sequence of Postings for one term in one zone, plus a
// cached total term frequency and a doc_id -> Posting lookup. It is
// mutated freely during SPIMI accumulation and during merge; once a
// ZoneIndex writes it out it is read-only.
type List struct {
	TotalTermFrequency int
	Postings           []Posting

	byDoc map[int]*Posting
}

// New returns an empty List ready to accumulate postings via Add.
func New() *List {
	return &List{byDoc: make(map[int]*Posting)}
}

// Add appends one posting built from a document's positions for this
// term. Used during SPIMI accumulation, where a doc_id is only ever
// written to a zone's buffer once per flush cycle.
func (l *List) Add(docID int, positions []int, storePositions bool) {
	l.Postings = append(l.Postings, NewPosting(docID, positions, storePositions))
	l.rebuildIndex()
}

// FromFragments concatenates raw posting fragments recovered from
// multiple partial-index dump files during merge into one List,
// recomputing the total term frequency. Duplicate doc_ids across
// fragments are not expected: partial files are populated sequentially
// and a doc_id is only ever written to a zone from one partial file.
func FromFragments(rawFragments []string, storePositions bool) (*List, error) {
	l := New()
	for _, fragment := range rawFragments {
		if fragment == "" {
			continue
		}
		for _, raw := range strings.Split(fragment, docDelim) {
			p, err := ParsePosting(raw)
			if err != nil {
				return nil, err
			}
			if !storePositions {
				p.TermPosList = nil
			}
			l.Postings = append(l.Postings, p)
		}
	}
	l.rebuildIndex()
	return l, nil
}

// Parse reconstructs a full List from one final-index line's body,
// "total_tf,doc1,doc2,...".
func Parse(dumpData string, storePositions bool) (*List, error) {
	parts := strings.SplitN(dumpData, docDelim, 2)
	totalTF, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("posting: bad total term frequency in %q: %w", dumpData, err)
	}
	l := New()
	l.TotalTermFrequency = totalTF
	if len(parts) > 1 && parts[1] != "" {
		for _, raw := range strings.Split(parts[1], docDelim) {
			p, err := ParsePosting(raw)
			if err != nil {
				return nil, err
			}
			if !storePositions {
				p.TermPosList = nil
			}
			l.Postings = append(l.Postings, p)
		}
	}
	l.byDoc = make(map[int]*Posting, len(l.Postings))
	for i := range l.Postings {
		l.byDoc[l.Postings[i].DocID] = &l.Postings[i]
	}
	return l, nil
}

func (l *List) rebuildIndex() {
	l.byDoc = make(map[int]*Posting, len(l.Postings))
	l.TotalTermFrequency = 0
	for i := range l.Postings {
		l.byDoc[l.Postings[i].DocID] = &l.Postings[i]
		l.TotalTermFrequency += l.Postings[i].DocTermFrequency
	}
}

// Get returns the posting for docID, if present.
func (l *List) Get(docID int) (*Posting, bool) {
	p, ok := l.byDoc[docID]
	return p, ok
}

// DocIDs returns every doc_id with a posting in this list, in no
// particular order.
func (l *List) DocIDs() []int {
	ids := make([]int, 0, len(l.byDoc))
	for id := range l.byDoc {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the document frequency of this term in this zone.
func (l *List) Len() int {
	return len(l.byDoc)
}

// ComputeLocalTFIDF sets local_tf_idf for every posting using this
// zone's own document frequency: (1 + log10(tf)) * log10(total_docs / df).
// If copyToGlobal, the same value is also written to GlobalTFIDFScore —
// used by the full-body zone, which has no separate reference index.
func (l *List) ComputeLocalTFIDF(totalDocs int, copyToGlobal bool) {
	df := float64(l.Len())
	for i := range l.Postings {
		p := &l.Postings[i]
		val := (1 + math.Log10(float64(p.DocTermFrequency))) * math.Log10(float64(totalDocs)/df)
		p.LocalTFIDFScore = val
		if copyToGlobal {
			p.GlobalTFIDFScore = val
		}
	}
}

// MissingReferenceDocError is returned by AddGlobalTFIDF when a doc_id in
// this list has no corresponding posting in the reference list — a sign
// the full-body merge was skipped or the pipeline ran out of order.
type MissingReferenceDocError struct {
	DocID int
}

func (e *MissingReferenceDocError) Error() string {
	return fmt.Sprintf("posting: doc %d has no entry in the reference (full-body) posting list", e.DocID)
}

// AddGlobalTFIDF copies global_tf_idf from the same doc_id's posting in
// reference.
func (l *List) AddGlobalTFIDF(reference *List) error {
	for i := range l.Postings {
		p := &l.Postings[i]
		refPosting, ok := reference.Get(p.DocID)
		if !ok {
			return &MissingReferenceDocError{DocID: p.DocID}
		}
		p.GlobalTFIDFScore = refPosting.GlobalTFIDFScore
	}
	return nil
}

// SetPageRankings assigns each posting's page_rank from a dense array
// indexed by doc_id.
func (l *List) SetPageRankings(prByDocID []float64) {
	for i := range l.Postings {
		l.Postings[i].PageRank = prByDocID[l.Postings[i].DocID]
	}
}

// Sort orders postings descending by wPR*page_rank + wLocal*local_tf_idf
// + wGlobal*global_tf_idf. Ties keep their relative order (stable sort).
func (l *List) Sort(wPR, wGlobal, wLocal float64) {
	sort.SliceStable(l.Postings, func(i, j int) bool {
		return weightedScore(l.Postings[i], wPR, wGlobal, wLocal) > weightedScore(l.Postings[j], wPR, wGlobal, wLocal)
	})
	l.rebuildIndex()
}

func weightedScore(p Posting, wPR, wGlobal, wLocal float64) float64 {
	return wPR*p.PageRank + wLocal*p.LocalTFIDFScore + wGlobal*p.GlobalTFIDFScore
}

// Limit truncates to the first k postings, rebuilding the total term
// frequency and the doc_id lookup.
func (l *List) Limit(k int) {
	if k < len(l.Postings) {
		l.Postings = l.Postings[:k]
	}
	l.rebuildIndex()
}

// DumpRawPostings serializes only the raw postings (no leading total tf),
// joined by docDelim — the form stored in partial-index files.
func (l *List) DumpRawPostings() string {
	parts := make([]string, len(l.Postings))
	for i, p := range l.Postings {
		parts[i] = p.Dump()
	}
	return strings.Join(parts, docDelim)
}

// Dump serializes the whole list as "total_tf,posting1,posting2,...", the
// form written to one line of the final index file.
func (l *List) Dump() string {
	return strconv.Itoa(l.TotalTermFrequency) + docDelim + l.DumpRawPostings()
}

// LineDelim is the delimiter between a term and its serialized body on one
// line of a final or partial index file.
const LineDelim = lineDelim
