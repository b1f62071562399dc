// Package scorer implements the tiered query evaluator: incremental tier
// expansion over the six zones, zone-weighted TF-IDF + PageRank fusion,
// and full/limited-index pagination. Grounded on
// original_source/Scorer.py, restated with the teacher's error-return
// idiom instead of Python exceptions.
package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/kittclouds/tinysearch/internal/posting"
	"github.com/kittclouds/tinysearch/internal/tiered"
	"github.com/kittclouds/tinysearch/internal/tokenizer"
	"github.com/kittclouds/tinysearch/internal/zone"
)

// tierWeight pairs a zone name with its score multiplier in the tiered
// cascade, in the fixed priority order spec.md §4.4 specifies.
type tierWeight struct {
	zone   string
	weight float64
}

var tiers = []tierWeight{
	{zone.Title, 8.0},
	{zone.Anchor, 7.0},
	{zone.Header, 5.0},
	{zone.Bold, 4.0},
	{zone.Limited, 1.0},
}

// fullBodyDocFrequencyThreshold is the per-term document-frequency
// threshold complete_search uses to decide between the uncapped
// full-body index and the capped limited index for pagination.
const fullBodyDocFrequencyThreshold = 600

// Scorer evaluates queries against a built TieredIndexSet.
type Scorer struct {
	Set       *tiered.TieredIndexSet
	MaxNGram  int
	Tokenizer func(query string, maxNGram int) map[string]int

	returnedResults map[int]struct{}
	currentResults  map[int]float64
}

// New returns a Scorer over set, ready to run queries once set has been
// built and merged.
func New(set *tiered.TieredIndexSet, maxNGram int) *Scorer {
	return &Scorer{
		Set:             set,
		MaxNGram:        maxNGram,
		Tokenizer:       tokenizer.TokenizeQuery,
		returnedResults: make(map[int]struct{}),
		currentResults:  make(map[int]float64),
	}
}

// NewSearch clears the set of doc_ids recorded as returned by prior
// searches. SprintSearch and CompleteSearch only record doc_ids in that
// set; neither excludes them from its results.
func (s *Scorer) NewSearch() {
	s.returnedResults = make(map[int]struct{})
}

// SprintSearch runs the tiered cascade title -> anchor -> header -> bold
// -> limited, stopping as soon as k results have accumulated, and
// returns result URLs ordered by descending fused score, the way
// original_source/Scorer.py resolves doc_ids through doc_id_to_url_LUT
// before handing results back to the caller. An empty result means no
// zone matched any query term — the "no good results" case.
func (s *Scorer) SprintSearch(query string, k int) ([]string, error) {
	scoredQuery, queryTerms, err := s.scoreQuery(query)
	if err != nil {
		return nil, err
	}
	if len(queryTerms) == 0 {
		return nil, nil
	}

	s.currentResults = make(map[int]float64)
	for _, tier := range tiers {
		z := s.Set.Zone(tier.zone)
		sub, err := s.searchZone(z, queryTerms, scoredQuery, tier.weight, k)
		if err != nil {
			return nil, err
		}
		for docID, score := range sub {
			s.currentResults[docID] = score
		}
		for docID := range sub {
			s.returnedResults[docID] = struct{}{}
		}
		if len(s.currentResults) >= k {
			break
		}
	}
	return s.resultURLs(), nil
}

// CompleteSearch re-runs query against the uncapped full-body index if
// every query term's document frequency there is below
// fullBodyDocFrequencyThreshold, else against the capped limited index —
// the !Next pagination path. Results are URLs, as in SprintSearch.
func (s *Scorer) CompleteSearch(query string, k int) ([]string, error) {
	scoredQuery, queryTerms, err := s.scoreQuery(query)
	if err != nil {
		return nil, err
	}
	if len(queryTerms) == 0 {
		return nil, nil
	}

	full := s.Set.Zone(zone.FullBody)
	useFullBody := true
	for _, term := range queryTerms {
		if full.DocumentFrequency(term) >= fullBodyDocFrequencyThreshold {
			useFullBody = false
			break
		}
	}
	zoneName := zone.Limited
	if useFullBody {
		zoneName = zone.FullBody
	}

	s.currentResults, err = s.searchZone(s.Set.Zone(zoneName), queryTerms, scoredQuery, 1.0, k)
	if err != nil {
		return nil, err
	}
	for docID := range s.currentResults {
		s.returnedResults[docID] = struct{}{}
	}
	return s.resultURLs(), nil
}

func (s *Scorer) orderedResults() []int {
	ids := make([]int, 0, len(s.currentResults))
	for id := range s.currentResults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.currentResults[ids[i]] != s.currentResults[ids[j]] {
			return s.currentResults[ids[i]] > s.currentResults[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// resultURLs resolves orderedResults' doc_ids to URLs via the index
// set's doc_id_to_url lookup, matching original_source/Scorer.py's
// doc_id_to_url_LUT[doc_id] resolution before results leave the scorer.
// A doc_id with no known URL is dropped rather than surfaced as a blank
// result.
func (s *Scorer) resultURLs() []string {
	ids := s.orderedResults()
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.Set.URL(id); ok {
			urls = append(urls, u)
		}
	}
	return urls
}

// searchZone ranks every doc_id with at least one query-term posting in
// z, processing candidates in descending matching-term-count order and
// stopping once k scores have accumulated — mirroring
// original_source/Scorer.py's _search exactly, including its mid-loop
// early exit (a doc that would cross the threshold is never scored).
func (s *Scorer) searchZone(z *zone.ZoneIndex, queryTerms []string, scoredQuery map[string]float64, weight float64, k int) (map[int]float64, error) {
	if z == nil || z.State() != zone.StateReadable {
		return map[int]float64{}, nil
	}

	termLists := make(map[string]*posting.List, len(queryTerms))
	for _, term := range queryTerms {
		if !z.Contains(term) {
			continue
		}
		list, err := z.Retrieve(term)
		if err != nil {
			return nil, fmt.Errorf("scorer: retrieve %q from zone %s: %w", term, z.Desc.Name, err)
		}
		termLists[term] = list
	}
	if len(termLists) == 0 {
		return map[int]float64{}, nil
	}

	candidates := rankCandidates(termLists)

	results := make(map[int]float64)
	scores := make([]float64, len(queryTerms))
	for _, docID := range candidates {
		if len(results) >= k {
			return results, nil
		}
		for i, term := range queryTerms {
			list, ok := termLists[term]
			if !ok {
				scores[i] = 0
				continue
			}
			p, ok := list.Get(docID)
			if !ok {
				scores[i] = 0
				continue
			}
			qWeight := scoredQuery[term]
			scores[i] = p.GlobalTFIDFScore*qWeight*z.Desc.WeightGlobalTFIDF +
				p.LocalTFIDFScore*qWeight*z.Desc.WeightLocalTFIDF +
				p.PageRank*qWeight*z.Desc.WeightPageRank
		}
		norm := l2Norm(scores)
		var docScore float64
		if norm > 0 {
			for _, sc := range scores {
				docScore += sc / norm
			}
			docScore *= weight
		}
		results[docID] += docScore
	}
	return results, nil
}

// rankCandidates returns every doc_id present in at least one of
// termLists' postings, ordered by descending count of matching query
// terms, then ascending doc_id for determinism.
func rankCandidates(termLists map[string]*posting.List) []int {
	matchCount := make(map[int]int)
	for _, list := range termLists {
		for _, docID := range list.DocIDs() {
			matchCount[docID]++
		}
	}
	ids := make([]int, 0, len(matchCount))
	for id := range matchCount {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if matchCount[ids[i]] != matchCount[ids[j]] {
			return matchCount[ids[i]] > matchCount[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func l2Norm(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum)
}
