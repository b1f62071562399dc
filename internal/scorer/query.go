package scorer

import (
	"math"
	"sort"

	"github.com/kittclouds/tinysearch/internal/zone"
)

// scoreQuery tokenizes query and builds its L2-normalized TF-IDF vector
// over the full-body index's term -> document-frequency map, matching
// original_source/Scorer.py's __score_query. Terms absent from the
// full-body index are dropped — they can never match any zone.
func (s *Scorer) scoreQuery(query string) (map[string]float64, []string, error) {
	counts := s.Tokenizer(query, s.MaxNGram)
	full := s.Set.Zone(zone.FullBody)
	dfByTerm := full.DocumentFrequencies()
	vocabSize := len(dfByTerm)

	terms := make([]string, 0, len(counts))
	for term, count := range counts {
		df, ok := dfByTerm[term]
		if !ok || df == 0 || count == 0 {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	raw := make(map[string]float64, len(terms))
	for _, term := range terms {
		c := counts[term]
		df := dfByTerm[term]
		raw[term] = (1 + math.Log10(float64(c))) * math.Log10(float64(vocabSize)/float64(df))
	}

	norm := 0.0
	for _, v := range raw {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	scored := make(map[string]float64, len(terms))
	for _, term := range terms {
		if norm > 0 {
			scored[term] = raw[term] / norm
		} else {
			scored[term] = 0
		}
	}
	return scored, terms, nil
}
