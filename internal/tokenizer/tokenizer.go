// Package tokenizer turns raw corpus HTML into the per-zone term/position
// maps the build pipeline feeds into internal/zone, and turns a raw query
// string into the same shape for internal/scorer.
//
// Splitting and stemming follow original_source/Tokenizer.py: split on
// " .,!#-", strip anything that isn't alphanumeric, lowercase, and stem.
// The original Python performs no stopword removal at all, and this
// tokenizer doesn't either — see DESIGN.md for why the two teacher
// go.mod entries that looked like a stopword dependency aren't used.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kljensen/snowball/english"
)

// ZoneTerms maps zone name -> term -> ordered positions of that term
// within the zone's token stream.
type ZoneTerms map[string]map[string][]int

var (
	splitPattern  = regexp.MustCompile(`[ .,!#\-]+`)
	filterPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// boldSelector mirrors the original Tokenizer.py's notion of "emphasized"
// text: bold, strong, emphasis and italics.
const boldSelector = "b, strong, em, i"
const headerSelector = "h1, h2, h3, h4, h5, h6"

// TokenizeHTML parses content as HTML and returns the stemmed, positioned
// n-grams (1..maxNGram) for each of the title/header/bold/full-body zones.
// The anchor zone is populated separately, by GetPageLinks plus the
// caller's own per-target aggregation (spec.md §4.3's second corpus pass).
func TokenizeHTML(content string, maxNGram int) (ZoneTerms, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	zones := make(ZoneTerms, 4)
	zones["title"] = ngramTerms(wordsOf(doc.Find("title").Text()), maxNGram)
	zones["header"] = ngramTerms(wordsOf(joinText(doc, headerSelector)), maxNGram)
	zones["bold"] = ngramTerms(wordsOf(joinText(doc, boldSelector)), maxNGram)
	zones["full-body"] = ngramTerms(wordsOf(doc.Text()), maxNGram)
	return zones, nil
}

func joinText(doc *goquery.Document, selector string) string {
	var b strings.Builder
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteString(" ")
	})
	return b.String()
}

// GetPageLinks walks every <a href> in content, resolves it against docURL
// (so relative links land on an absolute target), and tokenizes the anchor
// text. It returns target URL -> term -> occurrence count, matching
// original_source/TieredIndex.py's per-(target, term) aggregation that
// feeds the anchor zone.
func GetPageLinks(docURL, content string, maxNGram int) (map[string]map[string]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	base := defragURL(docURL)
	links := make(map[string]map[string]int)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		target := defragURL(resolveURL(base, href))
		if target == "" || target == base {
			return
		}
		terms := ngramTerms(wordsOf(s.Text()), maxNGram)
		for term := range terms {
			if links[target] == nil {
				links[target] = make(map[string]int)
			}
			links[target][term] += len(terms[term])
		}
	})
	return links, nil
}

// GetDocSimhash computes a 32-bit SimHash over the document's full-body
// unigrams, weighted by their term frequency, following the
// hash-per-feature / popcount-bucket technique in teacher
// pkg/resorank/math.go's PopCount helper.
func GetDocSimhash(content string) (uint32, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, err
	}
	freq := make(map[string]int)
	for _, w := range wordsOf(doc.Text()) {
		freq[w]++
	}

	var bitWeights [32]int
	for term, count := range freq {
		h := fnv32(term)
		for bit := 0; bit < 32; bit++ {
			if h&(1<<uint(bit)) != 0 {
				bitWeights[bit] += count
			} else {
				bitWeights[bit] -= count
			}
		}
	}

	var out uint32
	for bit := 0; bit < 32; bit++ {
		if bitWeights[bit] > 0 {
			out |= 1 << uint(bit)
		}
	}
	return out, nil
}

// TokenizeQuery splits and stems a raw query string into term -> count,
// using the same n-gram shape the build pipeline uses.
func TokenizeQuery(query string, maxNGram int) map[string]int {
	terms := ngramTerms(wordsOf(query), maxNGram)
	counts := make(map[string]int, len(terms))
	for term, positions := range terms {
		counts[term] = len(positions)
	}
	return counts
}

// wordsOf splits text the way original_source/Tokenizer.py does: split on
// " .,!#-", strip non-alphanumerics, lowercase, stem, drop empties.
func wordsOf(text string) []string {
	raw := splitPattern.Split(text, -1)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = filterPattern.ReplaceAllString(w, "")
		if w == "" {
			continue
		}
		w = strings.ToLower(w)
		stemmed := english.Stem(w, true)
		if stemmed == "" {
			continue
		}
		words = append(words, stemmed)
	}
	return words
}

// ngramTerms builds 1..maxNGram contiguous n-grams from words, positioned
// at the index of the n-gram's first token, so a posting's position list
// stays monotonically increasing within a zone.
func ngramTerms(words []string, maxNGram int) map[string][]int {
	terms := make(map[string][]int)
	if maxNGram < 1 {
		maxNGram = 1
	}
	for n := 1; n <= maxNGram; n++ {
		for i := 0; i+n <= len(words); i++ {
			term := strings.Join(words[i:i+n], " ")
			terms[term] = append(terms[term], i)
		}
	}
	return terms
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
