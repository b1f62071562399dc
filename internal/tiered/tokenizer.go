package tiered

import "github.com/kittclouds/tinysearch/internal/tokenizer"

// Tokenizer is the collaborator contract BuildTieredIndexes drives the
// corpus through. It is satisfied both by the real internal/tokenizer
// package (via Default()) and by a test fake, matching spec.md §8's
// instruction to exercise the end-to-end build+query scenarios with an
// in-memory fake tokenizer rather than real HTML/stemming.
type Tokenizer interface {
	TokenizeHTML(content string, maxNGram int) (tokenizer.ZoneTerms, error)
	GetPageLinks(docURL, content string, maxNGram int) (map[string]map[string]int, error)
	GetDocSimhash(content string) (uint32, error)
}

type defaultTokenizer struct{}

// Default returns the Tokenizer backed by the real goquery/snowball
// implementation in internal/tokenizer.
func Default() Tokenizer { return defaultTokenizer{} }

func (defaultTokenizer) TokenizeHTML(content string, maxNGram int) (tokenizer.ZoneTerms, error) {
	return tokenizer.TokenizeHTML(content, maxNGram)
}

func (defaultTokenizer) GetPageLinks(docURL, content string, maxNGram int) (map[string]map[string]int, error) {
	return tokenizer.GetPageLinks(docURL, content, maxNGram)
}

func (defaultTokenizer) GetDocSimhash(content string) (uint32, error) {
	return tokenizer.GetDocSimhash(content)
}
