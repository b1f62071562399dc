package zone

// Descriptor is the static configuration for one zone, fixed by
// spec.md's zone table (title, anchor, header, bold, limited, full-body).
type Descriptor struct {
	Name                  string
	MaxNGram              int
	StorePositions        bool
	PostingsListSizeLimit int // 0 means unbounded
	WeightPageRank        float64
	WeightGlobalTFIDF     float64
	WeightLocalTFIDF      float64
}

// Names of the six fixed zones, in the tier priority order the scorer
// walks them.
const (
	Title    = "title"
	Anchor   = "anchor"
	Header   = "header"
	Bold     = "bold"
	Limited  = "limited"
	FullBody = "full-body"
)

// Descriptors returns the six zone descriptors keyed by zone name. The map
// has no order; MergeOrder gives the order the zones are merged in.
func Descriptors(maxNGram int) map[string]Descriptor {
	return map[string]Descriptor{
		Title: {
			Name: Title, MaxNGram: maxNGram, StorePositions: false,
			PostingsListSizeLimit: 70,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.20, WeightLocalTFIDF: 0.40,
		},
		Anchor: {
			Name: Anchor, MaxNGram: maxNGram, StorePositions: false,
			PostingsListSizeLimit: 90,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.00, WeightLocalTFIDF: 0.60,
		},
		Header: {
			Name: Header, MaxNGram: maxNGram, StorePositions: true,
			PostingsListSizeLimit: 120,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.20, WeightLocalTFIDF: 0.40,
		},
		Bold: {
			Name: Bold, MaxNGram: maxNGram, StorePositions: true,
			PostingsListSizeLimit: 150,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.20, WeightLocalTFIDF: 0.40,
		},
		Limited: {
			Name: Limited, MaxNGram: maxNGram, StorePositions: true,
			PostingsListSizeLimit: 200,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.60, WeightLocalTFIDF: 0.00,
		},
		FullBody: {
			Name: FullBody, MaxNGram: maxNGram, StorePositions: true,
			PostingsListSizeLimit: 0,
			WeightPageRank:        0.40, WeightGlobalTFIDF: 0.60, WeightLocalTFIDF: 0.00,
		},
	}
}

// MergeOrder is the fixed order zones are merged in: full-body establishes
// global TF-IDF for everyone else, anchor never references it.
var MergeOrder = []string{FullBody, Title, Anchor, Header, Bold, Limited}

// UsesReferenceIndex reports whether zone z is merged against the
// full-body index's global TF-IDF, or computes its own (full-body itself,
// and anchor, which scores on local TF-IDF only).
func UsesReferenceIndex(zoneName string) bool {
	return zoneName != FullBody && zoneName != Anchor
}
