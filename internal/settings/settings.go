// Package settings persists the JSON snapshot every ZoneIndex and the
// owning TieredIndexSet write alongside their index files, so a later
// process can reopen a built index without re-running the build pipeline.
// Grounded on the teacher's own plain-struct, json-tag idiom
// (internal/store/models.go, pkg/resorank/types.go) rather than a
// third-party codec — no pack example reaches for one for this kind of
// snapshot.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Zone is one ZoneIndex's persisted state: enough to reopen the final
// index file for random-access lookup, or to resume an interrupted build
// from its partial-index files.
type Zone struct {
	IndexFileName            string                      `json:"index_file_name"`
	IndexFileTermLUT         map[string]int64            `json:"index_file_term_lut"`
	DocumentFrequency        map[string]int              `json:"document_frequency"`
	DocumentTermCounts       map[string]int              `json:"document_term_counts"`
	PartialIndexTerms        []string                    `json:"partial_index_terms"`
	PartialIndexFileNames    []string                    `json:"partial_index_file_names"`
	PartialIndexFilesTermLUT map[string]map[string]int64 `json:"partial_index_files_term_lut"`
	PartialIndexFileCounter  int                         `json:"partial_index_file_counter"`
}

// Tiered is the TieredIndexSet's persisted state: which settings file
// belongs to each zone, the doc_id<->url bijection, the link graph edge
// sets, and the build parameters needed to reproduce PageRank if the set
// is rebuilt incrementally.
type Tiered struct {
	ZoneSettingsFiles  map[string]string  `json:"zone_settings_files"`
	DocIDToURL         map[string]string  `json:"doc_id_to_url"`
	URLToDocID         map[string]int     `json:"url_to_doc_id"`
	DocOutEdges        map[string][]int   `json:"doc_out_edges"`
	DocInEdges         map[string][]int   `json:"doc_in_edges"`
	NumDocs            int                `json:"num_docs"`
	PageRankDamping    float64            `json:"page_rank_damping"`
	PageRankIterations int                `json:"page_rank_iterations"`
}

// Save writes v as indented JSON to path, via a temp file renamed into
// place, so a crash mid-write never leaves a half-written settings file —
// the same atomic-write policy the final index files use.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("settings: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// LoadZone reads and decodes a Zone settings snapshot from path.
func LoadZone(path string) (*Zone, error) {
	var z Zone
	if err := load(path, &z); err != nil {
		return nil, err
	}
	return &z, nil
}

// LoadTiered reads and decodes a Tiered settings snapshot from path.
func LoadTiered(path string) (*Tiered, error) {
	var ts Tiered
	if err := load(path, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("settings: unmarshal %s: %w", path, err)
	}
	return nil
}

// ZonePath returns the conventional settings file path for a zone's
// index file: the same name with a .settings.json suffix instead of the
// index extension.
func ZonePath(indexDir, zoneName string) string {
	return filepath.Join(indexDir, zoneName+".settings.json")
}
