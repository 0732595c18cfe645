package domain

import (
	"fmt"
	"strings"
)

const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.98
)

type SearchMode string

const (
	SearchModeExact    SearchMode = "exact"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeHybrid   SearchMode = "hybrid"
)

// ParseSearchMode accepts the three retrieval modes; an empty value means hybrid.
func ParseSearchMode(raw string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SearchModeHybrid:
		return SearchModeHybrid, nil
	case SearchModeExact:
		return SearchModeExact, nil
	case SearchModeSemantic:
		return SearchModeSemantic, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse search mode", fmt.Errorf("unknown mode %q", raw))
	}
}

type SearchRequest struct {
	Query               string     `json:"query"`
	TopK                int        `json:"top_k"`
	SimilarityThreshold *float64   `json:"similarity_threshold,omitempty"`
	Mode                SearchMode `json:"mode"`
}

// WithDefaults fills unset values: top_k 5, threshold 0.98, hybrid mode.
func (r SearchRequest) WithDefaults() SearchRequest {
	return SearchDefaults{}.Apply(r)
}

// Threshold returns the requested near-duplicate threshold. An explicit 0 is
// honoured; nil means DefaultSimilarityThreshold.
func (r SearchRequest) Threshold() float64 {
	if r.SimilarityThreshold == nil {
		return DefaultSimilarityThreshold
	}
	return *r.SimilarityThreshold
}

// SearchHit is one retrieved passage. Exact hits score 0; semantic hits carry
// the index distance, lower is closer.
type SearchHit struct {
	Title   string  `json:"title"`
	Chapter string  `json:"chapter"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

func (h SearchHit) Key() PassageKey {
	return KeyOf(h.Chapter, h.Title)
}

// Neighbor is a vector index match addressed by slot.
type Neighbor struct {
	Slot     int
	Distance float64
}

// SearchDefaults fills unset request fields. Zero defaults fall back to
// DefaultTopK, DefaultSimilarityThreshold and hybrid.
type SearchDefaults struct {
	TopK                int
	SimilarityThreshold float64
	Mode                SearchMode
}

func (d SearchDefaults) Normalize() SearchDefaults {
	if d.TopK <= 0 {
		d.TopK = DefaultTopK
	}
	if d.SimilarityThreshold <= 0 {
		d.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if d.Mode == "" {
		d.Mode = SearchModeHybrid
	}
	return d
}

// Apply fills the request's unset fields from d. Only an absent threshold
// takes the default.
func (d SearchDefaults) Apply(r SearchRequest) SearchRequest {
	d = d.Normalize()
	if r.TopK <= 0 {
		r.TopK = d.TopK
	}
	if r.SimilarityThreshold == nil {
		threshold := d.SimilarityThreshold
		r.SimilarityThreshold = &threshold
	}
	if r.Mode == "" {
		r.Mode = d.Mode
	}
	return r
}
