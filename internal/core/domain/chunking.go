package domain

import "fmt"

// ChunkStrategy selects how the planner ranks split points.
type ChunkStrategy string

// Available chunking strategies.
const (
	// ChunkHierarchical prefers headings, then paragraphs, then sentences.
	ChunkHierarchical ChunkStrategy = "hierarchical"

	// ChunkSemantic prefers paragraph and sentence boundaries and ignores heading rank.
	ChunkSemantic ChunkStrategy = "semantic"

	// ChunkFixed cuts pure token windows on word boundaries.
	ChunkFixed ChunkStrategy = "fixed"
)

// IsValid returns true if the strategy is recognised.
func (s ChunkStrategy) IsValid() bool {
	switch s {
	case ChunkHierarchical, ChunkSemantic, ChunkFixed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ChunkStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ChunkStrategy) Description() string {
	switch s {
	case ChunkHierarchical:
		return "Hierarchical (headings, paragraphs, sentences)"
	case ChunkSemantic:
		return "Semantic (paragraphs and sentences)"
	case ChunkFixed:
		return "Fixed (token windows)"
	default:
		return unknownDescription
	}
}

// ParseChunkStrategy converts a configuration string to a strategy.
func ParseChunkStrategy(s string) (ChunkStrategy, error) {
	strategy := ChunkStrategy(s)
	if !strategy.IsValid() {
		return "", &ChunkingError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", s)}
	}
	return strategy, nil
}

// AllChunkStrategies returns all available chunking strategies.
func AllChunkStrategies() []ChunkStrategy {
	return []ChunkStrategy{ChunkHierarchical, ChunkSemantic, ChunkFixed}
}

// Default planner tuning.
const (
	DefaultMaxTokens             = 1000
	DefaultOverlapTokens         = 100
	DefaultAtomicOverflowCeiling = 2.0
	DefaultTargetFillRatio       = 0.8
	DefaultLookBackRatio         = 0.25
)

// ChunkingPolicy bounds how a document is split.
type ChunkingPolicy struct {
	// Strategy selects split point ranking.
	Strategy ChunkStrategy `json:"strategy"`

	// MaxTokens is the hard per-chunk ceiling for non-atomic chunks.
	MaxTokens int `json:"max_tokens"`

	// OverlapTokens is carried from the end of one chunk to the start of the next.
	OverlapTokens int `json:"overlap_tokens"`

	// AtomicOverflowCeiling is the multiple of MaxTokens an atomic block may
	// reach before it is split at line boundaries. Must be at least 1.
	AtomicOverflowCeiling float64 `json:"atomic_overflow_ceiling"`

	// TargetFillRatio is the fraction of MaxTokens the planner aims for,
	// leaving room to back up to a better boundary.
	TargetFillRatio float64 `json:"target_fill_ratio"`

	// LookBackRatio is the fraction of the target searched backwards for a boundary.
	LookBackRatio float64 `json:"look_back_ratio"`
}

// DefaultChunkingPolicy returns a hierarchical policy with standard limits.
func DefaultChunkingPolicy() ChunkingPolicy {
	return ChunkingPolicy{
		Strategy:              ChunkHierarchical,
		MaxTokens:             DefaultMaxTokens,
		OverlapTokens:         DefaultOverlapTokens,
		AtomicOverflowCeiling: DefaultAtomicOverflowCeiling,
		TargetFillRatio:       DefaultTargetFillRatio,
		LookBackRatio:         DefaultLookBackRatio,
	}
}

// WithDefaults fills the tuning ratios when unset.
// MaxTokens, OverlapTokens and AtomicOverflowCeiling are never defaulted here.
func (p ChunkingPolicy) WithDefaults() ChunkingPolicy {
	if p.TargetFillRatio == 0 {
		p.TargetFillRatio = DefaultTargetFillRatio
	}
	if p.LookBackRatio == 0 {
		p.LookBackRatio = DefaultLookBackRatio
	}
	return p
}

// Validate reports the first reason the policy cannot be honoured.
func (p ChunkingPolicy) Validate() error {
	switch {
	case !p.Strategy.IsValid():
		return &ChunkingError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", p.Strategy)}
	case p.MaxTokens <= 0:
		return &ChunkingError{Field: "max_tokens", Reason: "must be positive"}
	case p.OverlapTokens < 0:
		return &ChunkingError{Field: "overlap_tokens", Reason: "must not be negative"}
	case p.OverlapTokens >= p.MaxTokens:
		return &ChunkingError{
			Field:  "overlap_tokens",
			Reason: fmt.Sprintf("overlap %d must be less than max %d", p.OverlapTokens, p.MaxTokens),
		}
	case p.AtomicOverflowCeiling < 1:
		return &ChunkingError{Field: "atomic_overflow_ceiling", Reason: "must be set and at least 1"}
	case p.TargetFillRatio <= 0 || p.TargetFillRatio > 1:
		return &ChunkingError{Field: "target_fill_ratio", Reason: "must be in (0, 1]"}
	case p.LookBackRatio <= 0 || p.LookBackRatio > 1:
		return &ChunkingError{Field: "look_back_ratio", Reason: "must be in (0, 1]"}
	}
	return nil
}

// TargetTokens is the fill target for a chunk.
func (p ChunkingPolicy) TargetTokens() int {
	t := int(float64(p.MaxTokens) * p.TargetFillRatio)
	if t < 1 {
		t = 1
	}
	return t
}

// AtomicCeilingTokens is the largest atomic block kept whole.
func (p ChunkingPolicy) AtomicCeilingTokens() int {
	return int(float64(p.MaxTokens) * p.AtomicOverflowCeiling)
}
