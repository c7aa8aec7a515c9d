// Package chunker splits documents into token-bounded chunks that prefer
// structural boundaries and keep code blocks and tables whole.
package chunker

import (
	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure Planner implements the interface.
var _ driven.ChunkPlanner = (*Planner)(nil)

// CountFunc returns the token count of text for the planning model.
type CountFunc func(text string) int

// Planner plans chunks for one tokenizer. It holds no mutable state and is
// safe for concurrent use.
type Planner struct {
	count CountFunc
}

// New creates a planner that measures text with count.
func New(count CountFunc) *Planner {
	return &Planner{count: count}
}

// Plan splits doc under policy. The same input always yields the same chunks.
// Concatenating each chunk's NewText reproduces doc.Text.
func (p *Planner) Plan(doc domain.Document, policy domain.ChunkingPolicy) ([]domain.Chunk, error) {
	policy = policy.WithDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return []domain.Chunk{}, nil
	}

	seg := newSegmenter(doc.Text, p.count, policy)
	pieces := seg.segment()
	if len(pieces) == 0 {
		return []domain.Chunk{}, nil
	}

	w := walker{
		text:   doc.Text,
		pieces: pieces,
		policy: policy,
		count:  p.count,
	}

	var chunks []domain.Chunk
	if total := p.count(doc.Text); total <= policy.MaxTokens {
		chunks = []domain.Chunk{w.chunk(0, 0, 0, len(pieces))}
	} else {
		chunks = w.walk(total)
	}
	for i := range chunks {
		chunks[i].SectionPath = seg.sectionAt(chunks[i].StartOffset + chunks[i].OverlapBytes)
	}
	return chunks, nil
}

// walker packs pieces into chunks.
// Tokenizers do not add up across pieces (BPE merges, rounding in the
// heuristic), so every packing decision measures the joined text.
type walker struct {
	text   string
	pieces []piece
	policy domain.ChunkingPolicy
	count  CountFunc
}

// walk emits chunks left to right. start is the first piece of the current
// chunk including carried overlap; fresh is the first piece not yet emitted.
func (w *walker) walk(total int) []domain.Chunk {
	n := len(w.pieces)
	target := w.policy.TargetTokens()
	chunks := make([]domain.Chunk, 0, total/target+1)

	start, fresh := 0, 0
	for fresh < n {
		var end int
		switch {
		case w.fill(start, w.policy.MaxTokens) == n:
			end = n
		default:
			end = w.fill(start, target)
			if end <= fresh {
				if start < fresh {
					// Overlap leaves no room for new content; drop it.
					start = fresh
					continue
				}
				end = fresh + 1
			} else if end < n {
				end = w.bestCut(fresh, end, target)
			}
		}

		start, end = w.fit(start, fresh, end)
		chunks = append(chunks, w.chunk(len(chunks), start, fresh, end))

		if end >= n {
			break
		}
		start, fresh = w.overlapStart(start, end), end
	}
	return chunks
}

// fill returns the end of the longest run from start within target tokens.
// Counts grow with the span, so the end is bracketed by doubling and then
// found by binary search. Only spans near target are ever measured.
func (w *walker) fill(start, target int) int {
	n := len(w.pieces)
	lo, hi := start, n
	for step := 1; start+step <= n; step *= 2 {
		if w.measure(start, start+step) > target {
			hi = start + step - 1
			break
		}
		lo = start + step
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if w.measure(start, mid) <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// bestCut searches back from end for the strongest boundary, staying within
// the look-back window and after fresh. Ties go to the latest cut.
func (w *walker) bestCut(fresh, end, target int) int {
	window := int(float64(target) * w.policy.LookBackRatio)
	best, bestRank := end, w.pieces[end-1].after
	for k := end - 1; k > fresh; k-- {
		if w.measure(k, end) > window {
			break
		}
		if r := w.pieces[k-1].after; r > bestRank {
			best, bestRank = k, r
		}
	}
	return best
}

// fit shrinks [start, end) until its token count is within MaxTokens.
// Counters need not grow with the span, so a cut chunk is measured again
// before it is emitted. A lone piece is kept as is.
func (w *walker) fit(start, fresh, end int) (int, int) {
	for {
		if w.measure(start, end) <= w.policy.MaxTokens {
			return start, end
		}
		switch {
		case end > fresh+1:
			end--
		case start < fresh:
			start++
		default:
			return start, end
		}
	}
}

// measure counts the joined text of pieces [start, end). An empty span is zero.
func (w *walker) measure(start, end int) int {
	if end <= start {
		return 0
	}
	return w.count(w.text[w.pieces[start].start:w.pieces[end-1].end])
}

// overlapStart returns the first piece of the next chunk: the tail of the
// current chunk worth at most OverlapTokens. Atomic pieces are never repeated.
func (w *walker) overlapStart(start, end int) int {
	k := end
	for k-1 > start && !w.pieces[k-1].atomic && w.measure(k-1, end) <= w.policy.OverlapTokens {
		k--
	}
	return k
}

func (w *walker) chunk(index, start, fresh, end int) domain.Chunk {
	from, to := w.pieces[start].start, w.pieces[end-1].end
	text := w.text[from:to]

	atomic := false
	for _, pc := range w.pieces[start:end] {
		if pc.atomic {
			atomic = true
			break
		}
	}

	return domain.Chunk{
		Index:        index,
		Text:         text,
		TokenCount:   w.count(text),
		IsAtomic:     atomic,
		StartOffset:  from,
		EndOffset:    to,
		OverlapBytes: w.pieces[fresh].start - from,
	}
}
