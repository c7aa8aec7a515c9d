package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// boundary ranks the split point after a piece. Higher is a better place to cut.
type boundary int

const (
	boundaryNone boundary = iota
	boundaryWord
	boundaryLine
	boundarySentence
	boundaryParagraph
	boundaryHeading
)

// piece is the smallest unit the planner moves between chunks.
// Pieces tile the document: pieces[i].end == pieces[i+1].start.
type piece struct {
	start, end int
	tokens     int
	atomic     bool
	after      boundary
}

// heading is a Markdown ATX heading outside code fences.
type heading struct {
	offset int
	level  int
	title  string
}

// region is a run of lines handled the same way.
type region struct {
	start, end int
	atomic     bool
}

var headingRe = regexp.MustCompile(`^ {0,3}(#{1,6})[ \t]+(.+?)[ \t#]*$`)

// segmenter splits a document into pieces for one policy.
type segmenter struct {
	text     string
	count    CountFunc
	policy   domain.ChunkingPolicy
	headings []heading

	// headingAt holds line offsets that begin a heading.
	headingAt map[int]bool
	// atomicEdge holds offsets where a kept atomic block starts or ends.
	atomicEdge map[int]bool
}

func newSegmenter(text string, count CountFunc, policy domain.ChunkingPolicy) *segmenter {
	return &segmenter{
		text:       text,
		count:      count,
		policy:     policy,
		headingAt:  make(map[int]bool),
		atomicEdge: make(map[int]bool),
	}
}

// segment returns the document's pieces with boundary strengths set.
func (s *segmenter) segment() []piece {
	var pieces []piece
	for _, r := range s.regions() {
		switch {
		case r.atomic:
			tokens := s.count(s.text[r.start:r.end])
			if tokens <= s.policy.AtomicCeilingTokens() {
				s.atomicEdge[r.start] = true
				s.atomicEdge[r.end] = true
				pieces = append(pieces, piece{start: r.start, end: r.end, tokens: tokens, atomic: true})
				continue
			}
			// Too large to keep whole: fall back to line pieces.
			pieces = append(pieces, s.linePieces(r)...)
		default:
			pieces = append(pieces, s.wordPieces(r)...)
		}
	}

	for i := range pieces {
		pieces[i].after = s.rank(pieces[i])
	}
	return s.splitOversized(pieces)
}

// regions scans lines, grouping fenced code blocks and tables into atomic regions
// and recording headings found in ordinary text.
func (s *segmenter) regions() []region {
	var (
		out      []region
		textFrom = -1
		fence    string
		fenceAt  int
		tableAt  = -1
		tableLen int
	)

	flushText := func(to int) {
		if textFrom >= 0 && to > textFrom {
			out = append(out, region{start: textFrom, end: to})
		}
		textFrom = -1
	}
	flushTable := func(to int) {
		if tableAt < 0 {
			return
		}
		if tableLen >= 2 {
			flushText(tableAt)
			out = append(out, region{start: tableAt, end: to, atomic: true})
		} else if textFrom < 0 {
			textFrom = tableAt
		}
		tableAt, tableLen = -1, 0
	}

	for off := 0; off < len(s.text); {
		end := strings.IndexByte(s.text[off:], '\n')
		if end < 0 {
			end = len(s.text)
		} else {
			end += off + 1
		}
		line := strings.TrimRight(s.text[off:end], "\r\n")
		trimmed := strings.TrimSpace(line)

		switch {
		case fence != "":
			if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
				out = append(out, region{start: fenceAt, end: end, atomic: true})
				fence = ""
			}
		case isFence(trimmed):
			flushTable(off)
			flushText(off)
			fence = trimmed[:3]
			fenceAt = off
		case strings.HasPrefix(trimmed, "|"):
			if tableAt < 0 {
				tableAt = off
			}
			tableLen++
		default:
			flushTable(off)
			if m := headingRe.FindStringSubmatch(line); m != nil {
				s.headings = append(s.headings, heading{offset: off, level: len(m[1]), title: strings.TrimSpace(m[2])})
				s.headingAt[off] = true
			}
			if textFrom < 0 {
				textFrom = off
			}
		}
		off = end
	}

	if fence != "" {
		// Unterminated fence runs to the end of the document.
		out = append(out, region{start: fenceAt, end: len(s.text), atomic: true})
	}
	flushTable(len(s.text))
	flushText(len(s.text))
	return out
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// wordPieces cuts a text region before each word that follows whitespace,
// so every piece is a word plus its trailing whitespace.
func (s *segmenter) wordPieces(r region) []piece {
	var out []piece
	from := r.start
	prevSpace := false
	for i, c := range s.text[r.start:r.end] {
		pos := r.start + i
		space := unicode.IsSpace(c)
		if !space && prevSpace && pos > from {
			out = append(out, s.newPiece(from, pos))
			from = pos
		}
		prevSpace = space
	}
	if r.end > from {
		out = append(out, s.newPiece(from, r.end))
	}
	return out
}

// linePieces cuts a demoted atomic region at line breaks.
func (s *segmenter) linePieces(r region) []piece {
	var out []piece
	for from := r.start; from < r.end; {
		end := strings.IndexByte(s.text[from:r.end], '\n')
		if end < 0 {
			end = r.end
		} else {
			end += from + 1
		}
		out = append(out, s.newPiece(from, end))
		from = end
	}
	return out
}

func (s *segmenter) newPiece(start, end int) piece {
	return piece{start: start, end: end, tokens: s.count(s.text[start:end])}
}

// rank scores the split point at the end of p under the policy's strategy.
func (s *segmenter) rank(p piece) boundary {
	b := s.naturalBoundary(p)
	switch s.policy.Strategy {
	case domain.ChunkHierarchical:
		return b
	case domain.ChunkSemantic:
		if b == boundaryHeading {
			return boundaryParagraph
		}
		return b
	case domain.ChunkFixed:
		return boundaryWord
	default:
		return b
	}
}

func (s *segmenter) naturalBoundary(p piece) boundary {
	switch {
	case p.end >= len(s.text), s.headingAt[p.end]:
		return boundaryHeading
	case s.atomicEdge[p.end], p.atomic:
		return boundaryParagraph
	}

	chunk := s.text[p.start:p.end]
	word := strings.TrimRightFunc(chunk, unicode.IsSpace)
	trailing := chunk[len(word):]

	switch {
	case strings.Count(trailing, "\n") >= 2:
		return boundaryParagraph
	case trailing != "" && endsSentence(word):
		return boundarySentence
	case strings.Contains(trailing, "\n"):
		return boundaryLine
	case trailing != "":
		return boundaryWord
	default:
		return boundaryNone
	}
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]}”’»`)
	r, _ := utf8.DecodeLastRuneInString(word)
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	default:
		return false
	}
}

// splitOversized breaks non-atomic pieces larger than the fill target into
// rune windows. Windows have no boundary between them except the original one
// at the end.
func (s *segmenter) splitOversized(pieces []piece) []piece {
	target := s.policy.TargetTokens()
	out := make([]piece, 0, len(pieces))
	for _, p := range pieces {
		if p.atomic || p.tokens <= target {
			out = append(out, p)
			continue
		}
		parts := s.bisect(p.start, p.end, target)
		for i := range parts {
			parts[i].after = boundaryNone
		}
		parts[len(parts)-1].after = p.after
		out = append(out, parts...)
	}
	return out
}

// bisect halves [start, end) on rune boundaries until every part fits target.
func (s *segmenter) bisect(start, end, target int) []piece {
	p := s.newPiece(start, end)
	if p.tokens <= target || utf8.RuneCountInString(s.text[start:end]) <= 1 {
		return []piece{p}
	}
	mid := start + (end-start)/2
	for mid > start && !utf8.RuneStart(s.text[mid]) {
		mid--
	}
	if mid == start {
		_, size := utf8.DecodeRuneInString(s.text[start:])
		mid = start + size
	}
	return append(s.bisect(start, mid, target), s.bisect(mid, end, target)...)
}

// sectionAt returns the heading path in effect at offset.
func (s *segmenter) sectionAt(offset int) []string {
	var stack []heading
	for _, h := range s.headings {
		if h.offset > offset {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)
	}
	if len(stack) == 0 {
		return nil
	}
	path := make([]string, len(stack))
	for i, h := range stack {
		path[i] = h.title
	}
	return path
}
