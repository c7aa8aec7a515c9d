package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Document is extracted text ready for chunking.
// Fetching and format conversion happen before a Document exists.
type Document struct {
	// Text is the full extracted text (plain or Markdown).
	Text string

	// Metadata contains arbitrary key-value pairs such as title or URI.
	Metadata map[string]string
}

// Identity returns a content address for the document.
// Two documents with the same text share an identity regardless of metadata.
func (d Document) Identity() string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:])
}

// IsEmpty returns true if the document has no non-whitespace text.
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// Chunk is a token-bounded slice of a document.
type Chunk struct {
	// Index is the 0-based position within the document.
	Index int

	// Text is the chunk content, including any leading overlap.
	Text string

	// TokenCount is the token count of Text for the planning model.
	TokenCount int

	// SectionPath is the heading hierarchy in effect where the chunk starts.
	SectionPath []string

	// IsAtomic marks a code block or table kept whole.
	// Only atomic chunks may exceed the policy's MaxTokens.
	IsAtomic bool

	// StartOffset and EndOffset are byte offsets of Text in the document.
	StartOffset int
	EndOffset   int

	// OverlapBytes is the length of the prefix repeated from the previous chunk.
	OverlapBytes int
}

// NewText returns the part of the chunk not shared with its predecessor.
func (c Chunk) NewText() string {
	return c.Text[c.OverlapBytes:]
}

// Reconstruct rebuilds the source text from an ordered chunk list.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.NewText())
	}
	return b.String()
}
