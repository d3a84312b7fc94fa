// Package chunker splits markdown and plain-text documents into
// retrieval-sized chunks that carry their document and section name.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the nominal upper bound of a chunk, in characters.
const DefaultMaxLength = 500

// titleFallbackLength caps synthetic titles taken from a heading-less first line.
const titleFallbackLength = 50

// Metadata keys stamped on every chunk.
const (
	KeyDocumentName = "document_name"
	KeySection      = "section"
)

// Chunk is a contiguous span of a document selected for independent retrieval.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// DocumentName returns the owning document's name.
func (c Chunk) DocumentName() string { return c.Metadata[KeyDocumentName] }

// Section returns the section title, with a "(part n)" suffix for sub-chunks.
func (c Chunk) Section() string { return c.Metadata[KeySection] }

// Chunker splits documents on second-level markdown headings and packs
// oversized sections paragraph by paragraph.
type Chunker struct {
	maxLength int
}

// New creates a Chunker. A non-positive maxLength selects DefaultMaxLength.
func New(maxLength int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Chunker{maxLength: maxLength}
}

// MaxLength returns the configured chunk bound.
func (c *Chunker) MaxLength() int { return c.maxLength }

// Chunk splits text into chunks. Every returned chunk has non-empty trimmed
// text. A single paragraph longer than MaxLength is emitted whole.
func (c *Chunker) Chunk(text, documentName string) []Chunk {
	var chunks []Chunk
	for _, section := range splitSections(text) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		title := sectionTitle(section)
		if utf8.RuneCountInString(section) <= c.maxLength {
			chunks = append(chunks, newChunk(section, documentName, title))
			continue
		}

		for i, part := range packParagraphs(section, c.maxLength) {
			chunks = append(chunks, newChunk(part, documentName, fmt.Sprintf("%s (part %d)", title, i+1)))
		}
	}
	return chunks
}

func newChunk(text, documentName, section string) Chunk {
	return Chunk{
		Text: text,
		Metadata: map[string]string{
			KeyDocumentName: documentName,
			KeySection:      section,
		},
	}
}

// splitSections cuts text immediately before every line that starts with
// "## ". Content ahead of the first heading forms its own section.
func splitSections(text string) []string {
	lines := strings.SplitAfter(text, "\n")

	var sections []string
	var cur strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") && cur.Len() > 0 {
			sections = append(sections, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		sections = append(sections, cur.String())
	}
	return sections
}

func sectionTitle(section string) string {
	first, _, _ := strings.Cut(section, "\n")
	first = strings.TrimSpace(first)

	switch {
	case strings.HasPrefix(first, "## "):
		return strings.TrimSpace(first[3:])
	case strings.HasPrefix(first, "# "):
		return strings.TrimSpace(first[2:])
	}

	if utf8.RuneCountInString(first) <= titleFallbackLength {
		return first
	}
	return string([]rune(first)[:titleFallbackLength])
}

// packParagraphs greedily groups blank-line separated paragraphs so that
// each group stays within maxLength, except for paragraphs that alone exceed it.
func packParagraphs(text string, maxLength int) []string {
	var parts []string
	var buf string

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if buf != "" && utf8.RuneCountInString(buf)+utf8.RuneCountInString(para)+2 > maxLength {
			parts = append(parts, strings.TrimSpace(buf))
			buf = para
			continue
		}
		if buf == "" {
			buf = para
		} else {
			buf += "\n\n" + para
		}
	}

	if strings.TrimSpace(buf) != "" {
		parts = append(parts, strings.TrimSpace(buf))
	}
	return parts
}
