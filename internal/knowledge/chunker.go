package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxChunkChars = 1500
	maxChunkParas = 12
)

// TextChunk is one slice of a document's text, ready to embed.
type TextChunk struct {
	Title   string
	Ordinal int
	Text    string
}

// ChunkText splits extracted text into segments for embedding. It breaks on
// paragraph boundaries, on a paragraph-count boundary, and when a segment would
// grow past maxChunkChars. A single paragraph longer than that is split on
// line and then word boundaries.
func ChunkText(text, title string) []TextChunk {
	paras := paragraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var chunks []TextChunk
	var current []string
	size := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(current, title, len(chunks)))
		current = nil
		size = 0
	}

	for _, p := range paras {
		for _, piece := range splitLong(p, maxChunkChars) {
			// Break on size boundary.
			if len(current) > 0 && size+len(piece)+2 > maxChunkChars {
				flush()
			}
			// Break on paragraph count boundary.
			if len(current) >= maxChunkParas {
				flush()
			}
			current = append(current, piece)
			size += len(piece) + 2
		}
	}

	// Flush remaining.
	flush()

	return chunks
}

func buildChunk(paras []string, title string, idx int) TextChunk {
	t := title
	if idx > 0 {
		t = fmt.Sprintf("%s #%d", title, idx+1)
	}
	return TextChunk{Title: t, Ordinal: idx, Text: strings.Join(paras, "\n\n")}
}

// paragraphs splits on blank lines and drops empty paragraphs.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitLong cuts s into pieces of at most limit bytes, preferring line breaks
// and then spaces.
func splitLong(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}
	var out []string
	for len(s) > limit {
		cut := strings.LastIndexByte(s[:limit], '\n')
		if cut <= 0 {
			cut = strings.LastIndexByte(s[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
