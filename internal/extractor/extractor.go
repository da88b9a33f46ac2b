// Package extractor turns uploaded knowledge-base documents into plain text.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Document is a file handed to a model for transcription.
type Document struct {
	FileName string
	MimeType string
	Bytes    []byte
}

// Transcriber is a model that can read a document and answer in text.
type Transcriber interface {
	Transcribe(ctx context.Context, system string, doc Document, instruction string) (string, error)
}

// Kind is how a MIME type is extracted.
type Kind string

const (
	KindImage       Kind = "image"
	KindPDF         Kind = "pdf"
	KindHTML        Kind = "html"
	KindText        Kind = "text"
	KindUnsupported Kind = "unsupported"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// KindOf classifies a MIME type. Parameters such as charset are ignored.
func KindOf(mimeType string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case imageTypes[mt]:
		return KindImage
	case strings.Contains(mt, "pdf"):
		return KindPDF
	case strings.Contains(mt, "html"):
		return KindHTML
	case strings.HasPrefix(mt, "text/"), mt == "application/json", mt == "application/xml":
		return KindText
	default:
		return KindUnsupported
	}
}

type Extractor struct {
	llm    Transcriber
	logger *slog.Logger
}

func New(llm Transcriber, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract returns the text content of a document. Unsupported types yield "".
func (e *Extractor) Extract(ctx context.Context, doc Document) (string, error) {
	kind := KindOf(doc.MimeType)

	e.logger.Info("extracting text",
		"file_name", doc.FileName,
		"mime_type", doc.MimeType,
		"kind", kind,
		"bytes", len(doc.Bytes),
	)

	var (
		text string
		err  error
	)
	switch kind {
	case KindImage:
		text, err = e.llm.Transcribe(ctx, imageSystemPrompt, doc, "")
	case KindPDF:
		text, err = e.llm.Transcribe(ctx, pdfSystemPrompt, doc, pdfInstruction)
	case KindHTML:
		text, err = e.llm.Transcribe(ctx, htmlSystemPrompt, doc, "")
	case KindText:
		if !utf8.Valid(doc.Bytes) {
			return "", fmt.Errorf("extract %s: content is not valid UTF-8", doc.FileName)
		}
		text = string(doc.Bytes)
	default:
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", doc.FileName, err)
	}

	text = strings.TrimSpace(text)
	e.logger.Info("extraction complete", "file_name", doc.FileName, "text_len", len(text))
	return text, nil
}
