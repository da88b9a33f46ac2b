package knowledge

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const defaultMimeType = "application/octet-stream"

// extensionTypes covers document types the platform MIME table often lacks.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".htm":      "text/html",
	".html":     "text/html",
	".pdf":      "application/pdf",
}

// GuessMimeType guesses from the file extension, then from the contents, then
// falls back to application/octet-stream. Parameters such as charset are dropped.
func GuessMimeType(fileName string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return baseType(mt)
		}
	}
	if len(content) > 0 {
		if mt := baseType(http.DetectContentType(content)); mt != "" {
			return mt
		}
	}
	return defaultMimeType
}

func baseType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.TrimSpace(strings.SplitN(mt, ";", 2)[0])
}
