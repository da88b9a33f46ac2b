// Package knowledge is the per-organization knowledge base: uploaded files,
// their extracted text, and vector search over the embedded chunks.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/extractor"
	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Store persists files and embedded chunks.
type Store interface {
	InsertFile(ctx context.Context, f support.File, content []byte) error
	UpdateFileStatus(ctx context.Context, id uuid.UUID, status string) error
	GetFile(ctx context.Context, id uuid.UUID) (*support.File, error)
	GetFileContent(ctx context.Context, id uuid.UUID) ([]byte, error)
	ListFiles(ctx context.Context, organizationID string, page support.PageRequest) (support.Page[support.File], error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
	InsertChunks(ctx context.Context, chunks []support.Chunk) error
	SearchChunks(ctx context.Context, namespace string, embedding []float32, limit int) ([]support.SearchEntry, error)
}

// Extractor turns a document into text.
type Extractor interface {
	Extract(ctx context.Context, doc extractor.Document) (string, error)
}

// Embedder produces vectors for documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(subject string, data any) error
}

// MaxFileSize bounds uploads.
const MaxFileSize = 20 << 20

// ContentURLPrefix is where stored file bytes are served.
const ContentURLPrefix = "/api/v1/private/files/"

// AddFileInput is an upload.
type AddFileInput struct {
	FileName string
	MimeType string
	Bytes    []byte
	Category string
}

// PublicFile is a file as listed to operators.
type PublicFile struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Size     string    `json:"size"`
	Status   string    `json:"status"`
	URL      string    `json:"url"`
	Category string    `json:"category,omitempty"`
}

type Service struct {
	store     Store
	extractor Extractor
	embedder  Embedder
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the service. publisher may be nil.
func NewService(s Store, ext Extractor, emb Embedder, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		extractor: ext,
		embedder:  emb,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddFile stores an upload, extracts its text, and indexes it in the
// organization's namespace. A file whose text cannot be extracted is kept
// with status error.
func (s *Service) AddFile(ctx context.Context, orgID string, in AddFileInput) (*PublicFile, error) {
	in.FileName = strings.TrimSpace(filepath.Base(in.FileName))
	switch {
	case in.FileName == "" || in.FileName == "." || in.FileName == "/":
		return nil, support.BadRequest("file name is required")
	case len(in.Bytes) == 0:
		return nil, support.BadRequest("file is empty")
	case len(in.Bytes) > MaxFileSize:
		return nil, support.BadRequest("file is too large")
	}

	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" || mimeType == defaultMimeType {
		mimeType = GuessMimeType(in.FileName, in.Bytes)
	}

	f := support.File{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           in.FileName,
		MimeType:       mimeType,
		Size:           int64(len(in.Bytes)),
		Category:       strings.TrimSpace(in.Category),
		Status:         support.FileProcessing,
		CreatedAt:      s.now(),
	}
	if err := s.store.InsertFile(ctx, f, in.Bytes); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	chunks, err := s.index(ctx, f, in.Bytes)
	switch {
	case err != nil:
		s.setStatus(ctx, &f, support.FileError)
		return nil, err
	case chunks == 0:
		s.setStatus(ctx, &f, support.FileError)
	default:
		s.setStatus(ctx, &f, support.FileReady)
	}

	s.logger.Info("file added", "file_id", f.ID, "organization_id", orgID, "mime_type", mimeType, "chunks", chunks, "status", f.Status)
	if s.publisher != nil {
		if err := s.publisher.Publish(hermes.SubjectFileAdded, hermes.FileAdded{
			FileID:         f.ID,
			OrganizationID: orgID,
			Name:           f.Name,
			MimeType:       f.MimeType,
			Status:         f.Status,
			Chunks:         chunks,
		}); err != nil {
			s.logger.Warn("publish event failed", "subject", hermes.SubjectFileAdded, "error", err)
		}
	}

	pf := toPublic(f)
	return &pf, nil
}

// index extracts, chunks, embeds, and stores a file's text. It returns the
// number of chunks stored. Extraction failures are logged and yield zero chunks.
func (s *Service) index(ctx context.Context, f support.File, content []byte) (int, error) {
	text, err := s.extractor.Extract(ctx, extractor.Document{FileName: f.Name, MimeType: f.MimeType, Bytes: content})
	if err != nil {
		s.logger.Warn("text extraction failed", "file_id", f.ID, "error", err)
		return 0, nil
	}

	pieces := ChunkText(text, f.Name)
	if len(pieces) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(pieces))
	}

	chunks := make([]support.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = support.Chunk{
			ID:        uuid.New(),
			FileID:    f.ID,
			Namespace: f.OrganizationID,
			Title:     p.Title,
			Ordinal:   p.Ordinal,
			Text:      p.Text,
			Embedding: vectors[i],
		}
	}
	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

func (s *Service) setStatus(ctx context.Context, f *support.File, status string) {
	f.Status = status
	if err := s.store.UpdateFileStatus(ctx, f.ID, status); err != nil {
		s.logger.Error("update file status failed", "file_id", f.ID, "status", status, "error", err)
	}
}

// Search embeds the query and returns the closest chunks in namespace.
func (s *Service) Search(ctx context.Context, namespace, query string, limit int) ([]support.SearchEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, support.BadRequest("query is required")
	}
	if limit <= 0 {
		limit = 5
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	entries, err := s.store.SearchChunks(ctx, namespace, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return entries, nil
}

// ListFiles returns the organization's files, newest first.
func (s *Service) ListFiles(ctx context.Context, orgID string, page support.PageRequest) (support.Page[PublicFile], error) {
	files, err := s.store.ListFiles(ctx, orgID, page)
	if err != nil {
		return support.Page[PublicFile]{}, fmt.Errorf("list files: %w", err)
	}
	return support.MapPage(files, toPublic), nil
}

// DeleteFile removes a file and its chunks.
func (s *Service) DeleteFile(ctx context.Context, orgID string, fileID uuid.UUID) error {
	if _, err := s.owned(ctx, orgID, fileID); err != nil {
		return err
	}
	if err := s.store.DeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return support.NotFound("File not found")
		}
		return fmt.Errorf("delete file: %w", err)
	}
	s.logger.Info("file deleted", "file_id", fileID, "organization_id", orgID)
	return nil
}

// Download returns a file's metadata and stored bytes.
func (s *Service) Download(ctx context.Context, orgID string, fileID uuid.UUID) (*support.File, []byte, error) {
	f, err := s.owned(ctx, orgID, fileID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.store.GetFileContent(ctx, fileID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, support.NotFound("File not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get file content: %w", err)
	}
	return f, content, nil
}

// owned loads a file; a file in another organization looks missing.
func (s *Service) owned(ctx context.Context, orgID string, fileID uuid.UUID) (*support.File, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && f.OrganizationID != orgID) {
		return nil, support.NotFound("File not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func toPublic(f support.File) PublicFile {
	return PublicFile{
		ID:       f.ID,
		Name:     f.Name,
		Type:     fileType(f),
		Size:     FormatSize(f.Size),
		Status:   f.Status,
		URL:      ContentURLPrefix + f.ID.String() + "/content",
		Category: f.Category,
	}
}

// fileType is the lower-case extension, or the MIME subtype when there is none.
func fileType(f support.File) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), "."); ext != "" {
		return ext
	}
	if _, sub, ok := strings.Cut(f.MimeType, "/"); ok && sub != "" {
		return sub
	}
	return "unknown"
}

// FormatSize renders a byte count with one decimal, e.g. "1.5 KB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + " " + units[i]
}
