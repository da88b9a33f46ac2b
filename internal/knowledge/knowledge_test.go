package knowledge_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/supportdesk/internal/extractor"
	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/knowledge"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/testutil"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, string, extractor.Document, string) (string, error) {
	return f.text, f.err
}

type fakeEmbedder struct {
	docs    [][]string
	queries []string
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return []float32{1, 0}, nil
}

type fixture struct {
	mem *testutil.MemStore
	llm *fakeTranscriber
	emb *fakeEmbedder
	pub *testutil.Publisher
	svc *knowledge.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem: testutil.NewMemStore(),
		llm: &fakeTranscriber{},
		emb: &fakeEmbedder{},
		pub: &testutil.Publisher{},
	}
	logger := testutil.Logger()
	f.svc = knowledge.NewService(f.mem, extractor.New(f.llm, logger), f.emb, f.pub, logger)
	return f
}

func TestAddFile_TextIsIndexed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pf, err := f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{
		FileName: "faq.txt",
		Bytes:    []byte("Opening hours are 9-5.\n\nReturns within 30 days."),
		Category: "policies",
	})
	require.NoError(t, err)
	assert.Equal(t, support.FileReady, pf.Status)
	assert.Equal(t, "txt", pf.Type)
	assert.Equal(t, "policies", pf.Category)
	assert.Equal(t, "/api/v1/private/files/"+pf.ID.String()+"/content", pf.URL)

	stored, err := f.mem.GetFile(ctx, pf.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", stored.MimeType)
	assert.Equal(t, support.FileReady, stored.Status)

	require.Len(t, f.mem.Chunks, 1)
	assert.Equal(t, "org_1", f.mem.Chunks[0].Namespace)
	assert.Equal(t, "faq.txt", f.mem.Chunks[0].Title)
	assert.Len(t, f.mem.Chunks[0].Embedding, 2)

	require.Len(t, f.pub.Events, 1)
	assert.Equal(t, hermes.SubjectFileAdded, f.pub.Events[0].Subject)
	assert.Equal(t, 1, f.pub.Events[0].Data.(hermes.FileAdded).Chunks)
}

func TestAddFile_PDFUsesModel(t *testing.T) {
	f := newFixture(t)
	f.llm.text = "Warranty covers two years."

	pf, err := f.svc.AddFile(context.Background(), "org_1", knowledge.AddFileInput{
		FileName: "warranty.pdf",
		MimeType: "application/pdf",
		Bytes:    []byte("%PDF-1.7"),
	})
	require.NoError(t, err)
	assert.Equal(t, support.FileReady, pf.Status)
	require.Len(t, f.emb.docs, 1)
	assert.Equal(t, []string{"Warranty covers two years."}, f.emb.docs[0])
}

func TestAddFile_NothingExtracted(t *testing.T) {
	f := newFixture(t)

	pf, err := f.svc.AddFile(context.Background(), "org_1", knowledge.AddFileInput{
		FileName: "archive.zip",
		Bytes:    []byte("PK\x03\x04"),
	})
	require.NoError(t, err)
	assert.Equal(t, support.FileError, pf.Status)
	assert.Empty(t, f.mem.Chunks)
	assert.Empty(t, f.emb.docs)
}

func TestAddFile_ExtractionFailureKeepsFile(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("model unavailable")

	pf, err := f.svc.AddFile(context.Background(), "org_1", knowledge.AddFileInput{FileName: "scan.png", Bytes: []byte("\x89PNG")})
	require.NoError(t, err)
	assert.Equal(t, support.FileError, pf.Status)
	assert.Len(t, f.mem.Files, 1)
}

func TestAddFile_EmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.emb.err = errors.New("embedding quota")

	_, err := f.svc.AddFile(context.Background(), "org_1", knowledge.AddFileInput{FileName: "a.txt", Bytes: []byte("hello")})
	require.Error(t, err)
	require.Len(t, f.mem.Files, 1)
	assert.Equal(t, support.FileError, f.mem.Files[0].Status)
}

func TestAddFile_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "", Bytes: []byte("x")})
	assert.True(t, support.HasCode(err, support.CodeBadRequest))
	_, err = f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "a.txt"})
	assert.True(t, support.HasCode(err, support.CodeBadRequest))
	_, err = f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "big.txt", Bytes: make([]byte, knowledge.MaxFileSize+1)})
	assert.True(t, support.HasCode(err, support.CodeBadRequest))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "a.txt", Bytes: []byte("org one text")})
	require.NoError(t, err)
	_, err = f.svc.AddFile(ctx, "org_2", knowledge.AddFileInput{FileName: "b.txt", Bytes: []byte("org two text")})
	require.NoError(t, err)

	entries, err := f.svc.Search(ctx, "org_1", "  text ", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "org one text", entries[0].Text)
	assert.Equal(t, []string{"text"}, f.emb.queries)

	_, err = f.svc.Search(ctx, "org_1", " ", 5)
	assert.True(t, support.HasCode(err, support.CodeBadRequest))
}

func TestListDeleteDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "a.txt", Bytes: []byte("alpha")})
	require.NoError(t, err)
	second, err := f.svc.AddFile(ctx, "org_1", knowledge.AddFileInput{FileName: "b.md", Bytes: []byte(strings.Repeat("b", 2048))})
	require.NoError(t, err)

	page, err := f.svc.ListFiles(ctx, "org_1", support.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Page, 2)
	assert.Equal(t, second.ID, page.Page[0].ID)
	assert.Equal(t, "2 KB", page.Page[0].Size)
	assert.Equal(t, "md", page.Page[0].Type)

	file, content, err := f.svc.Download(ctx, "org_1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", file.Name)
	assert.Equal(t, []byte("alpha"), content)

	_, _, err = f.svc.Download(ctx, "org_2", first.ID)
	assert.True(t, support.HasCode(err, support.CodeNotFound))

	assert.True(t, support.HasCode(f.svc.DeleteFile(ctx, "org_2", first.ID), support.CodeNotFound))
	require.NoError(t, f.svc.DeleteFile(ctx, "org_1", first.ID))
	assert.True(t, support.HasCode(f.svc.DeleteFile(ctx, "org_1", first.ID), support.CodeNotFound))
	assert.True(t, support.HasCode(f.svc.DeleteFile(ctx, "org_1", uuid.New()), support.CodeNotFound))

	for _, c := range f.mem.Chunks {
		assert.NotEqual(t, first.ID, c.FileID)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		512:             "512 B",
		1024:            "1 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5 MB",
		1288490189:      "1.2 GB",
	}
	for n, want := range tests {
		assert.Equal(t, want, knowledge.FormatSize(n), "FormatSize(%d)", n)
	}
}

func TestGuessMimeType(t *testing.T) {
	assert.Equal(t, "text/markdown", knowledge.GuessMimeType("README.MD", nil))
	assert.Equal(t, "application/pdf", knowledge.GuessMimeType("x.pdf", nil))
	assert.Equal(t, "image/png", knowledge.GuessMimeType("noext", []byte("\x89PNG\r\n\x1a\n0000")))
	assert.Equal(t, "application/octet-stream", knowledge.GuessMimeType("noext", nil))
}
