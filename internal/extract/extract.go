package extract

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/vita-labs/recallai/internal/domain"
)

// Extractor turns one attachment's raw bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, ref domain.AttachmentRef) (string, error)
}

// Registry dispatches extraction by media type. Unregistered types fall
// back to a placeholder so the attachment still leaves a trace in the
// index instead of vanishing silently.
type Registry struct {
	extractors map[string]Extractor
}

func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	plain := &PlainTextExtractor{}
	r.Register("text/plain", plain)
	r.Register("text/csv", plain)
	r.Register("text/markdown", plain)
	r.Register("text/html", &HTMLExtractor{})
	fitzExt := &FitzExtractor{}
	r.Register("application/pdf", fitzExt)
	r.Register("application/epub+zip", fitzExt)
	return r
}

func (r *Registry) Register(mediaType string, e Extractor) {
	r.extractors[strings.ToLower(mediaType)] = e
}

// Extract picks the extractor for ref's media type. Parameters like
// "charset=utf-8" are stripped before lookup.
func (r *Registry) Extract(ctx context.Context, data []byte, ref domain.AttachmentRef) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(ref.MediaType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	e, ok := r.extractors[mediaType]
	if !ok {
		return PlaceholderText(ref), nil
	}
	text, err := e.Extract(ctx, data, ref)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtraction,
			fmt.Sprintf("extracting %q", ref.Filename), err)
	}
	return text, nil
}

// PlaceholderText stands in for attachments nothing can read, keeping
// the unit's provenance visible in retrieval results.
func PlaceholderText(ref domain.AttachmentRef) string {
	name := ref.Filename
	if name == "" {
		name = ref.URL
	}
	return fmt.Sprintf("[unsupported attachment: %s (%s)]", name, ref.MediaType)
}

// PlainTextExtractor passes bytes through as UTF-8 text.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) Extract(_ context.Context, data []byte, _ domain.AttachmentRef) (string, error) {
	return string(data), nil
}

// HTMLExtractor strips markup and returns the visible text.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(_ context.Context, data []byte, _ domain.AttachmentRef) (string, error) {
	var b strings.Builder
	inTag := false
	for _, r := range string(data) {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// FitzExtractor reads PDF and EPUB attachments page by page.
type FitzExtractor struct{}

func (e *FitzExtractor) Extract(_ context.Context, data []byte, _ domain.AttachmentRef) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
