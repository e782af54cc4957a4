package extract

import (
	"context"
	"sync"

	"github.com/vita-labs/recallai/internal/domain"
)

// Fetcher downloads attachment bytes by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Archiver keeps a durable copy of the raw attachment bytes.
type Archiver interface {
	Archive(ctx context.Context, unitID, filename string, data []byte) error
}

// Result is the outcome of one attachment's extraction. Failures travel
// as values so one broken attachment never sinks its siblings.
type Result struct {
	Ref  domain.AttachmentRef
	Text string
	Err  error
}

// Service fans out download and extraction across a unit's attachments.
type Service struct {
	fetcher  Fetcher
	registry *Registry
	archiver Archiver
}

func NewService(fetcher Fetcher, registry *Registry, archiver Archiver) *Service {
	return &Service{fetcher: fetcher, registry: registry, archiver: archiver}
}

// ExtractAll processes every attachment concurrently and returns one
// Result per input, in input order.
func (s *Service) ExtractAll(ctx context.Context, unitID string, refs []domain.AttachmentRef) []Result {
	results := make([]Result, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref domain.AttachmentRef) {
			defer wg.Done()
			results[i] = s.extractOne(ctx, unitID, ref)
		}(i, ref)
	}
	wg.Wait()
	return results
}

func (s *Service) extractOne(ctx context.Context, unitID string, ref domain.AttachmentRef) Result {
	data, err := s.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return Result{Ref: ref, Err: domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "downloading attachment", err)}
	}

	if s.archiver != nil {
		// Archival failure is not fatal; extraction already has the bytes.
		_ = s.archiver.Archive(ctx, unitID, ref.Filename, data)
	}

	text, err := s.registry.Extract(ctx, data, ref)
	if err != nil {
		return Result{Ref: ref, Err: err}
	}
	return Result{Ref: ref, Text: text}
}
