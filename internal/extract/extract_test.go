package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vita-labs/recallai/internal/domain"
)

func TestRegistryPlainText(t *testing.T) {
	r := NewRegistry()
	text, err := r.Extract(context.Background(), []byte("hello world"), domain.AttachmentRef{
		URL:       "https://cdn.example.com/a.txt",
		MediaType: "text/plain; charset=utf-8",
		Filename:  "a.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestRegistryHTMLStripsTags(t *testing.T) {
	r := NewRegistry()
	text, err := r.Extract(context.Background(), []byte("<p>deploy <b>friday</b></p>"), domain.AttachmentRef{
		MediaType: "text/html",
		Filename:  "notes.html",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "deploy")
	assert.Contains(t, text, "friday")
	assert.NotContains(t, text, "<p>")
}

func TestRegistryUnknownTypePlaceholder(t *testing.T) {
	r := NewRegistry()
	ref := domain.AttachmentRef{
		MediaType: "image/png",
		Filename:  "diagram.png",
	}
	text, err := r.Extract(context.Background(), []byte{0x89, 0x50}, ref)
	require.NoError(t, err)
	assert.Equal(t, "[unsupported attachment: diagram.png (image/png)]", text)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, unitID, filename string, data []byte) error {
	args := m.Called(ctx, unitID, filename, data)
	return args.Error(0)
}

func TestExtractAllIsolatesFailures(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "https://cdn.example.com/good.txt").Return([]byte("readable"), nil)
	fetcher.On("Fetch", mock.Anything, "https://cdn.example.com/gone.txt").Return(nil, errors.New("404"))

	svc := NewService(fetcher, NewRegistry(), nil)
	results := svc.ExtractAll(context.Background(), "msg-1", []domain.AttachmentRef{
		{URL: "https://cdn.example.com/good.txt", MediaType: "text/plain", Filename: "good.txt"},
		{URL: "https://cdn.example.com/gone.txt", MediaType: "text/plain", Filename: "gone.txt"},
	})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "readable", results[0].Text)
	assert.Error(t, results[1].Err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, results[1].Err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
	fetcher.AssertExpectations(t)
}

func TestExtractAllArchivesRawBytes(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "https://cdn.example.com/a.txt").Return([]byte("payload"), nil)

	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, "msg-9", "a.txt", []byte("payload")).Return(nil)

	svc := NewService(fetcher, NewRegistry(), archiver)
	results := svc.ExtractAll(context.Background(), "msg-9", []domain.AttachmentRef{
		{URL: "https://cdn.example.com/a.txt", MediaType: "text/plain", Filename: "a.txt"},
	})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	archiver.AssertExpectations(t)
}

func TestExtractAllArchiveFailureNotFatal(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte("payload"), nil)

	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket down"))

	svc := NewService(fetcher, NewRegistry(), archiver)
	results := svc.ExtractAll(context.Background(), "msg-2", []domain.AttachmentRef{
		{URL: "https://cdn.example.com/a.txt", MediaType: "text/plain", Filename: "a.txt"},
	})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "payload", results[0].Text)
}
