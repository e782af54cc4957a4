//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vita-labs/recallai/internal/api/handlers"
	"github.com/vita-labs/recallai/internal/chunk"
	"github.com/vita-labs/recallai/internal/extract"
	"github.com/vita-labs/recallai/internal/repository"
	"github.com/vita-labs/recallai/internal/server"
	"github.com/vita-labs/recallai/internal/service"
	"github.com/vita-labs/recallai/internal/storage"
	"github.com/vita-labs/recallai/internal/testutil"
)

// TestAPIToken is the shared secret the test server is started with.
const TestAPIToken = "e2e-test-token"

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server.
// The embedding and generation providers are deterministic in-process fakes,
// so tests exercise the full HTTP-to-Postgres path without external calls.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-attachments",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// WaitForChunks polls until at least one chunk derived from unitID is
// stored. Single-unit ingestion is acknowledged before embedding runs,
// so tests wait here before querying.
func (e *E2ETestEnv) WaitForChunks(unitID string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var count int
		err := e.Pool.QueryRow(e.Ctx,
			"SELECT count(*) FROM chunks WHERE $1 = ANY(source_unit_ids)", unitID).Scan(&count)
		if err == nil && count > 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("timed out waiting for chunks of unit %s", unitID)
}

// PendingDeadLetters returns the number of pending dead letter rows for
// the unit.
func (e *E2ETestEnv) PendingDeadLetters(unitID string) int {
	var count int
	err := e.Pool.QueryRow(e.Ctx,
		"SELECT count(*) FROM dead_letters WHERE unit_id = $1 AND status = 'pending'", unitID).Scan(&count)
	if err != nil {
		e.T.Fatalf("failed to count dead letters: %v", err)
	}
	return count
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// hashEmbedder maps each whitespace token onto a fixed dimension, so
// texts sharing words land near each other under cosine distance. The
// mapping is stable across processes, which keeps assertions exact.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func (hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(token, ".,!?:;\"'()")))
		vec[h.Sum32()%embeddingDims] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// stubGenerator answers with a fixed preamble so tests can distinguish
// a generated answer from the no-information fallback.
type stubGenerator struct{}

func (stubGenerator) GenerateAnswer(ctx context.Context, contextText, question string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return "", fmt.Errorf("empty context")
	}
	return "Based on prior discussion: " + question, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	ledgerRepo := repository.NewLedgerRepository(pool, 5*time.Minute)
	chunkRepo := repository.NewChunkRepository(pool)
	dlqRepo := repository.NewDeadLetterRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)

	splitter, err := chunk.NewSplitter(4000, 200)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}
	grouper, err := chunk.NewGrouper(10*time.Minute, 10)
	if err != nil {
		t.Fatalf("failed to create grouper: %v", err)
	}

	extractSvc := extract.NewService(extract.NewDownloader(10*time.Second), extract.NewRegistry(), s3Client)

	embedder := hashEmbedder{}
	ingestSvc, err := service.NewIngestService(ledgerRepo, chunkRepo, dlqRepo, embedder, extractSvc, service.IngestConfig{
		Splitter: splitter,
		Grouper:  grouper,
		PoolSize: 4,
	})
	if err != nil {
		t.Fatalf("failed to create ingest service: %v", err)
	}

	querySvc := service.NewQueryService(embedder, chunkRepo, stubGenerator{}, service.QueryConfig{
		GuildID: "guild-e2e",
	})
	adminSvc := service.NewAdminService(chunkRepo, ledgerRepo, s3Client, feedbackRepo)

	router := server.NewRouter(server.RouterConfig{
		APIToken:      TestAPIToken,
		IngestHandler: handlers.NewIngestHandler(ingestSvc),
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		AdminHandler:  handlers.NewAdminHandler(adminSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ingestSvc.Close()
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become ready within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
