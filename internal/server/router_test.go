package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vita-labs/recallai/internal/api/handlers"
	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/service"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) IngestUnit(ctx context.Context, unit domain.ContentUnit) (domain.IngestStatus, error) {
	args := m.Called(ctx, unit)
	return args.Get(0).(domain.IngestStatus), args.Error(1)
}

func (m *MockIngestService) IngestBatch(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome {
	args := m.Called(ctx, units)
	return args.Get(0).([]service.UnitOutcome)
}

func (m *MockIngestService) IngestThread(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome {
	args := m.Called(ctx, units)
	return args.Get(0).([]service.UnitOutcome)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Answer(ctx context.Context, req service.QueryRequest) (*domain.Answer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) DeleteUnit(ctx context.Context, unitID string) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminService) RedactUnit(ctx context.Context, unitID string) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminService) RecordFeedback(ctx context.Context, entry *domain.FeedbackEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func setupRouter() (http.Handler, *MockIngestService, *MockQueryService, *MockAdminService) {
	ingestSvc := new(MockIngestService)
	querySvc := new(MockQueryService)
	adminSvc := new(MockAdminService)

	cfg := RouterConfig{
		APIToken:      "test-token",
		IngestHandler: handlers.NewIngestHandler(ingestSvc),
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		AdminHandler:  handlers.NewAdminHandler(adminSvc),
	}

	return NewRouter(cfg), ingestSvc, querySvc, adminSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/ingest"},
		{http.MethodPost, "/ingest/batch"},
		{http.MethodPost, "/ingest/thread"},
		{http.MethodPost, "/query"},
		{http.MethodPost, "/feedback"},
		{http.MethodPost, "/admin/delete"},
		{http.MethodPost, "/admin/redact"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_IngestWithValidAuth(t *testing.T) {
	router, ingestSvc, _, _ := setupRouter()

	ingestSvc.On("IngestUnit", mock.Anything, mock.Anything).Return(domain.IngestAccepted, nil)

	payload, err := json.Marshal(service.UnitRequest{
		UnitID:    "msg-1",
		ChannelID: "chan-1",
		AuthorID:  "author-1",
		Content:   "deploy notes",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	ingestSvc.AssertExpectations(t)
}

func TestRouter_QueryWithValidAuth(t *testing.T) {
	router, _, querySvc, _ := setupRouter()

	querySvc.On("Answer", mock.Anything, mock.Anything).Return(domain.EmptyAnswer(), nil)

	payload, err := json.Marshal(map[string]string{"question": "anything?"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	querySvc.AssertExpectations(t)
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(make([]byte, 16)))
	req.ContentLength = 10 * 1024 * 1024
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
