package apihandlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"citypulse/internal/models"
	"citypulse/internal/services"
	"citypulse/internal/store"
	"citypulse/internal/taxonomy"
)

type mockRuns struct{ mock.Mock }

func (m *mockRuns) Execute(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	args := m.Called(ctx, req)
	run, _ := args.Get(0).(*models.Run)
	return run, args.Error(1)
}

func (m *mockRuns) Enqueue(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	args := m.Called(ctx, req)
	run, _ := args.Get(0).(*models.Run)
	return run, args.Error(1)
}

func (m *mockRuns) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*models.Run)
	return run, args.Error(1)
}

func (m *mockRuns) List(ctx context.Context, limit, offset int) ([]models.RunOverview, error) {
	args := m.Called(ctx, limit, offset)
	out, _ := args.Get(0).([]models.RunOverview)
	return out, args.Error(1)
}

var defaults = models.RunRequest{
	Cities:           []string{"Singapore"},
	Pillars:          []string{taxonomy.Replicability},
	TimeWindowMonths: 12,
	ItemsPerCityCap:  100,
}

func newTestRouter(runs RunService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewAPIHandler(runs, taxonomy.Default(), taxonomy.DefaultCatalog(), defaults))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthAndCatalog(t *testing.T) {
	r := newTestRouter(new(mockRuns))

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/cities", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cities struct {
		Data []taxonomy.City `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cities))
	assert.Len(t, cities.Data, 8)
	assert.Equal(t, "New York", cities.Data[0].Name)

	w = do(r, http.MethodGet, "/api/v1/pillars", "")
	require.Equal(t, http.StatusOK, w.Code)
	var pillars struct {
		Data []taxonomy.Pillar `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pillars))
	assert.Len(t, pillars.Data, 6)
}

func TestHealthReportsStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAPIHandler(new(mockRuns), taxonomy.Default(), taxonomy.DefaultCatalog(), defaults)
	h.Ping = func(context.Context) error { return errors.New("connection refused") }
	RegisterRoutes(r, h)

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", errorCode(t, w))
}

func TestCreateRunSynchronous(t *testing.T) {
	runs := new(mockRuns)
	want := models.RunRequest{Cities: []string{"Seoul", "Bilbao"}, Pillars: defaults.Pillars, TimeWindowMonths: 3, ItemsPerCityCap: 100}
	id := uuid.New()
	runs.On("Execute", mock.Anything, want).Return(&models.Run{ID: id, Status: models.RunStatusCompleted, Request: want, Items: []models.ScoredItem{}}, nil)

	r := newTestRouter(runs)
	w := do(r, http.MethodPost, "/api/v1/runs", `{"cities":["Seoul","Bilbao"],"time_window_months":3}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data models.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Data.ID)
	runs.AssertExpectations(t)
}

func TestCreateRunUsesDefaultsWithoutBody(t *testing.T) {
	runs := new(mockRuns)
	runs.On("Execute", mock.Anything, defaults).Return(&models.Run{ID: uuid.New()}, nil)

	w := do(newTestRouter(runs), http.MethodPost, "/api/v1/runs", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	runs.AssertExpectations(t)
}

func TestCreateRunAsync(t *testing.T) {
	runs := new(mockRuns)
	id := uuid.New()
	runs.On("Enqueue", mock.Anything, defaults).Return(&models.Run{ID: id, Status: models.RunStatusQueued, Request: defaults}, nil)

	w := do(newTestRouter(runs), http.MethodPost, "/api/v1/runs?async=true", `{}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		Data models.RunOverview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Data.ID)
	assert.Equal(t, models.RunStatusQueued, resp.Data.Status)
}

func TestCreateRunErrors(t *testing.T) {
	runs := new(mockRuns)
	cfgErr := &models.ConfigurationError{Field: "cities", Reason: `unknown city "Atlantis"`, Err: models.ErrUnknownCity}
	runs.On("Execute", mock.Anything, mock.Anything).Return(nil, cfgErr)
	runs.On("Enqueue", mock.Anything, mock.Anything).Return(nil, services.ErrNoJobClient)
	r := newTestRouter(runs)

	w := do(r, http.MethodPost, "/api/v1/runs", `{"cities":["Atlantis"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/v1/runs", `{"cities":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/runs?async=true", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateRunPipelineFailure(t *testing.T) {
	runs := new(mockRuns)
	failed := &models.Run{ID: uuid.New(), Status: models.RunStatusFailed, Error: "oracle unavailable"}
	runs.On("Execute", mock.Anything, mock.Anything).Return(failed, errors.New("oracle unavailable"))
	r := newTestRouter(runs)

	w := do(r, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", errorCode(t, w))
}

func TestListRuns(t *testing.T) {
	runs := new(mockRuns)
	runs.On("List", mock.Anything, 5, 10).Return([]models.RunOverview{{ID: uuid.New()}}, nil)
	r := newTestRouter(runs)

	w := do(r, http.MethodGet, "/api/v1/runs?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":5`)

	w = do(r, http.MethodGet, "/api/v1/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	runs.AssertExpectations(t)
}

func TestGetRunAndReport(t *testing.T) {
	runs := new(mockRuns)
	id := uuid.New()
	started := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	run := &models.Run{
		ID: id, Status: models.RunStatusCompleted, StartedAt: started,
		Request:    defaults,
		Aggregates: models.Aggregates{ByCity: []models.AggregateRow{{City: "Singapore", MeanSentiment: 0.5, Count: 2}}},
	}
	runs.On("Get", mock.Anything, id).Return(run, nil)
	missing := uuid.New()
	runs.On("Get", mock.Anything, missing).Return(nil, store.ErrNotFound)
	r := newTestRouter(runs)

	w := do(r, http.MethodGet, "/api/v1/runs/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/runs/"+id.String()+"/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "| Singapore | +0.500 | 2 |")

	w = do(r, http.MethodGet, "/api/v1/runs/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))

	w = do(r, http.MethodGet, "/api/v1/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
