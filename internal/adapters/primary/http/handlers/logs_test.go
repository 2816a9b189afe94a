package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
	"studio-service/internal/core/services"
	"studio-service/internal/testutil"
)

func TestListLogs(t *testing.T) {
	f := setupRouter(t, true)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []*domain.GenerationLog{
		{ID: uuid.New(), RequestID: "req-1", UserID: "u", Status: domain.LogStatusCompleted, Step: "done", Details: map[string]any{}, CreatedAt: created},
		{ID: uuid.New(), RequestID: "req-1", UserID: "u", Status: domain.LogStatusStarted, Step: "start", Details: map[string]any{}, CreatedAt: created.Add(-time.Minute)},
		{ID: uuid.New(), RequestID: "req-2", UserID: "u", Status: domain.LogStatusFailed, Step: "start", Details: map[string]any{}, CreatedAt: created.Add(-time.Hour)},
	}
	f.logRepo.On("List", mock.Anything, ports.GenerationLogFilter{
		Status: domain.LogStatusCompleted, Limit: 10, Offset: 5,
	}).Return(rows, 42, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/logs?status=completed&limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	assert.Equal(t, float64(42), resp["count"])
	assert.Equal(t, float64(10), resp["limit"])
	assert.Equal(t, float64(5), resp["offset"])
	assert.Equal(t, true, resp["tableExists"])
	assert.Len(t, resp["logs"], 3)

	grouped := resp["groupedLogs"].(map[string]interface{})
	assert.Len(t, grouped["req-1"], 2)
	assert.Len(t, grouped["req-2"], 1)
	f.logRepo.AssertExpectations(t)
}

func TestListLogs_TableMissing(t *testing.T) {
	f := setupRouter(t, true)
	f.logRepo.On("List", mock.Anything, mock.Anything).Return(nil, 0, domain.ErrLogTableMissing)

	req, _ := http.NewRequest(http.MethodGet, "/api/logs", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["tableExists"])
	assert.Equal(t, []interface{}{}, resp["logs"])
	assert.NotEmpty(t, resp["message"])
}

func TestListLogs_BadPagination(t *testing.T) {
	f := setupRouter(t, true)

	for _, q := range []string{"limit=ten", "offset=-1", "limit=-5"} {
		req, _ := http.NewRequest(http.MethodGet, "/api/logs?"+q, nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	f.logRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListLogs_StoreDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := new(testutil.MockProviderClient)
	logSvc := services.NewGenerationLogService(nil)
	h := New(
		services.NewFineTuningService(provider, services.NewFileService(provider), logSvc),
		services.NewCheckpointService(provider, t.TempDir()),
		logSvc,
		true,
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	r.GET("/healthz", h.Healthz)

	req, _ := http.NewRequest(http.MethodGet, "/api/logs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaveToGallery(t *testing.T) {
	f := setupRouter(t, true)

	entry := &domain.GenerationLog{
		ID:        uuid.New(),
		RequestID: "req-1",
		Status:    domain.LogStatusCompleted,
		Details:   map[string]any{"seed": float64(7)},
	}
	f.logRepo.On("LatestCompleted", mock.Anything, "req-1").Return(entry, nil)
	f.logRepo.On("UpdateDetails", mock.Anything, entry.ID, mock.MatchedBy(func(d map[string]any) bool {
		return d[domain.DetailSavedToGallery] == true && d["seed"] == float64(7) && d[domain.DetailSavedAt] != nil
	})).Return(nil)

	body := bytes.NewBufferString(`{"requestId":"req-1","imageUrl":"https://img.example/1.png"}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/gallery/save", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Image saved to gallery successfully", resp["message"])
	assert.Equal(t, "https://img.example/1.png", resp["imageUrl"])
	f.logRepo.AssertExpectations(t)
}

func TestSaveToGallery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(r *testutil.MockGenerationLogRepo)
		wantStatus int
	}{
		{
			name:       "missing request id",
			body:       `{"imageUrl":"https://img.example/1.png"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing image url",
			body:       `{"requestId":"req-1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"requestId":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no completed row",
			body: `{"requestId":"req-9","imageUrl":"https://img.example/1.png"}`,
			setup: func(r *testutil.MockGenerationLogRepo) {
				r.On("LatestCompleted", mock.Anything, "req-9").Return(nil, domain.ErrLogNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "table missing",
			body: `{"requestId":"req-1","imageUrl":"https://img.example/1.png"}`,
			setup: func(r *testutil.MockGenerationLogRepo) {
				r.On("LatestCompleted", mock.Anything, "req-1").Return(nil, domain.ErrLogTableMissing)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "store failure",
			body: `{"requestId":"req-1","imageUrl":"https://img.example/1.png"}`,
			setup: func(r *testutil.MockGenerationLogRepo) {
				r.On("LatestCompleted", mock.Anything, "req-1").Return(nil, errors.New("connection reset"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupRouter(t, true)
			if tt.setup != nil {
				tt.setup(f.logRepo)
			}

			req, _ := http.NewRequest(http.MethodPost, "/api/gallery/save", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestHealthz(t *testing.T) {
	f := setupRouter(t, true)
	f.logRepo.On("Ping", mock.Anything).Return(nil).Once()
	f.logRepo.On("Ping", mock.Anything).Return(errors.New("dial tcp: refused")).Once()

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["status"])
}
