package nebius

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-service/internal/config"
	"studio-service/internal/core/domain"
	ports "studio-service/internal/core/ports/output"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
}

func TestNewClient_NormalizesBaseURL(t *testing.T) {
	c := NewClient(&config.ProviderConfig{APIKey: "k"})
	assert.Equal(t, config.DefaultProviderBaseURL, c.baseURL)
	assert.Equal(t, 120*time.Second, c.client.Timeout)

	c = NewClient(&config.ProviderConfig{APIKey: "k", BaseURL: "http://x/v1"})
	assert.Equal(t, "http://x/v1/", c.baseURL)
}

func TestClient_MissingAPIKeyFailsBeforeIO(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(&config.ProviderConfig{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.UploadFile(ctx, domain.UploadedFile{Name: "a.jsonl", Content: []byte("{}")}, "")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	_, err = c.GetFile(ctx, "file-1")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	_, err = c.CreateFineTuningJob(ctx, &ports.CreateJobRequest{Model: "m", TrainingFile: "f"})
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	_, err = c.ListFineTuningJobEvents(ctx, "job-1")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)

	assert.False(t, called)
}

func TestClient_UploadFile(t *testing.T) {
	var gotPurpose, gotName, gotBody, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/files", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPurpose = r.FormValue("purpose")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotName = hdr.Filename
		b, _ := io.ReadAll(f)
		gotBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-abc","object":"file","bytes":12,"filename":"train.jsonl","purpose":"fine-tune","status":"uploaded"}`))
	})

	pf, err := c.UploadFile(context.Background(), domain.UploadedFile{Name: "train.jsonl", Content: []byte(`{"messages":[]}`)}, "")
	require.NoError(t, err)

	assert.Equal(t, "file-abc", pf.ID)
	assert.False(t, pf.Processed())
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "fine-tune", gotPurpose)
	assert.Equal(t, "train.jsonl", gotName)
	assert.Equal(t, `{"messages":[]}`, gotBody)
}

func TestClient_UploadFile_RemovesStagingOnFailure(t *testing.T) {
	before := stagingDirs(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.UploadFile(context.Background(), domain.UploadedFile{Name: "t.jsonl", Content: []byte("x")}, domain.FilePurposeFineTune)
	require.Error(t, err)

	assert.Equal(t, before, stagingDirs(t))
}

func stagingDirs(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "studio-upload-*"))
	require.NoError(t, err)
	return matches
}

func TestClient_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		hasEnvelope bool
		message     string
		param       string
	}{
		{
			name:        "structured error",
			status:      http.StatusBadRequest,
			body:        `{"error":{"message":"Invalid file format","type":"invalid_request_error","param":"training_file","code":"bad_file"}}`,
			hasEnvelope: true,
			message:     "Invalid file format",
			param:       "training_file",
		},
		{
			name:        "error without message uses raw JSON",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":"x"}}`,
			hasEnvelope: true,
			message:     `{"code":"x"}`,
		},
		{
			name:        "string error",
			status:      http.StatusUnauthorized,
			body:        `{"error":"bad key"}`,
			hasEnvelope: true,
			message:     "bad key",
		},
		{
			name:   "no envelope",
			status: http.StatusBadGateway,
			body:   `upstream unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateFineTuningJob(context.Background(), &ports.CreateJobRequest{Model: "m", TrainingFile: "f"})
			require.Error(t, err)

			var perr *ports.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, http.StatusText(tt.status), perr.StatusText())
			assert.Equal(t, tt.hasEnvelope, perr.HasEnvelope)
			assert.Equal(t, tt.message, perr.Message)
			assert.Equal(t, tt.param, perr.Param)
			assert.Equal(t, tt.body, string(perr.Body))
		})
	}
}

func TestClient_CreateFineTuningJob_Body(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fine_tuning/jobs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"ftjob-1","model":"meta-llama/Llama-3.1-8B-Instruct","status":"validating_files","created_at":1700000000,"training_file":"file-t"}`))
	})

	bs := 4
	job, err := c.CreateFineTuningJob(context.Background(), &ports.CreateJobRequest{
		TrainingFile:    "file-t",
		Model:           "meta-llama/Llama-3.1-8B-Instruct",
		Hyperparameters: &ports.JobHyperparameters{BatchSize: &bs},
	})
	require.NoError(t, err)

	assert.Equal(t, "ftjob-1", job.ID)
	assert.Equal(t, int64(1700000000), job.CreatedAt)
	assert.Equal(t, map[string]any{
		"training_file":   "file-t",
		"model":           "meta-llama/Llama-3.1-8B-Instruct",
		"hyperparameters": map[string]any{"batch_size": float64(4)},
	}, got)
}

func TestClient_JobReads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/fine_tuning/jobs/ftjob-1":
			_, _ = w.Write([]byte(`{"id":"ftjob-1","status":"running","model":"m","created_at":1}`))
		case "/v1/fine_tuning/jobs/ftjob-1/events":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"ev-1","created_at":2,"level":"info","message":"Job started"}],"has_more":false}`))
		case "/v1/fine_tuning/jobs/ftjob-1/checkpoints":
			_, _ = w.Write([]byte(`{"object":"list"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	job, err := c.GetFineTuningJob(ctx, "ftjob-1")
	require.NoError(t, err)
	assert.Equal(t, "running", job.Status)

	events, err := c.ListFineTuningJobEvents(ctx, "ftjob-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Job started", events[0].Message)

	checkpoints, err := c.ListFineTuningJobCheckpoints(ctx, "ftjob-1")
	require.NoError(t, err)
	assert.NotNil(t, checkpoints)
	assert.Empty(t, checkpoints)

	_, err = c.GetFineTuningJob(ctx, "missing")
	var perr *ports.ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
}

func TestClient_FileReads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/content"):
			_, _ = w.Write([]byte("binary-bytes"))
		default:
			_, _ = w.Write([]byte(`{"id":"file-1","status":"processed"}`))
		}
	})
	ctx := context.Background()

	pf, err := c.GetFile(ctx, "file-1")
	require.NoError(t, err)
	assert.True(t, pf.Processed())

	content, err := c.DownloadFileContent(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "binary-bytes", string(content))
}

func TestClient_ListReadsKeepProviderShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/fine_tuning/jobs/job-1/checkpoints":
			_, _ = w.Write([]byte(`{"data":[{"id":"ck1","result_files":["f1"],"metrics":{"step":10,"phase":"eval"},"extra_field":"x"}]}`))
		case "/v1/fine_tuning/jobs/job-1/events":
			_, _ = w.Write([]byte(`{"data":[{"id":"ev-1","created_at":2,"level":"info","message":"Step 10","progress":{"pct":10}}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	checkpoints, err := c.ListFineTuningJobCheckpoints(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, []string{"f1"}, checkpoints[0].ResultFiles)
	assert.Equal(t, float64(10), checkpoints[0].Metrics["step"])
	assert.Equal(t, "eval", checkpoints[0].Metrics["phase"])

	out, err := json.Marshal(checkpoints[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ck1","created_at":0,"result_files":["f1"],"metrics":{"step":10,"phase":"eval"},"extra_field":"x"}`, string(out))

	events, err := c.ListFineTuningJobEvents(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	out, err = json.Marshal(events[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ev-1","created_at":2,"level":"info","message":"Step 10","progress":{"pct":10}}`, string(out))
}
