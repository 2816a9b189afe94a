package nebius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"studio-service/internal/config"
	"studio-service/internal/core/domain"
	ports "studio-service/internal/core/ports/output"
)

var _ ports.ProviderClient = (*Client)(nil)

// Client talks to the Nebius AI Studio (OpenAI-compatible) REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a provider client. An empty API key is accepted here and
// reported by every call instead.
func NewClient(cfg *config.ProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultProviderBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	log.WithField("endpoint", baseURL).Debug("provider client configured")

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ============================================================================
// Request plumbing
// ============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// sendRequest executes req and returns the body of a 2xx response. Any other
// status becomes a *ports.ProviderError.
func (c *Client) sendRequest(req *http.Request, op string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).WithField("op", op).Error("provider request failed")
		return nil, fmt.Errorf("send request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		perr := parseProviderError(resp.StatusCode, resp.Status, body)
		log.WithFields(log.Fields{
			"op":            op,
			"status":        perr.StatusCode,
			"status_text":   perr.StatusText(),
			"response_body": string(body),
		}).Error("provider returned an error")
		return body, perr
	}
	return body, nil
}

func parseProviderError(code int, status string, body []byte) *ports.ProviderError {
	perr := &ports.ProviderError{StatusCode: code, Status: status, Body: body}
	if !gjson.ValidBytes(body) {
		return perr
	}
	e := gjson.GetBytes(body, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return perr
	}
	perr.HasEnvelope = true
	if e.Type == gjson.String {
		perr.Message = e.String()
		return perr
	}
	perr.Message = e.Get("message").String()
	if perr.Message == "" {
		perr.Message = e.Raw
	}
	perr.Type = e.Get("type").String()
	perr.Code = e.Get("code").String()
	perr.Param = e.Get("param").String()
	return perr
}

func (c *Client) getJSON(ctx context.Context, path, op string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.sendRequest(req, op)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}

type listEnvelope[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
}

// ============================================================================
// Files
// ============================================================================

// UploadFile stages file on disk, sends it as multipart form data with the
// given purpose, and removes the staged copy before returning.
func (c *Client) UploadFile(ctx context.Context, file domain.UploadedFile, purpose domain.FilePurpose) (*ports.ProviderFile, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("upload file: %w", domain.ErrMissingAPIKey)
	}
	if purpose == "" {
		purpose = domain.FilePurposeFineTune
	}

	stagedPath, cleanup, err := stageFile(file)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	defer cleanup()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", string(purpose)); err != nil {
		return nil, fmt.Errorf("upload file: field purpose: %w", err)
	}
	if err := writeFilePart(w, stagedPath); err != nil {
		return nil, fmt.Errorf("upload file: field file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload file: close form: %w", err)
	}

	log.WithFields(log.Fields{
		"file":    filepath.Base(stagedPath),
		"bytes":   len(file.Content),
		"purpose": purpose,
	}).Info("uploading file to provider")

	req, err := c.newRequest(ctx, http.MethodPost, "files", &buf)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.sendRequest(req, "upload file")
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	var pf ports.ProviderFile
	if err := json.Unmarshal(body, &pf); err != nil {
		return nil, fmt.Errorf("upload file: unmarshal response: %w", err)
	}
	return &pf, nil
}

// GetFile reads the metadata of the specified file.
func (c *Client) GetFile(ctx context.Context, fileID string) (*ports.ProviderFile, error) {
	var pf ports.ProviderFile
	if err := c.getJSON(ctx, "files/"+url.PathEscape(fileID), "read file "+fileID, &pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

// DownloadFileContent reads the raw contents of the specified file.
func (c *Client) DownloadFileContent(ctx context.Context, fileID string) ([]byte, error) {
	op := "download file " + fileID
	req, err := c.newRequest(ctx, http.MethodGet, "files/"+url.PathEscape(fileID)+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "*/*")
	body, err := c.sendRequest(req, op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

// ============================================================================
// Fine-tuning jobs
// ============================================================================

// CreateFineTuningJob submits a new job.
func (c *Client) CreateFineTuningJob(ctx context.Context, in *ports.CreateJobRequest) (*ports.ProviderJob, error) {
	const op = "create fine-tuning job"
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "fine_tuning/jobs", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.sendRequest(req, op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var job ports.ProviderJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return &job, nil
}

// GetFineTuningJob reads the specified job.
func (c *Client) GetFineTuningJob(ctx context.Context, jobID string) (*ports.ProviderJob, error) {
	var job ports.ProviderJob
	if err := c.getJSON(ctx, jobPath(jobID, ""), "read fine-tuning job "+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListFineTuningJobEvents lists the event log of the specified job.
func (c *Client) ListFineTuningJobEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	var list listEnvelope[domain.JobEvent]
	if err := c.getJSON(ctx, jobPath(jobID, "events"), "list fine-tuning job "+jobID+" events", &list); err != nil {
		return nil, err
	}
	if list.Data == nil {
		return []domain.JobEvent{}, nil
	}
	return list.Data, nil
}

// ListFineTuningJobCheckpoints lists the checkpoints of the specified job.
func (c *Client) ListFineTuningJobCheckpoints(ctx context.Context, jobID string) ([]domain.Checkpoint, error) {
	var list listEnvelope[domain.Checkpoint]
	if err := c.getJSON(ctx, jobPath(jobID, "checkpoints"), "list fine-tuning job "+jobID+" checkpoints", &list); err != nil {
		return nil, err
	}
	if list.Data == nil {
		return []domain.Checkpoint{}, nil
	}
	return list.Data, nil
}

func jobPath(jobID, sub string) string {
	p := "fine_tuning/jobs/" + url.PathEscape(jobID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

// ============================================================================
// Staging
// ============================================================================

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// stageFile writes the in-memory file to a fresh temporary directory.
func stageFile(file domain.UploadedFile) (string, func(), error) {
	dir, err := os.MkdirTemp("", "studio-upload-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).WithField("dir", dir).Warn("remove staging dir failed")
		}
	}

	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload.jsonl"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, file.Content, 0o600); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("stage file: %w", err)
	}
	return path, cleanup, nil
}

func writeFilePart(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(path))))
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
