package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

// OCR job states reported by the recognition service.
const (
	ocrStatusPending    = "pending"
	ocrStatusProcessing = "processing"
	ocrStatusSucceeded  = "succeeded"
	ocrStatusFailed     = "failed"
)

// RemoteOCR is a minimal REST client to an asynchronous OCR service. A job is
// submitted, polled at a fixed interval up to maxPolls times, and its
// recognized lines are then fetched page by page.
type RemoteOCR struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
	log          *zap.Logger
}

// OCRConfig configures the remote OCR client.
type OCRConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     int
}

// NewRemoteOCR creates a remote OCR client.
func NewRemoteOCR(cfg OCRConfig, log *zap.Logger) *RemoteOCR {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = 60
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteOCR{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// Recognize submits content for recognition and blocks until the job
// finishes, fails, or the polling bound is reached.
func (o *RemoteOCR) Recognize(ctx context.Context, content []byte) (string, error) {
	jobID, err := o.submit(ctx, content)
	if err != nil {
		return "", err
	}
	o.log.Debug("ocr job submitted", zap.String("job_id", jobID))

	if err := o.waitForJob(ctx, jobID); err != nil {
		return "", err
	}
	return o.fetchLines(ctx, jobID)
}

func (o *RemoteOCR) submit(ctx context.Context, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/jobs", bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrOCR, err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	o.authorize(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: submit: %v", models.ErrOCR, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: submit: %s", models.ErrOCR, resp.Status)
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", models.ErrOCR, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: submit returned no job id", models.ErrOCR)
	}
	return out.JobID, nil
}

// waitForJob polls job status at the configured interval. The bound on poll
// count keeps a stuck job from blocking ingestion forever.
func (o *RemoteOCR) waitForJob(ctx context.Context, jobID string) error {
	for i := 0; i < o.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", models.ErrOCR, ctx.Err())
		case <-time.After(o.pollInterval):
		}

		status, err := o.jobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		switch status {
		case ocrStatusSucceeded:
			return nil
		case ocrStatusFailed:
			return fmt.Errorf("%w: job %s reported failure", models.ErrOCR, jobID)
		case ocrStatusPending, ocrStatusProcessing:
		default:
			return fmt.Errorf("%w: job %s in unknown state %q", models.ErrOCR, jobID, status)
		}
	}
	return fmt.Errorf("%w: job %s did not finish after %d polls", models.ErrOCR, jobID, o.maxPolls)
}

func (o *RemoteOCR) jobStatus(ctx context.Context, jobID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := o.getJSON(ctx, fmt.Sprintf("%s/v1/jobs/%s", o.baseURL, url.PathEscape(jobID)), &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// fetchLines pages through the recognized lines of a finished job, following
// next_token until exhausted.
func (o *RemoteOCR) fetchLines(ctx context.Context, jobID string) (string, error) {
	var buf strings.Builder
	nextToken := ""
	for {
		u := fmt.Sprintf("%s/v1/jobs/%s/lines", o.baseURL, url.PathEscape(jobID))
		if nextToken != "" {
			u += "?next_token=" + url.QueryEscape(nextToken)
		}
		var out struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
			NextToken string `json:"next_token"`
		}
		if err := o.getJSON(ctx, u, &out); err != nil {
			return "", err
		}
		for _, line := range out.Lines {
			buf.WriteString(line.Text)
			buf.WriteByte('\n')
		}
		if out.NextToken == "" {
			return buf.String(), nil
		}
		nextToken = out.NextToken
	}
}

func (o *RemoteOCR) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrOCR, err)
	}
	o.authorize(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", models.ErrOCR, u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: GET %s: %s", models.ErrOCR, u, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrOCR, err)
	}
	return nil
}

func (o *RemoteOCR) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}
