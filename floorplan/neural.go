package floorplan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	// DefaultInferTimeout is the default request timeout for remote
	// inference calls.
	DefaultInferTimeout = 30 * time.Second

	// DefaultInferRetries is the default number of retry attempts.
	DefaultInferRetries = 2

	// defaultInferBackoff is the base delay for exponential backoff.
	defaultInferBackoff = 500 * time.Millisecond

	// maxInferResponseBytes limits the response body to 10 MB.
	maxInferResponseBytes = 10 << 20
)

// Detector is the pluggable neural-detection boundary. The orchestrator
// calls a registered detector before the traditional pipeline; a nil
// detector, an error, or an empty result all mean "no rooms found".
type Detector interface {
	Detect(ctx context.Context, img image.Image, targetW, targetH int) ([]DetectedRoom, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image, targetW, targetH int) ([]DetectedRoom, error)

func (f DetectorFunc) Detect(ctx context.Context, img image.Image, targetW, targetH int) ([]DetectedRoom, error) {
	return f(ctx, img, targetW, targetH)
}

// InferOption configures RemoteDetector behavior.
type InferOption func(*inferConfig)

type inferConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultInferConfig() inferConfig {
	return inferConfig{
		timeout:     DefaultInferTimeout,
		maxRetries:  DefaultInferRetries,
		baseBackoff: defaultInferBackoff,
	}
}

// WithInferTimeout sets the HTTP request timeout.
func WithInferTimeout(d time.Duration) InferOption {
	return func(c *inferConfig) {
		c.timeout = d
	}
}

// WithInferRetries sets the maximum number of retry attempts.
func WithInferRetries(n int) InferOption {
	return func(c *inferConfig) {
		c.maxRetries = n
	}
}

// WithInferClient overrides the default HTTP client (useful for testing).
func WithInferClient(client *http.Client) InferOption {
	return func(c *inferConfig) {
		c.client = client
	}
}

// RemoteDetector posts the plan image to a trained-model inference
// service and decodes the returned room list. All transport and model
// failures surface as errors, which the orchestrator treats as zero
// rooms.
type RemoteDetector struct {
	url string
	cfg inferConfig
}

// NewRemoteDetector creates a detector backed by an HTTP inference
// endpoint.
func NewRemoteDetector(url string, opts ...InferOption) *RemoteDetector {
	cfg := defaultInferConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RemoteDetector{url: url, cfg: cfg}
}

type inferResponse struct {
	Rooms []DetectedRoom `json:"rooms"`
}

// Detect sends the image as PNG and retries transient failures with
// exponential backoff.
func (rd *RemoteDetector) Detect(ctx context.Context, img image.Image, targetW, targetH int) ([]DetectedRoom, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image for inference: %w", err)
	}
	body := buf.Bytes()

	client := rd.cfg.client
	if client == nil {
		client = &http.Client{Timeout: rd.cfg.timeout}
	}

	var lastErr error
	for attempt := 0; attempt <= rd.cfg.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(rd.cfg.baseBackoff) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		rooms, err := rd.post(ctx, client, body, targetW, targetH)
		if err == nil {
			return rooms, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("inference failed after %d attempts: %w", rd.cfg.maxRetries+1, lastErr)
}

func (rd *RemoteDetector) post(ctx context.Context, client *http.Client, body []byte, targetW, targetH int) ([]DetectedRoom, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rd.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building inference request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Target-Width", fmt.Sprintf("%d", targetW))
	req.Header.Set("X-Target-Height", fmt.Sprintf("%d", targetH))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInferResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading inference response: %w", err)
	}

	var parsed inferResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing inference response: %w", err)
	}
	return parsed.Rooms, nil
}
