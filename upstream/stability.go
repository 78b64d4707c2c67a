package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrNoImage is returned when the generation response has no usable image.
var ErrNoImage = errors.New("generation response carried no image")

type stabilityResponse struct {
	Image        string `json:"image"`
	FinishReason string `json:"finish_reason"`
	Seed         int64  `json:"seed"`
}

// StabilityClient calls the Stability image generation endpoint.
type StabilityClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	metrics  *Metrics
	logger   *zap.Logger
}

func NewStabilityClient(apiKey, endpoint string, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *StabilityClient {
	return &StabilityClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   newHTTPClient(timeout),
		metrics:  metrics,
		logger:   logger,
	}
}

// Generate renders prompt as a square PNG and returns the decoded bytes.
func (c *StabilityClient) Generate(ctx context.Context, prompt string) (image []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.observe(ServiceStability, start, err) }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"prompt", prompt},
		{"output_format", "png"},
		{"aspect_ratio", "1:1"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call stability: %w", err)
	}

	var out stabilityResponse
	if err := decodeResponse(ServiceStability, resp, &out); err != nil {
		return nil, err
	}
	if out.Image == "" {
		return nil, ErrNoImage
	}
	image, err = base64.StdEncoding.DecodeString(out.Image)
	if err != nil || len(image) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}

	c.logger.Debug("image generated", zap.Int("bytes", len(image)), zap.String("finish_reason", out.FinishReason))
	return image, nil
}
