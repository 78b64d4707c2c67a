package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var errNoImageURL = errors.New("imgbb response carried no url")

type imgbbResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// ImgBBClient uploads images to ImgBB and returns their public URL.
type ImgBBClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	metrics  *Metrics
	logger   *zap.Logger
}

func NewImgBBClient(apiKey, endpoint string, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *ImgBBClient {
	return &ImgBBClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   newHTTPClient(timeout),
		metrics:  metrics,
		logger:   logger,
	}
}

// Upload posts the image as a base64 form field and returns its public URL.
func (c *ImgBBClient) Upload(ctx context.Context, image []byte) (imageURL string, err error) {
	start := time.Now()
	defer func() { c.metrics.observe(ServiceImgBB, start, err) }()

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call imgbb: %w", err)
	}

	var out imgbbResponse
	if err := decodeResponse(ServiceImgBB, resp, &out); err != nil {
		return "", err
	}
	if out.Data.URL == "" {
		return "", errNoImageURL
	}

	c.logger.Debug("image hosted", zap.String("url", out.Data.URL), zap.Int("bytes", len(image)))
	return out.Data.URL, nil
}
