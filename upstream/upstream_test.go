package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIComplete(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Boil water."}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewOpenAIClient("sk-test", srv.URL+"/v1/", time.Second, metrics, zap.NewNop())

	text, err := client.Complete(context.Background(), "gpt-4", []Message{
		TextMessage("system", "You are a chef."),
		TextMessage("user", "Pasta?"),
	}, 1000)
	require.NoError(t, err)
	assert.Equal(t, "Boil water.", text)
	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.calls.WithLabelValues(ServiceOpenAI, "success")))
}

func TestOpenAIVisionPayload(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"choices":[{"message":{"content":"Looks like ramen."}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("k", srv.URL, time.Second, nil, zap.NewNop())
	_, err := client.Complete(context.Background(), "gpt-4o", []Message{VisionMessage("Describe", "https://i.ibb.co/x.png")}, 300)
	require.NoError(t, err)

	messages := raw["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].(map[string]any)["type"])
	image := content[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "https://i.ibb.co/x.png", image["image_url"].(map[string]any)["url"])
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "status error",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"rate limited"}}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
				assert.Equal(t, ServiceOpenAI, se.Service)
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyCompletion)
			},
		},
		{
			name:   "bad json",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decode openai response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			metrics := NewMetrics(prometheus.NewRegistry())
			client := NewOpenAIClient("k", srv.URL, time.Second, metrics, zap.NewNop())
			_, err := client.Complete(context.Background(), "m", nil, 0)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.calls.WithLabelValues(ServiceOpenAI, "error")))
		})
	}
}

func TestOpenAIHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewOpenAIClient("k", srv.URL, time.Minute, nil, zap.NewNop())
	_, err := client.Complete(ctx, "m", nil, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestImgBBUpload(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "imgbb-key", r.PostForm.Get("key"))
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), r.PostForm.Get("image"))
		w.Write([]byte(`{"data":{"url":"https://i.ibb.co/abc/dish.png"},"success":true}`))
	}))
	defer srv.Close()

	client := NewImgBBClient("imgbb-key", srv.URL, time.Second, nil, zap.NewNop())
	url, err := client.Upload(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/abc/dish.png", url)
}

func TestImgBBUploadFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "bad key", status: http.StatusBadRequest, body: `{"error":{"message":"Invalid API v1 key."}}`},
		{name: "missing url", status: http.StatusOK, body: `{"data":{},"success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewImgBBClient("k", srv.URL, time.Second, nil, zap.NewNop())
			_, err := client.Upload(context.Background(), []byte("x"))
			assert.Error(t, err)
		})
	}
}

func TestStabilityGenerate(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stab-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a bowl of ramen", r.FormValue("prompt"))
		assert.Equal(t, "png", r.FormValue("output_format"))
		assert.Equal(t, "1:1", r.FormValue("aspect_ratio"))
		json.NewEncoder(w).Encode(map[string]string{
			"image":         base64.StdEncoding.EncodeToString(png),
			"finish_reason": "SUCCESS",
		})
	}))
	defer srv.Close()

	client := NewStabilityClient("stab-key", srv.URL, time.Second, nil, zap.NewNop())
	got, err := client.Generate(context.Background(), "a bowl of ramen")
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestStabilityGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "missing image", status: http.StatusOK, body: `{"finish_reason":"CONTENT_FILTERED"}`, wantErr: ErrNoImage},
		{name: "undecodable image", status: http.StatusOK, body: `{"image":"%%%"}`, wantErr: ErrNoImage},
		{name: "forbidden", status: http.StatusForbidden, body: `{"errors":["bad key"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewStabilityClient("k", srv.URL, time.Second, nil, zap.NewNop())
			_, err := client.Generate(context.Background(), "soup")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
