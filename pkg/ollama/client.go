package ollama

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rotisserie/eris"

	"github.com/menta2k/bin-go/pkg/client"
	"github.com/menta2k/bin-go/pkg/types"
)

const defaultTimeout = 120 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a new Ollama client for the given server URL and model
func NewClient(ollamaURL, model string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, model, http.DefaultClient)
}

// NewClientWithHTTP is like NewClient but uses the supplied http.Client
func NewClientWithHTTP(ollamaURL, model string, hc *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: invalid URL")
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, eris.Errorf("ollama: invalid URL %q", ollamaURL)
	}

	// Drop any path such as /api/chat; the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, hc), model: model}, nil
}

// SimpleQuery sends a prompt with an image and returns the raw reply
func (c *Client) SimpleQuery(ctx context.Context, prompt, imgB64 string) (string, error) {
	return c.chat(ctx, prompt, imgB64, nil)
}

// PredictLabel asks the model for the material of the most prominent item
func (c *Client) PredictLabel(ctx context.Context, imgB64 string) (*types.Prediction, error) {
	options := map[string]any{
		"temperature": 0.1,
	}

	// MiniCPM-V 4.x needs a bigger context window for images
	modelLower := strings.ToLower(c.model)
	if strings.Contains(modelLower, "minicpm-v4") || strings.Contains(modelLower, "minicpm-v-4") {
		options["num_ctx"] = 4096
	}

	reply, err := c.chat(ctx, client.LabelPrompt, imgB64, options)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, eris.New("ollama: empty response")
	}

	return client.ParsePrediction(reply), nil
}

func (c *Client) chat(ctx context.Context, prompt, imgB64 string, options map[string]any) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", eris.Wrap(err, "ollama: decode base64 image")
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Options: options,
	}

	var content strings.Builder
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", eris.Wrap(err, "ollama: chat")
	}

	return content.String(), nil
}
