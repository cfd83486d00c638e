// Package hosted talks to a hosted image classification endpoint that takes a
// base64 encoded image and an API key and answers with its top class.
package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/menta2k/bin-go/pkg/types"
)

const defaultBaseURL = "https://classify.roboflow.com"

// ErrNoPrediction is returned when the endpoint answered without any class
var ErrNoPrediction = errors.New("hosted: no prediction in response")

// ClassPrediction is one scored class in the response
type ClassPrediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Response is the body returned by the classification endpoint
type Response struct {
	Top         string            `json:"top"`
	Confidence  float64           `json:"confidence"`
	Predictions []ClassPrediction `json:"predictions"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client calls the hosted classifier for a single model
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient creates a hosted classification client. model is the
// project/version path segment, e.g. "waste-sorting/3".
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   strings.Trim(model, "/"),
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SimpleQuery ignores the prompt and returns the top class as text; the
// endpoint is not a chat model.
func (c *Client) SimpleQuery(ctx context.Context, _ string, imgB64 string) (string, error) {
	p, err := c.PredictLabel(ctx, imgB64)
	if err != nil {
		return "", err
	}
	return p.Label, nil
}

// PredictLabel posts the image and returns the top predicted class
func (c *Client) PredictLabel(ctx context.Context, imgB64 string) (*types.Prediction, error) {
	resp, err := c.Classify(ctx, imgB64)
	if err != nil {
		return nil, err
	}
	return resp.TopPrediction()
}

// Classify posts the image and returns the raw response
func (c *Client) Classify(ctx context.Context, imgB64 string) (*Response, error) {
	endpoint := c.baseURL + "/" + c.model + "?api_key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(imgB64))
	if err != nil {
		return nil, eris.Wrap(err, "hosted: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hosted: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hosted: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("hosted: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "hosted: unmarshal response")
	}

	return &result, nil
}

// TopPrediction picks the top class, falling back to the highest scored
// prediction when the response has no top field
func (r *Response) TopPrediction() (*types.Prediction, error) {
	if top := strings.TrimSpace(r.Top); top != "" {
		return &types.Prediction{Label: strings.ToLower(top), Confidence: r.Confidence}, nil
	}

	var best *ClassPrediction
	for i := range r.Predictions {
		p := &r.Predictions[i]
		if strings.TrimSpace(p.Class) == "" {
			continue
		}
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	if best == nil {
		return nil, ErrNoPrediction
	}
	return &types.Prediction{Label: strings.ToLower(strings.TrimSpace(best.Class)), Confidence: best.Confidence}, nil
}
