package hosted

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictLabel_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/waste-sorting/3", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "aW1hZ2U=", string(body))

		_ = json.NewEncoder(w).Encode(Response{
			Top:        "Metal",
			Confidence: 0.93,
			Predictions: []ClassPrediction{
				{Class: "metal", Confidence: 0.93},
				{Class: "glass", Confidence: 0.05},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", "/waste-sorting/3/", WithBaseURL(srv.URL+"/"))
	p, err := c.PredictLabel(context.Background(), "aW1hZ2U=")

	require.NoError(t, err)
	assert.Equal(t, "metal", p.Label)
	assert.InDelta(t, 0.93, p.Confidence, 0.001)
}

func TestPredictLabel_NoTopUsesBestPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[{"class":"paper","confidence":0.3},{"class":"Organic","confidence":0.6}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", "m/1", WithBaseURL(srv.URL))
	p, err := c.PredictLabel(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "organic", p.Label)
}

func TestPredictLabel_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", "m/1", WithBaseURL(srv.URL))
	_, err := c.PredictLabel(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNoPrediction)
}

func TestPredictLabel_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "invalid api key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", "m/1", WithBaseURL(srv.URL))
	_, err := c.PredictLabel(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPredictLabel_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient("k", "m/1", WithBaseURL(srv.URL))
	_, err := c.PredictLabel(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestSimpleQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"top":"glass","confidence":0.8}`))
	}))
	defer srv.Close()

	c := NewClient("k", "m/1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	out, err := c.SimpleQuery(context.Background(), "ignored", "x")

	require.NoError(t, err)
	assert.Equal(t, "glass", out)
}
