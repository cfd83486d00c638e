package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, fieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "donation center", body.TextQuery)
		assert.Equal(t, 5, body.MaxResultCount)
		require.NotNil(t, body.LocationBias)
		assert.InDelta(t, 44.97, body.LocationBias.Circle.Center.Latitude, 1e-9)
		assert.InDelta(t, -93.26, body.LocationBias.Circle.Center.Longitude, 1e-9)
		assert.InDelta(t, 8000, body.LocationBias.Circle.Radius, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"places":[{"id":"p1","displayName":{"text":"Goodwill"},"formattedAddress":"1 First Ave","location":{"latitude":44.98,"longitude":-93.27}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := c.TextSearch(context.Background(), SearchRequest{
		Query:        "donation center",
		Latitude:     44.97,
		Longitude:    -93.26,
		RadiusMeters: 8000,
		MaxResults:   5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "p1", resp.Places[0].ID)
	assert.Equal(t, "Goodwill", resp.Places[0].DisplayName.Text)
	assert.Equal(t, "1 First Ave", resp.Places[0].FormattedAddress)
	assert.InDelta(t, 44.98, resp.Places[0].Location.Latitude, 1e-9)
}

func TestTextSearchWithoutRadiusOmitsBias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, ok := raw["locationBias"]
		assert.False(t, ok)
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := c.TextSearch(context.Background(), SearchRequest{Query: "thrift"})
	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := c.TextSearch(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestTextSearchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := c.TextSearch(context.Background(), SearchRequest{Query: "x"})
	assert.Error(t, err)
}

func TestTextSearchRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0.001))
	// first call consumes the single token
	_, err := c.TextSearch(context.Background(), SearchRequest{Query: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.TextSearch(ctx, SearchRequest{Query: "x"})
	assert.Error(t, err)
}
