package recognition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/bin-go/pkg/client/mocks"
	"github.com/menta2k/bin-go/pkg/types"
)

func TestRecognize(t *testing.T) {
	tests := []struct {
		name       string
		pred       *types.Prediction
		err        error
		wantBin    types.Bin
		wantSource types.Source
		wantLabel  string
	}{
		{"metal", &types.Prediction{Label: "metal", Confidence: 0.9}, nil, types.Recycling, types.SourceVision, "metal"},
		{"organic", &types.Prediction{Label: "Organic", Confidence: 0.8}, nil, types.Compost, types.SourceVision, "organic"},
		{"plural", &types.Prediction{Label: "Glasses.", Confidence: 0.7}, nil, types.Recycling, types.SourceVision, "glass"},
		{"unknown label", &types.Prediction{Label: "rubber", Confidence: 0.9}, nil, types.Trash, types.SourceVision, "rubber"},
		{"no confidence reported", &types.Prediction{Label: "paper"}, nil, types.Recycling, types.SourceVision, "paper"},
		{"none", &types.Prediction{Label: "none"}, nil, types.Trash, types.SourceFallback, "none"},
		{"low confidence", &types.Prediction{Label: "glass", Confidence: 0.05}, nil, types.Trash, types.SourceFallback, "glass"},
		{"backend error", nil, errors.New("boom"), types.Trash, types.SourceFallback, ""},
		{"nil prediction", nil, nil, types.Trash, types.SourceFallback, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := mocks.NewMockVisionClient(t)
			vc.On("PredictLabel", mock.Anything, "img").Return(tt.pred, tt.err).Once()

			r := NewRecognizer(vc, WithLogger(zap.NewNop()))
			res := r.Recognize(context.Background(), "img")

			assert.Equal(t, tt.wantBin, res.Bin)
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantLabel, res.Label)
		})
	}
}

func TestRecognizeWithoutBackend(t *testing.T) {
	var failures []error
	r := NewRecognizer(nil, WithLogger(zap.NewNop()), WithFailureHook(func(err error) {
		failures = append(failures, err)
	}))

	res := r.Recognize(context.Background(), "img")
	assert.Equal(t, types.Result{Bin: types.Trash, Source: types.SourceFallback}, res)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrNoBackend)

	_, err := r.Probe(context.Background(), "img")
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestRecognizeMinConfidence(t *testing.T) {
	vc := mocks.NewMockVisionClient(t)
	vc.On("PredictLabel", mock.Anything, "img").Return(&types.Prediction{Label: "glass", Confidence: 0.5}, nil)

	r := NewRecognizer(vc, WithLogger(zap.NewNop()), WithMinConfidence(0.6))
	assert.Equal(t, types.SourceFallback, r.Recognize(context.Background(), "img").Source)
}

type slowClient struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowClient) SimpleQuery(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *slowClient) PredictLabel(ctx context.Context, _ string) (*types.Prediction, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
		return &types.Prediction{Label: "cardboard", Confidence: 0.9}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRecognizeDeduplicatesConcurrentImages(t *testing.T) {
	sc := &slowClient{release: make(chan struct{})}
	r := NewRecognizer(sc, WithLogger(zap.NewNop()))

	const n = 5
	var wg sync.WaitGroup
	results := make([]types.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Recognize(context.Background(), "same-image")
		}(i)
	}

	// Give the goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(sc.release)
	wg.Wait()

	assert.Equal(t, int32(1), sc.calls.Load())
	for _, res := range results {
		assert.Equal(t, types.Recycling, res.Bin)
	}
}

func TestProbe(t *testing.T) {
	vc := mocks.NewMockVisionClient(t)
	vc.On("SimpleQuery", mock.Anything, mock.AnythingOfType("string"), "img").Return("a glass jar", nil)

	out, err := NewRecognizer(vc).Probe(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, "a glass jar", out)
}

func TestNormalizeLabel(t *testing.T) {
	r := NewRecognizer(nil)
	cases := map[string]string{
		"  Metals ":  "metal",
		"bananas":    "banana",
		"\"paper\"":  "paper",
		"styrofoam":  "styrofoam",
		"":           "",
		"Cardboard!": "cardboard",
	}
	for in, want := range cases {
		assert.Equal(t, want, r.NormalizeLabel(in), "input %q", in)
	}
}

func TestIsBackendError(t *testing.T) {
	assert.False(t, IsBackendError(nil))
	assert.False(t, IsBackendError(ErrNoBackend))
	assert.False(t, IsBackendError(ErrNoLabel))
	assert.False(t, IsBackendError(ErrLowConfidence))
	assert.True(t, IsBackendError(errors.New("connection refused")))
}

func TestRecognizeSharedCallOutlivesFirstCaller(t *testing.T) {
	sc := &slowClient{release: make(chan struct{})}
	var failures atomic.Int32
	r := NewRecognizer(sc, WithLogger(zap.NewNop()), WithFailureHook(func(error) { failures.Add(1) }))

	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan types.Result, 1)
	go func() { resA <- r.Recognize(ctxA, "img") }()

	require.Eventually(t, func() bool { return sc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	resB := make(chan types.Result, 1)
	go func() { resB <- r.Recognize(context.Background(), "img") }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.Equal(t, types.Result{Bin: types.Trash, Source: types.SourceFallback}, <-resA)

	close(sc.release)
	assert.Equal(t, types.Result{Bin: types.Recycling, Source: types.SourceVision, Label: "cardboard", Confidence: 0.9}, <-resB)
	assert.Equal(t, int32(1), sc.calls.Load())
	assert.Zero(t, failures.Load())
}

func TestRecognizeTimeout(t *testing.T) {
	sc := &slowClient{release: make(chan struct{})}
	defer close(sc.release)
	var failures []error
	r := NewRecognizer(sc, WithLogger(zap.NewNop()), WithTimeout(20*time.Millisecond), WithFailureHook(func(err error) {
		failures = append(failures, err)
	}))

	res := r.Recognize(context.Background(), "img")
	assert.Equal(t, types.SourceFallback, res.Source)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], context.DeadlineExceeded)
}
