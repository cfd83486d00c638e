package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/menta2k/bin-go/pkg/classifier"
	"github.com/menta2k/bin-go/pkg/client"
	"github.com/menta2k/bin-go/pkg/types"
)

const (
	// DefaultMinConfidence is the lowest prediction confidence that is trusted
	DefaultMinConfidence = 0.2
	// DefaultTimeout bounds one shared backend call
	DefaultTimeout = 120 * time.Second
)

var (
	// ErrNoBackend is reported when no vision backend is configured
	ErrNoBackend = errors.New("recognition: no vision backend configured")
	// ErrNoLabel is reported when the backend could not name the item
	ErrNoLabel = errors.New("recognition: no label recognized")
	// ErrLowConfidence is reported when the prediction is below the threshold
	ErrLowConfidence = errors.New("recognition: prediction confidence too low")
)

// Recognizer turns an image into a bin by asking a vision backend for a
// label. It always produces a result.
type Recognizer struct {
	client        client.VisionClient
	classifier    *classifier.Classifier
	minConfidence float64
	timeout       time.Duration
	logger        *zap.Logger
	onFailure     func(error)
	group         singleflight.Group
}

// Option configures a Recognizer
type Option func(*Recognizer)

// WithMinConfidence sets the confidence threshold
func WithMinConfidence(v float64) Option {
	return func(r *Recognizer) {
		r.minConfidence = v
	}
}

// WithTimeout bounds each backend call. The call is shared by every caller
// with the same image, so it does not follow any single caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) {
		r.timeout = d
	}
}

// WithClassifier overrides the label table used to map labels to bins
func WithClassifier(c *classifier.Classifier) Option {
	return func(r *Recognizer) {
		r.classifier = c
	}
}

// WithLogger sets the logger; defaults to the global zap logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// WithFailureHook registers a callback invoked whenever a fallback result is
// produced
func WithFailureHook(fn func(error)) Option {
	return func(r *Recognizer) {
		r.onFailure = fn
	}
}

// NewRecognizer creates a recognizer. A nil client is allowed and makes
// every call fall back.
func NewRecognizer(c client.VisionClient, opts ...Option) *Recognizer {
	r := &Recognizer{
		client:        c,
		classifier:    classifier.Default(),
		minConfidence: DefaultMinConfidence,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = zap.L()
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	return r
}

// Classifier returns the table used to map labels to bins
func (r *Recognizer) Classifier() *classifier.Classifier {
	return r.classifier
}

// WithLabels returns a recognizer sharing r's backend and settings that
// maps labels with c instead
func (r *Recognizer) WithLabels(c *classifier.Classifier) *Recognizer {
	return &Recognizer{
		client:        r.client,
		classifier:    c,
		minConfidence: r.minConfidence,
		timeout:       r.timeout,
		logger:        r.logger,
		onFailure:     r.onFailure,
	}
}

// Recognize classifies a base64 encoded image. Identical images recognized
// concurrently share one backend call, which keeps running when the caller
// that started it goes away. A caller whose own ctx ends first gets the
// default bin.
func (r *Recognizer) Recognize(ctx context.Context, imgB64 string) types.Result {
	sum := sha256.Sum256([]byte(imgB64))
	key := hex.EncodeToString(sum[:])

	ch := r.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.recognize(shared, imgB64), nil
	})

	select {
	case res := <-ch:
		return res.Val.(types.Result)
	case <-ctx.Done():
		r.logger.Debug("image recognition abandoned by caller", zap.Error(ctx.Err()))
		return types.Result{Bin: types.DefaultBin, Source: types.SourceFallback}
	}
}

func (r *Recognizer) recognize(ctx context.Context, imgB64 string) types.Result {
	if r.client == nil {
		return r.fallback(ErrNoBackend, nil)
	}

	pred, err := r.client.PredictLabel(ctx, imgB64)
	if err != nil {
		return r.fallback(err, nil)
	}
	if pred == nil {
		return r.fallback(ErrNoLabel, nil)
	}

	label := r.NormalizeLabel(pred.Label)
	pred.Label = label
	if label == "" || label == client.NoneLabel {
		return r.fallback(ErrNoLabel, pred)
	}
	if pred.Confidence > 0 && pred.Confidence < r.minConfidence {
		return r.fallback(ErrLowConfidence, pred)
	}

	return types.Result{
		Bin:        r.classifier.ClassifyByLabel(label),
		Source:     types.SourceVision,
		Label:      label,
		Confidence: pred.Confidence,
	}
}

func (r *Recognizer) fallback(cause error, pred *types.Prediction) types.Result {
	fields := []zap.Field{zap.Error(cause)}
	res := types.Result{Bin: types.DefaultBin, Source: types.SourceFallback}
	if pred != nil {
		fields = append(fields, zap.String("label", pred.Label), zap.Float64("confidence", pred.Confidence))
		res.Label = pred.Label
		res.Confidence = pred.Confidence
	}
	r.logger.Warn("image recognition fell back to default bin", fields...)

	if r.onFailure != nil {
		r.onFailure(cause)
	}
	return res
}

// NormalizeLabel lowercases a label, strips punctuation and reduces simple
// plurals to a known singular label
func (r *Recognizer) NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, ".,;:!?\"'`()[]{}")
	label = strings.TrimSpace(label)
	if label == "" || r.classifier.KnownLabel(label) {
		return label
	}

	for _, suffix := range []string{"es", "s"} {
		if s, ok := strings.CutSuffix(label, suffix); ok && r.classifier.KnownLabel(s) {
			return s
		}
	}
	return label
}

// IsBackendError reports whether a fallback cause came from a failed backend
// call rather than from a missing backend or an unusable prediction
func IsBackendError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNoBackend) && !errors.Is(err, ErrNoLabel) && !errors.Is(err, ErrLowConfidence)
}

// Probe asks the backend to describe the image, for checking that a model
// can see images at all
func (r *Recognizer) Probe(ctx context.Context, imgB64 string) (string, error) {
	if r.client == nil {
		return "", ErrNoBackend
	}
	return r.client.SimpleQuery(ctx, client.ProbePrompt, imgB64)
}
