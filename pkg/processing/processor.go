package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/bin-go/pkg/types"
)

const (
	DefaultMinImageSize = 32
	DefaultMaxBytes     = 10 << 20
	// DefaultMaxPixels caps decoded width*height, about 160 MB as RGBA
	DefaultMaxPixels = 40_000_000
)

var (
	// ErrImageTooSmall is returned by Validate for images below the minimum side
	ErrImageTooSmall = errors.New("processing: image too small")
	// ErrImageTooLarge is returned when the encoded image exceeds the byte limit
	ErrImageTooLarge = errors.New("processing: image too large")
	// ErrUnknownFormat is returned when no decoder accepts the data
	ErrUnknownFormat = errors.New("processing: unknown or unsupported image format")
	// ErrInvalidEncoding is returned for malformed base64 or data URLs
	ErrInvalidEncoding = errors.New("processing: invalid image encoding")
)

// Config holds limits applied to incoming images
type Config struct {
	MinImageSize int
	MaxBytes     int64
	MaxPixels    int64
	FetchTimeout time.Duration
}

// Processor decodes, validates and encodes images for the vision backends
type Processor struct {
	config     Config
	httpClient *http.Client
}

// NewProcessor creates a processor with default limits
func NewProcessor() *Processor {
	return NewProcessorWithConfig(Config{})
}

// NewProcessorWithConfig creates a processor with custom limits. Zero
// values are replaced by defaults.
func NewProcessorWithConfig(cfg Config) *Processor {
	if cfg.MinImageSize <= 0 {
		cfg.MinImageSize = DefaultMinImageSize
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Processor{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Validate checks that an image is large enough to classify
func (p *Processor) Validate(img image.Image) error {
	b := img.Bounds()
	if b.Dx() < p.config.MinImageSize || b.Dy() < p.config.MinImageSize {
		return eris.Wrapf(ErrImageTooSmall, "processing: %dx%d (minimum: %d)", b.Dx(), b.Dy(), p.config.MinImageSize)
	}
	return nil
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, eris.Wrap(err, "processing: invalid URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, eris.Errorf("processing: unsupported URL scheme %q (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "processing: create request")
	}
	req.Header.Set("User-Agent", "Bin-Go/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "processing: download image")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("processing: download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, eris.Errorf("processing: URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := p.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return p.Decode(data)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "processing: open image")
	}
	defer f.Close() //nolint:errcheck

	data, err := p.readLimited(f)
	if err != nil {
		return nil, err
	}
	return p.Decode(data)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// Decode decodes image bytes, trying the registered decoders before the
// cgo WebP decoder. The header is checked against the pixel limit before
// any pixel data is decoded.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if int64(len(data)) > p.config.MaxBytes {
		return nil, ErrImageTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	native := err == nil
	if !native {
		if cfg, err = webp.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, ErrUnknownFormat
		}
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > p.config.MaxPixels {
		return nil, eris.Wrapf(ErrImageTooLarge, "processing: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, p.config.MaxPixels)
	}

	if native {
		if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
			return img, nil
		}
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnknownFormat
}

// DecodeBase64 decodes a raw base64 string or a data URL into image bytes
func (p *Processor) DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.Contains(s[:i], ";base64") {
			return nil, eris.Wrap(ErrInvalidEncoding, "processing: malformed data URL")
		}
		s = s[i+1:]
	}
	if int64(base64.StdEncoding.DecodedLen(len(s))) > p.config.MaxBytes {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Browsers sometimes strip padding
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, eris.Wrapf(ErrInvalidEncoding, "processing: %v", err)
		}
	}
	return data, nil
}

// PrepareImageForModel resizes the long side to opts.MaxDim, encodes the
// image and returns it base64 encoded
func (p *Processor) PrepareImageForModel(img image.Image, opts types.ImageOptions) (string, error) {
	if opts.MaxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > opts.MaxDim || h > opts.MaxDim {
			if w >= h {
				img = imaging.Resize(img, opts.MaxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, opts.MaxDim, imaging.Lanczos)
			}
		}
	}

	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	switch strings.ToLower(opts.Format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", eris.Wrap(err, "processing: encode png")
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", eris.Wrap(err, "processing: encode jpeg")
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (p *Processor) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.config.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "processing: read image data")
	}
	if int64(len(data)) > p.config.MaxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
