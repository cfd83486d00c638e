// Package bingo decides whether an item belongs in the recycling, trash or
// compost bin.
//
// An item can be described in free text, named by a single model label or
// shown as a photo. Text and labels are classified locally with fixed keyword
// tables; photos are sent to a vision backend for a label first. The package
// also looks up nearby donation sites for items that should not be thrown
// away at all.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		bingo "github.com/menta2k/bin-go"
//	)
//
//	func main() {
//		bg := bingo.New()
//
//		res := bg.ClassifyText("empty plastic water bottle")
//		d := res.Bin.Display()
//		fmt.Println(d.Icon, d.Title) // ♻️ recycling!!
//
//		res, err := bg.ClassifyImageSource(context.Background(), "banana.jpg")
//		if err != nil {
//			panic(err)
//		}
//		fmt.Println(res.Bin, res.Source)
//	}
//
// Without a vision backend every photo falls back to the trash bin. Without a
// Places client donation search returns a single placeholder site.
package bingo

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/menta2k/bin-go/pkg/classifier"
	"github.com/menta2k/bin-go/pkg/places"
	"github.com/menta2k/bin-go/pkg/processing"
	"github.com/menta2k/bin-go/pkg/recognition"
	"github.com/menta2k/bin-go/pkg/types"
)

// Version of the bin-go library
const Version = "1.0.0"

// ErrNoImage is returned when an image request carries no data
var ErrNoImage = errors.New("bingo: no image provided")

// DefaultImageOptions is how photos are encoded before they reach a backend
var DefaultImageOptions = types.ImageOptions{Format: "jpg", MaxDim: 1024, Quality: 85}

// BinGo ties the classifier, image pipeline, recognizer and site finder together
type BinGo struct {
	classifier *classifier.Classifier
	processor  *processing.Processor
	recognizer *recognition.Recognizer
	finder     places.SiteFinder
	imageOpts  types.ImageOptions
}

// Option configures a BinGo
type Option func(*BinGo)

// WithClassifier replaces the default keyword and label tables. It also
// applies to photos when combined with WithRecognizer.
func WithClassifier(c *classifier.Classifier) Option {
	return func(b *BinGo) {
		b.classifier = c
	}
}

// WithProcessor sets the image processor
func WithProcessor(p *processing.Processor) Option {
	return func(b *BinGo) {
		b.processor = p
	}
}

// WithRecognizer sets the recognizer used for photos. Without
// WithClassifier its label table is used for text and labels too.
func WithRecognizer(r *recognition.Recognizer) Option {
	return func(b *BinGo) {
		b.recognizer = r
	}
}

// WithFinder sets the donation site finder
func WithFinder(f places.SiteFinder) Option {
	return func(b *BinGo) {
		b.finder = f
	}
}

// WithImageOptions sets the format, size and quality used for backend uploads
func WithImageOptions(o types.ImageOptions) Option {
	return func(b *BinGo) {
		b.imageOpts = o
	}
}

// New creates a BinGo. Missing components get offline defaults.
func New(opts ...Option) *BinGo {
	b := &BinGo{imageOpts: DefaultImageOptions}
	for _, o := range opts {
		o(b)
	}
	switch {
	case b.recognizer == nil:
		if b.classifier == nil {
			b.classifier = classifier.Default()
		}
		b.recognizer = recognition.NewRecognizer(nil, recognition.WithClassifier(b.classifier))
	case b.classifier == nil:
		b.classifier = b.recognizer.Classifier()
	case b.classifier != b.recognizer.Classifier():
		b.recognizer = b.recognizer.WithLabels(b.classifier)
	}
	if b.processor == nil {
		b.processor = processing.NewProcessor()
	}
	if b.finder == nil {
		b.finder = places.StaticFinder{}
	}
	return b
}

// ClassifyText classifies a free-text item description
func (b *BinGo) ClassifyText(text string) types.Result {
	return types.Result{
		Bin:    b.classifier.ClassifyByText(text),
		Source: types.SourceHeuristic,
	}
}

// ClassifyLabel classifies a single model label
func (b *BinGo) ClassifyLabel(label string) types.Result {
	label = strings.ToLower(strings.TrimSpace(label))
	return types.Result{
		Bin:    b.classifier.ClassifyByLabel(label),
		Source: types.SourceLabel,
		Label:  label,
	}
}

// ClassifyImage classifies encoded image bytes. Only undecodable or invalid
// images produce an error; backend failures fall back to the default bin.
func (b *BinGo) ClassifyImage(ctx context.Context, data []byte) (types.Result, error) {
	if len(data) == 0 {
		return types.Result{}, ErrNoImage
	}
	img, err := b.processor.Decode(data)
	if err != nil {
		return types.Result{}, err
	}
	return b.classifyDecoded(ctx, img)
}

// ClassifyImageBase64 classifies a raw base64 string or data URL
func (b *BinGo) ClassifyImageBase64(ctx context.Context, s string) (types.Result, error) {
	if strings.TrimSpace(s) == "" {
		return types.Result{}, ErrNoImage
	}
	data, err := b.processor.DecodeBase64(s)
	if err != nil {
		return types.Result{}, err
	}
	return b.ClassifyImage(ctx, data)
}

// ClassifyImageSource classifies an image from a file path or http(s) URL
func (b *BinGo) ClassifyImageSource(ctx context.Context, source string) (types.Result, error) {
	if strings.TrimSpace(source) == "" {
		return types.Result{}, ErrNoImage
	}
	img, err := b.processor.LoadImageSmart(source)
	if err != nil {
		return types.Result{}, eris.Wrapf(err, "bingo: load image %s", source)
	}
	return b.classifyDecoded(ctx, img)
}

// Probe asks the vision backend to describe an image from a file path or URL
func (b *BinGo) Probe(ctx context.Context, source string) (string, error) {
	img, err := b.processor.LoadImageSmart(source)
	if err != nil {
		return "", eris.Wrapf(err, "bingo: load image %s", source)
	}
	imgB64, err := b.processor.PrepareImageForModel(img, b.imageOpts)
	if err != nil {
		return "", err
	}
	return b.recognizer.Probe(ctx, imgB64)
}

func (b *BinGo) classifyDecoded(ctx context.Context, img image.Image) (types.Result, error) {
	if err := b.processor.Validate(img); err != nil {
		return types.Result{}, err
	}
	imgB64, err := b.processor.PrepareImageForModel(img, b.imageOpts)
	if err != nil {
		return types.Result{}, err
	}
	return b.recognizer.Recognize(ctx, imgB64), nil
}

// FindDonationSites returns donation sites near at, closest first. An empty
// keyword uses the finder's default.
func (b *BinGo) FindDonationSites(ctx context.Context, at types.Coordinates, keyword string) ([]types.Place, error) {
	return b.finder.Find(ctx, at, keyword)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
