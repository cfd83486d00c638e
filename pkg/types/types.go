package types

import (
	"fmt"
	"strings"
)

// Bin is the disposal category an item belongs to
type Bin string

const (
	Recycling Bin = "recycling"
	Trash     Bin = "trash"
	Compost   Bin = "compost"
)

// DefaultBin is returned whenever no signal matches
const DefaultBin = Trash

// AllBins lists the valid bins in display order
var AllBins = []Bin{Recycling, Trash, Compost}

// String returns the wire name of the bin
func (b Bin) String() string {
	return string(b)
}

// Valid reports whether b is one of the three known bins
func (b Bin) Valid() bool {
	switch b {
	case Recycling, Trash, Compost:
		return true
	}
	return false
}

// ParseBin parses a bin name case-insensitively
func ParseBin(s string) (Bin, error) {
	b := Bin(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return DefaultBin, fmt.Errorf("unknown bin: %q", s)
	}
	return b, nil
}

// Display holds the presentation metadata for a bin
type Display struct {
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Color string `json:"color"`
}

var displays = map[Bin]Display{
	Recycling: {Icon: "♻️", Title: "recycling!!", Color: "blue"},
	Trash:     {Icon: "🗑️", Title: "trash!!", Color: "gray"},
	Compost:   {Icon: "🌱", Title: "compost!!", Color: "green"},
}

// Display returns the icon, title and color used when showing the bin
func (b Bin) Display() Display {
	if d, ok := displays[b]; ok {
		return d
	}
	return displays[DefaultBin]
}

// Source describes how a classification result was produced
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceLabel     Source = "label"
	SourceVision    Source = "vision"
	SourceFallback  Source = "fallback"
)

// Result is the outcome of a single classification request
type Result struct {
	Bin        Bin     `json:"bin"`
	Source     Source  `json:"source"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Prediction is the top label returned by an image classification backend
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is a donation site returned by a place search
type Place struct {
	ID             string  `json:"id,omitempty"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
	DirectionsURL  string  `json:"directions_url"`
}

// ImageOptions controls how an image is prepared before it is sent to a backend
type ImageOptions struct {
	Format  string
	MaxDim  int
	Quality int
}
