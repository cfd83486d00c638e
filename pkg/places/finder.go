package places

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/menta2k/bin-go/pkg/types"
)

const (
	DefaultKeyword      = "donation center"
	DefaultRadiusMeters = 8000
	DefaultMaxResults   = 10

	earthRadiusMeters = 6371000.0
)

// ErrInvalidCoordinates is returned for latitudes or longitudes out of range
var ErrInvalidCoordinates = errors.New("places: invalid coordinates")

// SiteFinder looks up donation sites around a location
type SiteFinder interface {
	Find(ctx context.Context, at types.Coordinates, keyword string) ([]types.Place, error)
}

// FinderConfig controls the search radius and result count
type FinderConfig struct {
	Keyword      string
	RadiusMeters float64
	MaxResults   int
}

// Finder searches a Places client and turns the response into sites sorted
// by distance. Upstream failures produce an empty list.
type Finder struct {
	client Client
	config FinderConfig
	logger *zap.Logger
	onFail func(error)
}

// FinderOption configures a Finder
type FinderOption func(*Finder)

// WithLogger sets the logger; defaults to the global zap logger
func WithLogger(l *zap.Logger) FinderOption {
	return func(f *Finder) {
		f.logger = l
	}
}

// WithFailureHook registers a callback invoked when the upstream search fails
func WithFailureHook(fn func(error)) FinderOption {
	return func(f *Finder) {
		f.onFail = fn
	}
}

// NewFinder creates a Finder. Zero config values are replaced by defaults.
func NewFinder(c Client, cfg FinderConfig, opts ...FinderOption) *Finder {
	if strings.TrimSpace(cfg.Keyword) == "" {
		cfg.Keyword = DefaultKeyword
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = DefaultRadiusMeters
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	f := &Finder{client: c, config: cfg}
	for _, o := range opts {
		o(f)
	}
	if f.logger == nil {
		f.logger = zap.L()
	}
	return f
}

// Find returns donation sites near at, closest first. An empty keyword uses
// the configured default.
func (f *Finder) Find(ctx context.Context, at types.Coordinates, keyword string) ([]types.Place, error) {
	if err := ValidateCoordinates(at); err != nil {
		return nil, err
	}
	if keyword = strings.TrimSpace(keyword); keyword == "" {
		keyword = f.config.Keyword
	}

	resp, err := f.client.TextSearch(ctx, SearchRequest{
		Query:        keyword,
		Latitude:     at.Latitude,
		Longitude:    at.Longitude,
		RadiusMeters: f.config.RadiusMeters,
		MaxResults:   f.config.MaxResults,
	})
	if err != nil {
		f.logger.Warn("donation site search failed",
			zap.Float64("latitude", at.Latitude),
			zap.Float64("longitude", at.Longitude),
			zap.Error(err),
		)
		if f.onFail != nil {
			f.onFail(err)
		}
		return []types.Place{}, nil
	}

	sites := make([]types.Place, 0, len(resp.Places))
	for _, p := range resp.Places {
		site := types.Place{
			ID:        p.ID,
			Name:      p.DisplayName.Text,
			Address:   p.FormattedAddress,
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
		}
		if site.Name == "" {
			continue
		}
		site.DistanceMeters = math.Round(Distance(at, types.Coordinates{Latitude: site.Latitude, Longitude: site.Longitude}))
		site.DirectionsURL = DirectionsURL(site.Latitude, site.Longitude)
		sites = append(sites, site)
	}

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].DistanceMeters < sites[j].DistanceMeters
	})
	if len(sites) > f.config.MaxResults {
		sites = sites[:f.config.MaxResults]
	}
	return sites, nil
}

// StaticFinder answers with one placeholder site next to the caller. It is
// used when no Places API key is configured.
type StaticFinder struct{}

// Find returns a single nearby placeholder site
func (StaticFinder) Find(_ context.Context, at types.Coordinates, _ string) ([]types.Place, error) {
	if err := ValidateCoordinates(at); err != nil {
		return nil, err
	}
	site := types.Place{
		Name:      "Community Food Bank",
		Address:   "123 Main St, Minneapolis, MN",
		Latitude:  at.Latitude + 0.01,
		Longitude: at.Longitude + 0.01,
	}
	site.DistanceMeters = math.Round(Distance(at, types.Coordinates{Latitude: site.Latitude, Longitude: site.Longitude}))
	site.DirectionsURL = DirectionsURL(site.Latitude, site.Longitude)
	return []types.Place{site}, nil
}

// ValidateCoordinates checks latitude and longitude ranges
func ValidateCoordinates(c types.Coordinates) error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 ||
		c.Longitude < -180 || c.Longitude > 180 {
		return eris.Wrapf(ErrInvalidCoordinates, "places: %v,%v", c.Latitude, c.Longitude)
	}
	return nil
}

// DirectionsURL builds a Google Maps directions link to the given point
func DirectionsURL(lat, lng float64) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// Distance returns the great-circle distance between two points in meters
func Distance(a, b types.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
