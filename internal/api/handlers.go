package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bingo "github.com/menta2k/bin-go"
	"github.com/menta2k/bin-go/internal/telemetry"
	"github.com/menta2k/bin-go/pkg/flight"
	"github.com/menta2k/bin-go/pkg/places"
	"github.com/menta2k/bin-go/pkg/processing"
	"github.com/menta2k/bin-go/pkg/types"
)

const (
	sessionHeader = "X-Session-ID"

	detailNoText      = "no text provided"
	detailInvalidBody = "invalid request body"
	detailInternal    = "internal error"
	detailNoImage     = "no image provided"
	detailBadImage    = "invalid image"
	detailTooLarge    = "image too large"
	detailInFlight    = "request already in flight"
	detailBadCoords   = "invalid coordinates"
	detailNoAction    = "unknown action"
)

// Tracked actions
const (
	ActionAnalyzeImage  = "analyze_image"
	ActionDonationSites = "donation_sites"
)

var trackedActions = map[string]bool{
	ActionAnalyzeImage:  true,
	ActionDonationSites: true,
}

// ErrNoText is returned when a text classification request has no text
var ErrNoText = errors.New("api: no text provided")

var (
	errInvalidBody = errors.New("api: invalid request body")
	errAborted     = errors.New("api: request aborted")
)

// Handler serves the classification and donation site endpoints
type Handler struct {
	bingo          *bingo.BinGo
	tracker        *flight.Tracker
	metrics        *telemetry.Provider
	maxUploadBytes int64
}

// NewHandler creates a handler. metrics may be nil.
func NewHandler(bg *bingo.BinGo, tracker *flight.Tracker, metrics *telemetry.Provider, maxUploadBytes int64) *Handler {
	if tracker == nil {
		tracker = flight.NewTracker()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = processing.DefaultMaxBytes
	}
	if metrics != nil {
		if err := metrics.ObserveTrackedRequests(tracker.Len); err != nil {
			zap.L().Warn("tracked requests gauge not registered", zap.Error(err))
		}
	}
	return &Handler{
		bingo:          bg,
		tracker:        tracker,
		metrics:        metrics,
		maxUploadBytes: maxUploadBytes,
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type imageRequest struct {
	Image string `json:"image"`
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "bin-go", "version": bingo.Version})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AnalyzeText handles POST /analyze
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondDetail(c, http.StatusBadRequest, detailInvalidBody)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		_ = c.Error(ErrNoText)
		respondDetail(c, http.StatusBadRequest, detailNoText)
		return
	}

	res := h.bingo.ClassifyText(req.Text)
	h.record(res)
	c.JSON(http.StatusOK, res)
}

// AnalyzeLabel handles POST /api/v1/analyze/label
func (h *Handler) AnalyzeLabel(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondDetail(c, http.StatusBadRequest, detailInvalidBody)
		return
	}

	res := h.bingo.ClassifyLabel(req.Label)
	h.record(res)
	c.JSON(http.StatusOK, res)
}

// AnalyzeImage handles POST /api/v1/analyze/image with either a multipart
// "image" file or a JSON body carrying base64 or a data URL
func (h *Handler) AnalyzeImage(c *gin.Context) {
	key := flight.Key(ActionAnalyzeImage, callerID(c))
	if !h.begin(c, key, ActionAnalyzeImage) {
		return
	}

	var res types.Result
	err := h.track(key, func() (err error) {
		res, err = h.analyzeImage(c)
		return err
	})
	if err != nil {
		h.respondImageError(c, err)
		return
	}

	h.record(res)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) analyzeImage(c *gin.Context) (types.Result, error) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes*2)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return types.Result{}, processing.ErrImageTooLarge
			}
			return types.Result{}, bingo.ErrNoImage
		}
		if fh.Size > h.maxUploadBytes {
			return types.Result{}, processing.ErrImageTooLarge
		}
		f, err := fh.Open()
		if err != nil {
			return types.Result{}, err
		}
		defer f.Close() //nolint:errcheck

		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
		if err != nil {
			return types.Result{}, err
		}
		if int64(len(data)) > h.maxUploadBytes {
			return types.Result{}, processing.ErrImageTooLarge
		}
		return h.bingo.ClassifyImage(ctx, data)
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return types.Result{}, processing.ErrImageTooLarge
		}
		return types.Result{}, errInvalidBody
	}
	return h.bingo.ClassifyImageBase64(ctx, req.Image)
}

func (h *Handler) respondImageError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, bingo.ErrNoImage):
		respondDetail(c, http.StatusBadRequest, detailNoImage)
	case errors.Is(err, errInvalidBody):
		respondDetail(c, http.StatusBadRequest, detailInvalidBody)
	case errors.Is(err, processing.ErrImageTooLarge):
		respondDetail(c, http.StatusRequestEntityTooLarge, detailTooLarge)
	case errors.Is(err, processing.ErrImageTooSmall),
		errors.Is(err, processing.ErrUnknownFormat),
		errors.Is(err, processing.ErrInvalidEncoding):
		respondDetail(c, http.StatusBadRequest, detailBadImage)
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondDetail(c, http.StatusRequestEntityTooLarge, detailTooLarge)
			return
		}
		requestLogger(c).Error("image classification failed", zap.Error(err))
		respondDetail(c, http.StatusInternalServerError, detailInternal)
	}
}

// DonationSites handles GET /api/v1/donation-sites?lat=&lng=&keyword=
func (h *Handler) DonationSites(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondDetail(c, http.StatusBadRequest, detailBadCoords)
		return
	}
	at := types.Coordinates{Latitude: lat, Longitude: lng}
	if err := places.ValidateCoordinates(at); err != nil {
		respondDetail(c, http.StatusBadRequest, detailBadCoords)
		return
	}

	key := flight.Key(ActionDonationSites, callerID(c))
	if !h.begin(c, key, ActionDonationSites) {
		return
	}

	var sites []types.Place
	err := h.track(key, func() (err error) {
		sites, err = h.bingo.FindDonationSites(c.Request.Context(), at, c.Query("keyword"))
		return err
	})
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, places.ErrInvalidCoordinates) {
			respondDetail(c, http.StatusBadRequest, detailBadCoords)
			return
		}
		requestLogger(c).Error("donation site search failed", zap.Error(err))
		respondDetail(c, http.StatusInternalServerError, detailInternal)
		return
	}
	if sites == nil {
		sites = []types.Place{}
	}

	c.JSON(http.StatusOK, gin.H{"sites": sites, "count": len(sites)})
}

// RequestState handles GET /api/v1/requests/:action
func (h *Handler) RequestState(c *gin.Context) {
	action := c.Param("action")
	if !trackedActions[action] {
		respondDetail(c, http.StatusNotFound, detailNoAction)
		return
	}
	state := h.tracker.State(flight.Key(action, callerID(c)))
	c.JSON(http.StatusOK, gin.H{"action": action, "state": state})
}

func (h *Handler) begin(c *gin.Context, key, action string) bool {
	if err := h.tracker.Begin(key); err != nil {
		if h.metrics != nil {
			h.metrics.RecordInFlightRejected(action)
		}
		respondDetail(c, http.StatusConflict, detailInFlight)
		return false
	}
	return true
}

// track runs fn while key is in flight. A panic in fn leaves key failed.
func (h *Handler) track(key string, fn func() error) error {
	err := errAborted
	defer func() { h.tracker.Finish(key, err) }()
	err = fn()
	return err
}

func (h *Handler) record(res types.Result) {
	if h.metrics != nil {
		h.metrics.RecordClassification(res)
	}
}

// callerID identifies a session by X-Session-ID, falling back to client IP
func callerID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(sessionHeader)); id != "" {
		return id
	}
	return c.ClientIP()
}

func respondDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
