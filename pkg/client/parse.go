package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/bin-go/pkg/types"
)

// NoneLabel is returned when the model saw nothing it could name
const NoneLabel = "none"

// LabelPrompt asks a chat vision model for a single material label
const LabelPrompt = `You are a waste sorting assistant.

Look at the single most prominent item in the photo and name what it is mostly made of.

Return JSON only:
{"label": "string", "confidence": 0.0}

RULES
- label must be exactly one of: plastic, cardboard, paper, metal, glass, banana, food, organic, compost, textile, electronics, styrofoam, rubber, other.
- confidence is your certainty in [0,1].
- If no item is visible, return {"label":"none","confidence":0.0}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ProbePrompt checks whether the model can see the image at all
const ProbePrompt = `What do you see in this image? Describe it briefly.`

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParsePrediction extracts a prediction from a chat model reply. Replies
// that contain no usable JSON yield a none prediction rather than an error.
func ParsePrediction(raw string) *types.Prediction {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return &types.Prediction{Label: NoneLabel}
	}

	var p types.Prediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return &types.Prediction{Label: NoneLabel}
	}

	p.Label = strings.ToLower(strings.TrimSpace(p.Label))
	if p.Label == "" {
		p.Label = NoneLabel
	}
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	return &p
}

// SanitizeModelJSON removes code fences, comments and trailing commas and
// keeps only the outermost object
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
