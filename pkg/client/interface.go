package client

import (
	"context"

	"github.com/menta2k/bin-go/pkg/types"
)

// VisionClient is implemented by every image classification backend
type VisionClient interface {
	SimpleQuery(ctx context.Context, prompt, imgB64 string) (string, error)
	PredictLabel(ctx context.Context, imgB64 string) (*types.Prediction, error)
}
