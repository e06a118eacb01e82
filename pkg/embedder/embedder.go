package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/viterin/vek/vek32"
)

// Client produces embedding vectors for texts.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Config configures an embedding client.
type Config struct {
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
	// BatchSize bounds the texts sent per request.
	BatchSize int `json:"batch_size"`
	// Dimensions is the length of returned vectors. Zero uses the model's
	// native size.
	Dimensions int `json:"dimensions"`
}

var (
	errNonPositiveDims = errors.New("dims must be positive")
	errDimsTooLarge    = errors.New("dims exceeds vector length")
)

// Truncate returns the first dims components of vec scaled to unit length.
// A zero prefix is returned unscaled.
func Truncate(vec []float32, dims int) ([]float32, error) {
	if dims <= 0 {
		return nil, errNonPositiveDims
	}
	if dims > len(vec) {
		return nil, fmt.Errorf("%w: %d > %d", errDimsTooLarge, dims, len(vec))
	}
	out := make([]float32, dims)
	copy(out, vec[:dims])
	norm := vek32.Norm(out)
	if norm == 0 {
		return out, nil
	}
	return vek32.DivNumber(out, norm), nil
}

func single(vecs [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vecs[0], nil
}
