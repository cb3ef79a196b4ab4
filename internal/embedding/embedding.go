// Package embedding provides sentence-embedding providers and a persistent
// store for computed product vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrModelUnavailable indicates the embedding model could not be loaded or
// reached. Retrieval degrades to the non-semantic tiers when it occurs.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder defines the interface for embedding generation.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// Single embeds one text.
func Single(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

// Normalize returns an L2-normalised copy of v. Zero vectors are copied as is.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
