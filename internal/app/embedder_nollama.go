//go:build !llama

package app

import (
	"fmt"

	"github.com/giftlens/giftlens/internal/config"
	"github.com/giftlens/giftlens/internal/embedding"
)

// Without the llama tag the binary does not link llama.cpp, so the local
// provider is reported as unavailable and retrieval runs degraded.
func newLocalEmbedder(config.EmbeddingConfig) (embedding.Embedder, error) {
	return nil, fmt.Errorf("%w: local provider requires a build with -tags llama", embedding.ErrModelUnavailable)
}
