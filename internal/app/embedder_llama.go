//go:build llama

package app

import (
	"github.com/giftlens/giftlens/internal/config"
	"github.com/giftlens/giftlens/internal/embedding"
	"github.com/giftlens/giftlens/internal/embedding/local"
)

func newLocalEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	e, err := local.New(cfg.ModelPath, cfg.GPULayers)
	if err != nil {
		return nil, err
	}
	return e, nil
}
