//go:build llama

// Package local runs a GGUF sentence-embedding model in-process. It links
// llama.cpp and is only built with the llama tag.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelindar/search"

	"github.com/giftlens/giftlens/internal/embedding"
)

// Embedder runs a GGUF model via kelindar/search.
type Embedder struct {
	mu         sync.Mutex
	vectorizer *search.Vectorizer
	model      string
	dimension  int
}

// New loads the model at modelPath. Set gpuLayers > 0 to offload
// layers to the GPU.
func New(modelPath string, gpuLayers int) (*Embedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: model path is required", embedding.ErrModelUnavailable)
	}

	vectorizer, err := search.NewVectorizer(modelPath, gpuLayers)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing vectorizer from %s: %v", embedding.ErrModelUnavailable, modelPath, err)
	}

	return &Embedder{
		vectorizer: vectorizer,
		model:      strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
	}, nil
}

// Embed generates embeddings one text at a time. The vectorizer is not safe
// for concurrent use, so calls are serialised.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vectorizer == nil {
		return nil, fmt.Errorf("%w: embedder closed", embedding.ErrModelUnavailable)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.vectorizer.EmbedText(text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
		e.dimension = len(vec)
	}
	return out, nil
}

// Model returns the model file name without extension.
func (e *Embedder) Model() string {
	return e.model
}

// Dimension returns the embedding dimension, known after the first call.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// Close releases the model.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vectorizer == nil {
		return nil
	}
	err := e.vectorizer.Close()
	e.vectorizer = nil
	return err
}

var _ embedding.Embedder = (*Embedder)(nil)
