package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashEmbedder produces deterministic bag-of-words vectors by hashing
// lower-cased tokens into a fixed number of buckets. Texts that share words
// score higher against each other, which is enough for offline use and tests.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hashing embedder.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed generates hashed embeddings.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum64()
		bucket := int(sum % uint64(h.dimension))
		if sum&(1<<63) != 0 {
			v[bucket] -= 1
		} else {
			v[bucket] += 1
		}
	}
	if len(tokens) == 0 {
		// Keep empty text distinguishable from the zero vector.
		v[0] = 1
	}
	return Normalize(v)
}

// Model returns the hashing model name.
func (h *HashEmbedder) Model() string {
	return "hash-bow"
}

// Dimension returns the embedding dimension.
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

var _ Embedder = (*HashEmbedder)(nil)
