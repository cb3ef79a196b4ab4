package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlens/giftlens/internal/cache"
)

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "giftlens", r.Header.Get("X-Title"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		// Out of order on purpose.
		resp := EmbeddingResponse{Data: []EmbeddingData{
			{Index: 1, Embedding: []float32{0, 1}},
			{Index: 0, Embedding: []float32{1, 0}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: server.URL + "/", Title: "giftlens"})
	require.NoError(t, err)

	vecs, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, 2, client.Dimension())
	assert.Equal(t, "test-model", client.Model())
}

func TestClient_EmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "bad key")
}

func TestClient_EmbedMissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	vecs, err := h.Embed(ctx, []string{
		"yoga mat for fitness",
		"yoga mat for fitness",
		"fitness yoga block",
		"ceramic coffee mug",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	for _, v := range vecs {
		assert.Len(t, v, 256)
		assert.InDelta(t, 1.0, dot(v, v), 1e-5)
	}
	assert.Equal(t, vecs[0], vecs[1])
	assert.Greater(t, dot(vecs[0], vecs[2]), dot(vecs[0], vecs[3]))
	assert.Equal(t, "hash-bow", h.Model())
}

func TestSingle(t *testing.T) {
	v, err := Single(context.Background(), NewHashEmbedder(8), "gift")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestNormalize(t *testing.T) {
	in := []float32{3, 4}
	out := Normalize(in)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, in, "input must not be mutated")

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.4028235e38}
	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestTextHash(t *testing.T) {
	assert.Equal(t, TextHash("a"), TextHash("a"))
	assert.NotEqual(t, TextHash("a"), TextHash("b"))
	assert.Len(t, TextHash("a"), 64)
}

type countingEmbedder struct {
	inner Embedder
	calls atomic.Int32
	texts atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Model() string  { return c.inner.Model() }
func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func TestCachedEmbedder(t *testing.T) {
	mem := cache.NewMemoryClient(100)
	defer mem.Close()

	inner := &countingEmbedder{inner: NewHashEmbedder(16)}
	ce := NewCachedEmbedder(inner, mem, time.Minute)
	ctx := context.Background()

	first, err := ce.Embed(ctx, []string{"yoga", "mug"})
	require.NoError(t, err)

	second, err := ce.Embed(ctx, []string{"mug", "lamp", "yoga"})
	require.NoError(t, err)

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, int32(3), inner.texts.Load(), "only the miss is embedded on the second call")
}

func TestCachedEmbedder_PropagatesErrors(t *testing.T) {
	mem := cache.NewMemoryClient(10)
	defer mem.Close()

	boom := errors.New("boom")
	ce := NewCachedEmbedder(&countingEmbedder{inner: NewHashEmbedder(4), err: boom}, mem, time.Minute)
	_, err := ce.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestCachedEmbedder_NilCache(t *testing.T) {
	ce := NewCachedEmbedder(NewHashEmbedder(4), nil, 0)
	v, err := ce.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, v, 1)
	assert.Equal(t, 4, ce.Dimension())
}
