package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlens/giftlens/internal/config"
	"github.com/giftlens/giftlens/internal/embedding"
	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/recommend"
	"github.com/giftlens/giftlens/internal/retrieval"
	"github.com/giftlens/giftlens/internal/state"
)

func testConfig(t *testing.T, llmURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\nb\nc\nname,main_category,actual_price\nYoga Mat,Fitness,₹999\nCoffee Mug,Home,₹349\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Catalog.Path = csvPath
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 64
	cfg.Database.SQLite.Path = filepath.Join(dir, "emb.db")
	cfg.LLM.BaseURL = llmURL
	cfg.LLM.APIKey = "k"
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Content: `{"interests":["yoga"]}`}}}})
	}))
	defer server.Close()

	ctx := context.Background()
	a, err := New(ctx, testConfig(t, server.URL), nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	assert.Equal(t, "hash-bow", a.EmbeddingModel())

	_, err = a.Recommend(ctx, recommend.Request{Prompt: "yoga"})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "starting", a.Health().Status)

	require.NoError(t, a.State.Run(ctx))
	assert.Equal(t, state.PhaseReady, a.State.Phase())

	health := a.Health()
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.ProductsLoaded)
	assert.True(t, health.EmbeddingIndexActive)

	resp, err := a.Recommend(ctx, recommend.Request{Prompt: "yoga"})
	require.NoError(t, err)
	assert.Equal(t, retrieval.TierSemantic, resp.Retrieval.Tier)
	assert.Equal(t, 2, resp.Retrieval.Candidates)

	n, err := a.Store.Count(ctx, "hash-bow")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, _ := a.Recommender()
	second, _ := a.Recommender()
	assert.Same(t, first, second)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "hash", Dimension: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, e.Dimension())

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "remote"})
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "local"})
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "quantum"})
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}

func TestNew_MissingModelDegrades(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Embedding.Provider = "remote"
	cfg.Embedding.APIKey = ""
	cfg.Database.Driver = "none"

	a, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Embedder)
	assert.Nil(t, a.Store)
	require.NoError(t, a.State.Run(context.Background()))
	assert.Equal(t, state.PhaseDegraded, a.State.Phase())
}

func TestNew_LocalModelUnavailableDegrades(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Embedding.Provider = "local"
	cfg.Embedding.ModelPath = filepath.Join(t.TempDir(), "all-minilm-l6-v2.gguf")
	cfg.Database.Driver = "none"

	a, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Embedder)
	require.NoError(t, a.State.Run(context.Background()))
	assert.Equal(t, state.PhaseDegraded, a.State.Phase())
	assert.Equal(t, "healthy", a.Health().Status)
	assert.False(t, a.Health().EmbeddingIndexActive)
}

func TestNewCache_RedisUnavailableFallsBack(t *testing.T) {
	cfg := config.DefaultConfig().Cache
	cfg.Driver = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	c := NewCache(context.Background(), cfg, nil)
	defer c.Close()
	_, isMemory := c.(interface{ Len() int })
	assert.True(t, isMemory)
}
