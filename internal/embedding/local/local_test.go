//go:build llama

package local

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlens/giftlens/internal/embedding"
)

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("", 0)
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}

func TestNew_MissingModelFile(t *testing.T) {
	_, err := New("/nonexistent/all-minilm-l6-v2.gguf", 0)
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}

func TestEmbed(t *testing.T) {
	path := os.Getenv("GIFTLENS_TEST_GGUF")
	if path == "" {
		t.Skip("GIFTLENS_TEST_GGUF not set")
	}

	e, err := New(path, 0)
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.Embed(context.Background(), []string{"yoga mat", "coffee mug"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEmpty(t, vecs[0])
	assert.Equal(t, len(vecs[0]), e.Dimension())

	require.NoError(t, e.Close())
	_, err = e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}
