package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "giftlens-test"})

	ctx := ContextWithTraceID(context.Background(), "req-42")
	logger.WithContext(ctx).WithComponent("retrieval").Info().Int("top_k", 5).Msg("ranked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "giftlens-test", entry["service"])
	assert.Equal(t, "req-42", entry["trace_id"])
	assert.Equal(t, "retrieval", entry["component"])
	assert.Equal(t, "ranked", entry["message"])
	assert.EqualValues(t, 5, entry["top_k"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		warning bool
	}{
		{level: "debug", debug: true, warning: true},
		{level: "warn", debug: false, warning: true},
		{level: " WARN ", debug: false, warning: true},
		{level: "", debug: false, warning: true},
		{level: "error", debug: false, warning: false},
		{level: "bogus", debug: false, warning: true},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LogConfig{Level: tc.level, Output: &buf})

			logger.Debug().Msg("d")
			assert.Equal(t, tc.debug, buf.Len() > 0)

			buf.Reset()
			logger.Warn().Msg("w")
			assert.Equal(t, tc.warning, buf.Len() > 0)
		})
	}
}

func TestTraceIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveRetrieval("semantic")
	m.ObserveRetrieval("semantic")
	m.ObserveRetrieval("keyword")
	m.ObserveLLM("recommend", "ok", 1.5)
	m.SetIndex(120, 118, 3.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetrievalTier.WithLabelValues("semantic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalTier.WithLabelValues("keyword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues("recommend", "ok")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.CatalogSize))
	assert.Equal(t, 118.0, testutil.ToFloat64(m.IndexSize))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRetrieval("semantic")
		m.ObserveRank(0.1)
		m.ObserveLLM("notes", "error", 0.2)
		m.SetIndex(1, 1, 0)
	})
}
