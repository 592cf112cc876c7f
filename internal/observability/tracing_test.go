package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "recipe-exchange-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := StartServiceSpan(context.Background(), "VoteService", "Vote")
	assert.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.End()
}

func TestInitTracing_ExporterErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  TracingConfig
	}{
		{"unknown exporter", TracingConfig{ServiceName: "x", Enabled: true, Exporter: "zipkin"}},
		{"otlp without endpoint", TracingConfig{ServiceName: "x", Enabled: true, Exporter: "otlp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitTracing(context.Background(), tt.cfg)
			assert.ErrorContains(t, err, "tracing exporter")
		})
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		root  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(samplerFor(tt.ratio).Description(), "ParentBased{root:"+tt.root+","),
			"ratio %v: %s", tt.ratio, samplerFor(tt.ratio).Description())
	}
}

func TestRecordAuthEvent(t *testing.T) {
	before := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", "failure"))
	RecordAuthEvent("login", errors.New("bad password"))
	after := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", "failure"))
	assert.Equal(t, before+1, after)
}
