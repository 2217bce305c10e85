package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "no samples observed yet, but registration itself must not error")
}

func TestRecordsWritten_IncrementsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordsWritten.WithLabelValues("ticker", "Binance").Inc()
	m.RecordsWritten.WithLabelValues("ticker", "Binance").Inc()
	m.RecordsWritten.WithLabelValues("trade", "Kraken").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
