package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.TicksTotal.Inc()
	a.TicksTotal.Inc()
	b.TicksTotal.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.TicksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.TicksTotal))
}

func TestTradesTotal_Labels(t *testing.T) {
	m := New()
	m.TradesTotal.WithLabelValues("BUY", "rsi oversold").Inc()
	m.TradesTotal.WithLabelValues("SELL", "target").Inc()
	m.TradesTotal.WithLabelValues("SELL", "target").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("BUY", "rsi oversold")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("SELL", "target")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.LastRSI.Set(25)
	m.FetchErrors.WithLabelValues("coingecko").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rsitrader_last_rsi 25")
	assert.Contains(t, string(body), `rsitrader_fetch_errors_total{source="coingecko"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
