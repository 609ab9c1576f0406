package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder records requested backoffs instead of waiting.
type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func (s *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

// scriptedServer answers with the given status codes in order, then with body.
func scriptedServer(t *testing.T, statuses []int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n < len(statuses) {
			w.WriteHeader(statuses[n])
			_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestExchange(url string, sleeper *sleepRecorder) *CoinGeckoExchange {
	return NewCoinGeckoExchange(CoinGeckoOptions{
		BaseURL:  url,
		Symbol:   "bitcoin",
		Currency: "gbp",
		Sleep:    sleeper.Sleep,
	})
}

func TestCoinGecko_FetchPrice(t *testing.T) {
	srv, calls := scriptedServer(t, nil, `{"bitcoin":{"gbp":51234.56}}`)
	sleeper := &sleepRecorder{}

	price, err := newTestExchange(srv.URL, sleeper).FetchPrice(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "51234.56", price.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, sleeper.delays)
}

func TestCoinGecko_RequestQuery(t *testing.T) {
	var gotIDs, gotCurrencies string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		gotCurrencies = r.URL.Query().Get("vs_currencies")
		_, _ = w.Write([]byte(`{"bitcoin":{"gbp":1}}`))
	}))
	defer srv.Close()

	_, err := newTestExchange(srv.URL, &sleepRecorder{}).FetchPrice(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "bitcoin", gotIDs)
	assert.Equal(t, "gbp", gotCurrencies)
}

func TestCoinGecko_RetriesRateLimitWithBackoff(t *testing.T) {
	srv, calls := scriptedServer(t, []int{429, 429, 429}, `{"bitcoin":{"gbp":100}}`)
	sleeper := &sleepRecorder{}
	var observed []int
	ex := NewCoinGeckoExchange(CoinGeckoOptions{
		BaseURL:  srv.URL,
		Symbol:   "bitcoin",
		Currency: "gbp",
		Sleep:    sleeper.Sleep,
		OnRetry:  func(attempt int, _ time.Duration) { observed = append(observed, attempt) },
	})

	price, err := ex.FetchPrice(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "100", price.String())
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, 7*time.Second, sleeper.total())
	assert.Equal(t, []int{0, 1, 2}, observed)
}

func TestCoinGecko_MaxRetriesExceeded(t *testing.T) {
	srv, calls := scriptedServer(t, []int{429, 429, 429, 429, 429}, `{"bitcoin":{"gbp":100}}`)
	sleeper := &sleepRecorder{}

	_, err := newTestExchange(srv.URL, sleeper).FetchPrice(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.True(t, errors.Is(err, ErrRateLimited))
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusTooManyRequests, fe.Status)
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeper.delays)
}

func TestCoinGecko_ServerErrorIsNotRetried(t *testing.T) {
	srv, calls := scriptedServer(t, []int{500}, `{"bitcoin":{"gbp":100}}`)
	sleeper := &sleepRecorder{}

	_, err := newTestExchange(srv.URL, sleeper).FetchPrice(context.Background())

	require.Error(t, err)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.Status)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, sleeper.delays)
}

func TestCoinGecko_ErrorAfterRateLimitStopsRetrying(t *testing.T) {
	srv, calls := scriptedServer(t, []int{429, 503}, `{"bitcoin":{"gbp":100}}`)
	sleeper := &sleepRecorder{}

	_, err := newTestExchange(srv.URL, sleeper).FetchPrice(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
	assert.False(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{time.Second}, sleeper.delays)
}

func TestCoinGecko_MalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		notFound bool
	}{
		{name: "invalid json", body: `{"bitcoin":`},
		{name: "missing symbol", body: `{"ethereum":{"gbp":10}}`, notFound: true},
		{name: "missing currency", body: `{"bitcoin":{"usd":10}}`, notFound: true},
		{name: "zero price", body: `{"bitcoin":{"gbp":0}}`, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, nil, tt.body)

			_, err := newTestExchange(srv.URL, &sleepRecorder{}).FetchPrice(context.Background())

			require.Error(t, err)
			var fe *FetchError
			assert.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.notFound, errors.Is(err, ErrPriceNotFound))
			assert.Equal(t, int32(1), atomic.LoadInt32(calls))
		})
	}
}

func TestCoinGecko_BackoffInterrupted(t *testing.T) {
	srv, calls := scriptedServer(t, []int{429, 429}, `{"bitcoin":{"gbp":100}}`)
	sleeper := &sleepRecorder{err: context.Canceled}

	_, err := newTestExchange(srv.URL, sleeper).FetchPrice(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCoinGecko_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestExchange(url, &sleepRecorder{}).FetchPrice(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.Status)
}

func TestCoinGecko_Defaults(t *testing.T) {
	ex := NewCoinGeckoExchange(CoinGeckoOptions{Symbol: "bitcoin", Currency: "gbp"})

	assert.Equal(t, "coingecko", ex.Name())
	assert.Equal(t, DefaultMaxRetries, ex.maxRetries)
	assert.Equal(t, DefaultInitialBackoff, ex.initialBackoff)

	u, err := ex.URL()
	require.NoError(t, err)
	assert.Equal(t, DefaultCoinGeckoURL+"?ids=bitcoin&vs_currencies=gbp", u)
}

func TestBackoffDelay(t *testing.T) {
	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for attempt, want := range expected {
		assert.Equal(t, want, backoffDelay(time.Second, attempt))
	}
}

func TestBackoffDelay_Capped(t *testing.T) {
	tests := []struct {
		initial time.Duration
		attempt int
		want    time.Duration
	}{
		{time.Second, 11, 2048 * time.Second},
		{time.Second, 12, maxBackoff},
		{time.Second, 34, maxBackoff},
		{time.Second, 63, maxBackoff},
		{time.Second, 200, maxBackoff},
		{2 * time.Hour, 0, maxBackoff},
	}
	for _, tt := range tests {
		got := backoffDelay(tt.initial, tt.attempt)
		assert.Equal(t, tt.want, got, "initial=%v attempt=%d", tt.initial, tt.attempt)
		assert.Positive(t, got)
	}
}

func TestCoinGecko_LongRetryChainNeverSkipsBackoff(t *testing.T) {
	srv, calls := scriptedServer(t, repeat(http.StatusTooManyRequests, 40), `{}`)
	sleeper := &sleepRecorder{}
	ex := NewCoinGeckoExchange(CoinGeckoOptions{
		BaseURL:        srv.URL,
		Symbol:         "bitcoin",
		Currency:       "gbp",
		MaxRetries:     40,
		InitialBackoff: time.Second,
		Sleep:          sleeper.Sleep,
	})

	_, err := ex.FetchPrice(context.Background())

	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.EqualValues(t, 40, atomic.LoadInt32(calls))
	require.Len(t, sleeper.delays, 39)
	for i, d := range sleeper.delays {
		assert.Positive(t, d, "backoff %d", i)
		assert.LessOrEqual(t, d, maxBackoff, "backoff %d", i)
	}
}

func repeat(status, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = status
	}
	return out
}
