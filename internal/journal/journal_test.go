package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, j Journaler) {
	t.Helper()
	ctx := context.Background()
	events := []Event{
		{Time: base, Type: TypeTrade, Description: "BUY", Data: map[string]any{"price": "100"}},
		{Time: base.Add(time.Minute), Type: TypeError, Description: "fetch failed"},
		{Time: base.Add(2 * time.Minute), Type: TypeTrade, Description: "SELL", Data: map[string]any{"price": "104", "reason": "target"}},
	}
	for _, e := range events {
		require.NoError(t, j.LogEvent(ctx, e))
	}
}

// exerciseJournal runs the same checks against every backend.
func exerciseJournal(t *testing.T, j Journaler) {
	seed(t, j)
	ctx := context.Background()

	trades, err := j.GetEvents(ctx, TypeTrade, time.Time{}, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "BUY", trades[0].Description)
	assert.Equal(t, "SELL", trades[1].Description)
	assert.True(t, trades[1].Time.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "target", trades[1].Data["reason"])

	windowed, err := j.GetEvents(ctx, TypeTrade, base.Add(30*time.Second), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "SELL", windowed[0].Description)

	errs, err := j.GetEvents(ctx, TypeError, time.Time{}, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Empty(t, errs[0].Data)
}

func TestMemoryJournal(t *testing.T) {
	j := NewMemory(0)
	defer j.Close()

	exerciseJournal(t, j)
}

func TestMemoryJournal_Capacity(t *testing.T) {
	j := NewMemory(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.LogEvent(ctx, Event{Time: base.Add(time.Duration(i) * time.Second), Type: TypeTrade}))
	}

	events, err := j.GetEvents(ctx, TypeTrade, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Time.Equal(base.Add(3*time.Second)))
}

func TestSQLJournal_SQLite(t *testing.T) {
	j, err := OpenSQL(context.Background(), DriverSQLite, "file::memory:?cache=shared")
	if err != nil {
		t.Skipf("Skipping test: sqlite3 driver not usable (cgo disabled?): %v", err)
	}
	defer j.Close()

	exerciseJournal(t, j)
}

func TestSQLJournal_Postgres(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping test: JOURNAL_TEST_POSTGRES_DSN not set")
	}
	j, err := OpenSQL(context.Background(), DriverPostgres, dsn)
	require.NoError(t, err)
	defer j.Close()

	_, err = j.db.Exec(`DELETE FROM events`)
	require.NoError(t, err)

	exerciseJournal(t, j)
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mongo", "x")

	assert.ErrorContains(t, err, "unsupported journal driver")
}

func TestRebind(t *testing.T) {
	pg := &SQLJournal{driver: DriverPostgres}
	lite := &SQLJournal{driver: DriverSQLite}
	query := `SELECT a FROM t WHERE b = ? AND c = ?`

	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c = $2`, pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}
