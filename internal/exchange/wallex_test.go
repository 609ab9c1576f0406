package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	wallex "github.com/wallexchange/wallex-go"
)

type mockTradesClient struct {
	mock.Mock
}

func (m *mockTradesClient) MarketTrades(symbol string) ([]*wallex.MarketTrade, error) {
	args := m.Called(symbol)
	trades, _ := args.Get(0).([]*wallex.MarketTrade)
	return trades, args.Error(1)
}

func TestWallexExchange_FetchPrice(t *testing.T) {
	client := &mockTradesClient{}
	client.On("MarketTrades", "BTCUSDT").Return([]*wallex.MarketTrade{
		{Price: wallex.Number("64250.5")},
		{Price: wallex.Number("64200")},
	}, nil)
	ex := &WallexExchange{client: client, market: "BTCUSDT"}

	price, err := ex.FetchPrice(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "64250.5", price.String())
	client.AssertExpectations(t)
}

func TestWallexExchange_Errors(t *testing.T) {
	tests := []struct {
		name     string
		trades   []*wallex.MarketTrade
		err      error
		notFound bool
	}{
		{name: "sdk error", err: errors.New("connection reset")},
		{name: "no trades", trades: []*wallex.MarketTrade{}, notFound: true},
		{name: "unparsable price", trades: []*wallex.MarketTrade{{Price: wallex.Number("abc")}}},
		{name: "negative price", trades: []*wallex.MarketTrade{{Price: wallex.Number("-1")}}, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockTradesClient{}
			client.On("MarketTrades", "BTCUSDT").Return(tt.trades, tt.err)
			ex := &WallexExchange{client: client, market: "BTCUSDT"}

			_, err := ex.FetchPrice(context.Background())

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "wallex", fe.Source)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrPriceNotFound))
		})
	}
}

func TestWallexExchange_CanceledContext(t *testing.T) {
	client := &mockTradesClient{}
	ex := &WallexExchange{client: client, market: "BTCUSDT"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.FetchPrice(ctx)

	assert.True(t, errors.Is(err, context.Canceled))
	client.AssertNotCalled(t, "MarketTrades", mock.Anything)
}
