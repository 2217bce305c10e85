package subscribe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinance_ParamsCoverBothStreams(t *testing.T) {
	frames, err := Binance([]string{"btcusdt", "ethusdt"})
	require.NoError(t, err)
	require.Len(t, frames, 1)

	var got struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &got))
	assert.Equal(t, "SUBSCRIBE", got.Method)
	assert.ElementsMatch(t, []string{"btcusdt@ticker", "btcusdt@trade", "ethusdt@ticker", "ethusdt@trade"}, got.Params)
}

func TestCoinbase_SubscribesTickerAndMatches(t *testing.T) {
	frames, err := Coinbase([]string{"BTC-USD"})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), `"name":"ticker"`)
	assert.Contains(t, string(frames[0]), `"name":"matches"`)
}

func TestKraken_TwoFramesPerChunk(t *testing.T) {
	frames, err := Kraken([]string{"XBT/USD"})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Contains(t, string(frames[0]), `"name":"ticker"`)
	assert.Contains(t, string(frames[1]), `"name":"trade"`)
}

func TestHuobi_FramePairPerSymbol(t *testing.T) {
	frames, err := Huobi([]string{"btcusdt", "ethusdt"})
	require.NoError(t, err)
	require.Len(t, frames, 4)
	assert.Contains(t, string(frames[0]), `market.btcusdt.ticker`)
	assert.Contains(t, string(frames[1]), `market.btcusdt.trade.detail`)
	assert.Contains(t, string(frames[2]), `market.ethusdt.ticker`)
}

func TestOKX_TickersAndTradesFrames(t *testing.T) {
	frames, err := OKX([]string{"BTC-USDT"})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Contains(t, string(frames[0]), `"channel":"tickers"`)
	assert.Contains(t, string(frames[1]), `"channel":"trades"`)
}

func TestBitfinex_SingleSymbolOnly(t *testing.T) {
	frames, err := Bitfinex([]string{"tBTCUSD", "tETHUSD"})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), "tBTCUSD")
	assert.NotContains(t, string(frames[0]), "tETHUSD")
}

func TestBitfinex_EmptyChunk(t *testing.T) {
	frames, err := Bitfinex(nil)
	require.NoError(t, err)
	assert.Nil(t, frames)
}
