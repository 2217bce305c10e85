package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketfeed/internal/mapper"
)

func TestBinance_Trade(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1700000000000,"s":"BTCUSDT","p":"50000.10","q":"0.5","t":12345,"m":true}}`)

	res, err := Binance(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "BTC-USD", res.Trade.Symbol)
	assert.Equal(t, "50000.10", res.Trade.Price)
	assert.Equal(t, "0.5", res.Trade.Size)
	assert.True(t, res.Trade.MarketMaker)
	assert.Nil(t, res.Ticker)
}

func TestBinance_Ticker(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"stream":"btcusdt@ticker","data":{"e":"24hrTicker","E":1700000000000,"s":"BTCUSDT","c":"50000.00","b":"49999","B":"1","a":"50001","A":"1","o":"49000","h":"51000","l":"48000","v":"1000","q":"50000000"}}`)

	res, err := Binance(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "BTC-USD", res.Ticker.Symbol)
	assert.Equal(t, "50000.00", res.Ticker.Price)
	assert.Nil(t, res.Trade)
}

func TestCoinbase_Match(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"type":"match","time":"2023-11-14T22:13:20.000Z","product_id":"BTC-USD","price":"50000.10","size":"0.5","trade_id":999}`)

	res, err := Coinbase(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "BTC-USD", res.Trade.Symbol)
	assert.Equal(t, "999", res.Trade.TradeID)
}

func TestCoinbase_LastMatchIgnored(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"type":"last_match","product_id":"BTC-USD"}`)

	res, err := Coinbase(m, raw)
	require.NoError(t, err)
	assert.Nil(t, res.Trade)
	assert.Nil(t, res.Ticker)
}

func TestCoinbase_Ticker(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"type":"ticker","time":"2023-11-14T22:13:20.000Z","product_id":"ETH-USD","price":"3000.00","best_bid":"2999","best_ask":"3001"}`)

	res, err := Coinbase(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "ETH-USD", res.Ticker.Symbol)
}

func TestKraken_HeartbeatIgnored(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"event":"heartbeat"}`)

	res, err := Kraken(m, raw)
	require.NoError(t, err)
	assert.Nil(t, res.Ticker)
	assert.Nil(t, res.Trade)
}

func TestKraken_Trade(t *testing.T) {
	m := mapper.New()
	raw := []byte(`[336,[["5541.20000","0.15850568","1534614057.321597","s","l",""]],"trade","XBT/USD"]`)

	res, err := Kraken(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "XBT/USD", res.Trade.Symbol)
	assert.Equal(t, "5541.20000", res.Trade.Price)
	assert.Equal(t, "0.15850568", res.Trade.Size)
}

func TestKraken_Ticker(t *testing.T) {
	m := mapper.New()
	raw := []byte(`[340,{"a":["5525.40000",1,"1.000"],"b":["5525.10000",1,"1.000"],"c":["5525.10000","0.00398963"],"v":["2634.11501815","4591.03743493"],"l":["5505.00000","5505.00000"],"h":["5783.00000","5783.00000"],"o":["5760.70000","5763.40000"]},"ticker","XBT/USD"]`)

	res, err := Kraken(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "XBT/USD", res.Ticker.Symbol)
	assert.Equal(t, "5525.10000", res.Ticker.Price)
	assert.Equal(t, "1", res.Ticker.WholeLotVolume)
	assert.Equal(t, "1.000", res.Ticker.BidSize)
	assert.Equal(t, "1.000", res.Ticker.AskSize)
}

func TestKraken_Ticker_BidAskQtyMatchesScenarioS3(t *testing.T) {
	m := mapper.New()
	raw := []byte(`[340,{"a":["35002","1","1.5"],"b":["35001","1","2.0"],"c":["35001.5","0.1"]},"ticker","XBT/USD"]`)

	res, err := Kraken(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "2.0", res.Ticker.BidSize)
	assert.Equal(t, "1.5", res.Ticker.AskSize)
}

func TestBitfinex_HeartbeatIgnored(t *testing.T) {
	m := mapper.New()
	raw := []byte(`[1234,"hb"]`)

	res, err := Bitfinex(m, raw)
	require.NoError(t, err)
	assert.Nil(t, res.Ticker)
}

func TestBitfinex_TickerPriceByPosition(t *testing.T) {
	m := mapper.New()
	raw := []byte(`[1234,50.0,1.0,51.0,1.0,0.5,0.2,50250.0,1000.0,51000.0,49000.0]`)

	res, err := Bitfinex(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "50250.0", res.Ticker.Price)
}

func TestHuobi_Ping(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"ping":1700000000}`)

	res, err := Huobi(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Pong)
	assert.Contains(t, string(res.Pong), `"pong":1700000000`)
}

func TestHuobi_Ticker(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"ch":"market.btcusdt.ticker","ts":1700000000000,"tick":{"lastPrice":"50000","close":50000.0,"bid":49999.0,"ask":50001.0,"open":49000.0,"high":51000.0,"low":48000.0,"vol":1000.0}}`)

	res, err := Huobi(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "BTC-USD", res.Ticker.Symbol)
	assert.Equal(t, "50000", res.Ticker.Price)
}

func TestHuobi_TradeDetail(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"ch":"market.ethusdt.trade.detail","ts":1700000000000,"tick":{"data":[{"price":3000.5,"amount":0.25,"tradeId":555,"direction":"buy","ts":1700000000500}]}}`)

	res, err := Huobi(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "ETH-USD", res.Trade.Symbol)
	assert.Equal(t, "555", res.Trade.TradeID)
}

func TestOKX_Tickers(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[{"instId":"BTC-USDT","last":"50000","bidPx":"49999","askPx":"50001","ts":"1700000000000"}]}`)

	res, err := OKX(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Ticker)
	assert.Equal(t, "BTC-USD", res.Ticker.Symbol)
}

func TestOKX_Trades(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"arg":{"channel":"trades","instId":"ETH-USDT"},"data":[{"instId":"ETH-USDT","px":"3000","sz":"0.1","tradeId":"888","side":"sell","ts":"1700000000000"}]}`)

	res, err := OKX(m, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, "ETH-USD", res.Trade.Symbol)
	assert.Equal(t, "888", res.Trade.TradeID)
}

func TestOKX_EmptyDataIgnored(t *testing.T) {
	m := mapper.New()
	raw := []byte(`{"arg":{"channel":"tickers"},"data":[]}`)

	res, err := OKX(m, raw)
	require.NoError(t, err)
	assert.Nil(t, res.Ticker)
	assert.Nil(t, res.Trade)
}

func TestAllVenueParsers_IgnoreGarbageWithoutPanicking(t *testing.T) {
	m := mapper.New()
	parsers := map[string]Parser{
		"binance":  Binance,
		"coinbase": Coinbase,
		"kraken":   Kraken,
		"bitfinex": Bitfinex,
		"huobi":    Huobi,
		"okx":      OKX,
	}
	for name, p := range parsers {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, _ = p(m, []byte(`not valid json at all {{{`))
			})
		})
	}
}
