// Package parser extracts Ticker and Trade records from venue-native
// WebSocket frames. Unrecognized frames are silently ignored (nil, nil);
// malformed frames that don't even parse as JSON/array return an error
// which callers log but never treat as fatal (spec.md §4.4, §7). Bitfinex
// frames are read positionally rather than decoded, so a malformed Bitfinex
// frame is ignored (nil, nil) rather than reported as an error.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sawpanic/marketfeed/internal/mapper"
	"github.com/sawpanic/marketfeed/internal/model"
)

// Result is the outcome of parsing one frame: at most one of Ticker/Trade
// is set, or Pong is set (Huobi heartbeat reply), or all are nil/empty
// meaning the frame was recognized but carries no record (e.g. a Kraken
// heartbeat event).
type Result struct {
	Ticker *model.Ticker
	Trade  *model.Trade
	Pong   []byte
}

// Parser parses one already-decompressed frame for a given venue.
type Parser func(m *mapper.Table, raw []byte) (Result, error)

// Binance parses Binance.us combined-stream frames.
func Binance(m *mapper.Table, raw []byte) (Result, error) {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Result{}, fmt.Errorf("binance: %w", err)
	}
	payload := envelope.Data
	if payload == nil {
		payload = raw
	}

	var evt struct {
		Type string `json:"e"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Result{}, fmt.Errorf("binance: %w", err)
	}

	if evt.Type == "trade" {
		var f struct {
			EventTime int64  `json:"E"`
			Symbol    string `json:"s"`
			Price     string `json:"p"`
			Qty       string `json:"q"`
			TradeID   int64  `json:"t"`
			IsMaker   bool   `json:"m"`
		}
		if err := json.Unmarshal(payload, &f); err != nil {
			return Result{}, fmt.Errorf("binance trade: %w", err)
		}
		return Result{Trade: &model.Trade{
			Exchange:    "Binance",
			Symbol:      m.Map(f.Symbol),
			Price:       f.Price,
			Size:        f.Qty,
			TradeID:     strconv.FormatInt(f.TradeID, 10),
			MarketMaker: f.IsMaker,
			Timestamp:   model.NormalizeTimestampMillis(f.EventTime),
		}}, nil
	}

	var f struct {
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Close     string `json:"c"`
		BidPrice  string `json:"b"`
		BidQty    string `json:"B"`
		AskPrice  string `json:"a"`
		AskQty    string `json:"A"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		QuoteVol  string `json:"q"`
		LastID    int64  `json:"t"`
		LastPrice string `json:"p"`
		CloseTime int64  `json:"C"`
		LastSize  string `json:"S"`
	}
	if err := json.Unmarshal(payload, &f); err != nil {
		return Result{}, fmt.Errorf("binance ticker: %w", err)
	}
	if f.Symbol == "" || f.Close == "" {
		return Result{}, nil
	}
	return Result{Ticker: &model.Ticker{
		Exchange:       "Binance",
		Symbol:         m.Map(f.Symbol),
		Price:          f.Close,
		BidPrice:       f.BidPrice,
		BidSize:        f.BidQty,
		AskPrice:       f.AskPrice,
		AskSize:        f.AskQty,
		Open24h:        f.Open,
		High24h:        f.High,
		Low24h:         f.Low,
		Close24h:       f.Close,
		Volume24h:      f.Volume,
		QuoteVolume:    f.QuoteVol,
		LastTradeID:    strconv.FormatInt(f.LastID, 10),
		LastTradePrice: f.LastPrice,
		LastTradeSize:  f.LastSize,
		LastTradeTime:  model.NormalizeTimestampMillis(f.CloseTime),
		Timestamp:      model.NormalizeTimestampMillis(f.EventTime),
	}}, nil
}

// Coinbase parses Coinbase "match"/"ticker" frames.
func Coinbase(m *mapper.Table, raw []byte) (Result, error) {
	var envelope struct {
		Type      string `json:"type"`
		Time      string `json:"time"`
		ProductID string `json:"product_id"`
		Price     string `json:"price"`
		Size      string `json:"size"`
		TradeID   int64  `json:"trade_id"`
		LastSize  string `json:"last_size"`
		BestBid   string `json:"best_bid"`
		BestBidSz string `json:"best_bid_size"`
		BestAsk   string `json:"best_ask"`
		BestAskSz string `json:"best_ask_size"`
		Open24h   string `json:"open_24h"`
		High24h   string `json:"high_24h"`
		Low24h    string `json:"low_24h"`
		Volume24h string `json:"volume_24h"`
		Volume30d string `json:"volume_30d"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Result{}, fmt.Errorf("coinbase: %w", err)
	}

	switch envelope.Type {
	case "match":
		return Result{Trade: &model.Trade{
			Exchange:  "Coinbase",
			Symbol:    m.Map(envelope.ProductID),
			Price:     envelope.Price,
			Size:      envelope.Size,
			TradeID:   strconv.FormatInt(envelope.TradeID, 10),
			Timestamp: model.NormalizeTimestamp(envelope.Time),
		}}, nil
	case "last_match":
		return Result{}, nil
	case "ticker":
		return Result{Ticker: &model.Ticker{
			Exchange:       "Coinbase",
			Symbol:         m.Map(envelope.ProductID),
			Price:          envelope.Price,
			BidPrice:       envelope.BestBid,
			BidSize:        envelope.BestBidSz,
			AskPrice:       envelope.BestAsk,
			AskSize:        envelope.BestAskSz,
			Open24h:        envelope.Open24h,
			High24h:        envelope.High24h,
			Low24h:         envelope.Low24h,
			Volume24h:      envelope.Volume24h,
			Volume30d:      envelope.Volume30d,
			LastTradeID:    strconv.FormatInt(envelope.TradeID, 10),
			LastTradeSize:  envelope.LastSize,
			LastTradePrice: envelope.Price,
			Timestamp:      model.NormalizeTimestamp(envelope.Time),
		}}, nil
	default:
		return Result{}, nil
	}
}

// Kraken parses the venue's array-shaped ticker/trade frames:
// [channelID, data, channelName-or-event, pair].
func Kraken(m *mapper.Table, raw []byte) (Result, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		// Not an array — likely a subscription-status object; ignore.
		var evt struct {
			Event string `json:"event"`
		}
		if err2 := json.Unmarshal(raw, &evt); err2 == nil {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("kraken: %w", err)
	}
	if len(frame) < 4 {
		var evt struct {
			Event string `json:"event"`
		}
		if len(frame) > 0 {
			_ = json.Unmarshal(frame[0], &evt)
		}
		return Result{}, nil
	}

	var channel string
	_ = json.Unmarshal(frame[len(frame)-2], &channel)
	if channel == "heartbeat" {
		return Result{}, nil
	}

	var pair string
	_ = json.Unmarshal(frame[len(frame)-1], &pair)
	symbol := m.Map(pair)

	if channel == "trade" {
		var trades [][]string
		if err := json.Unmarshal(frame[1], &trades); err != nil {
			return Result{}, fmt.Errorf("kraken trade: %w", err)
		}
		if len(trades) == 0 {
			return Result{}, nil
		}
		last := trades[len(trades)-1]
		if len(last) < 3 {
			return Result{}, nil
		}
		return Result{Trade: &model.Trade{
			Exchange:  "Kraken",
			Symbol:    symbol,
			Price:     last[0],
			Size:      last[1],
			Timestamp: normalizeKrakenTime(last[2]),
		}}, nil
	}

	if channel == "ticker" {
		// Kraken's ticker sub-arrays mix quoted price strings with an
		// unquoted whole-lot-volume integer at index 1 (e.g.
		// ["5525.10000",1,"1.000"]), so each element is decoded as raw
		// JSON and coerced to string rather than unmarshaled straight
		// into []string.
		var t struct {
			Ask []json.RawMessage `json:"a"`
			Bid []json.RawMessage `json:"b"`
			C   []json.RawMessage `json:"c"`
			V   []json.RawMessage `json:"v"`
			P   []json.RawMessage `json:"p"`
			L   []json.RawMessage `json:"l"`
			H   []json.RawMessage `json:"h"`
			O   interface{}       `json:"o"`
		}
		if err := json.Unmarshal(frame[1], &t); err != nil {
			return Result{}, fmt.Errorf("kraken ticker: %w", err)
		}
		ticker := &model.Ticker{
			Exchange: "Kraken",
			Symbol:   symbol,
		}
		if len(t.C) > 0 {
			ticker.Price = rawToString(t.C[0])
		}
		if len(t.Bid) > 0 {
			ticker.BidPrice = rawToString(t.Bid[0])
		}
		if len(t.Bid) > 1 {
			ticker.WholeLotVolume = rawToString(t.Bid[1])
		}
		if len(t.Bid) > 2 {
			ticker.BidSize = rawToString(t.Bid[2])
		}
		if len(t.Ask) > 0 {
			ticker.AskPrice = rawToString(t.Ask[0])
		}
		if len(t.Ask) > 2 {
			ticker.AskSize = rawToString(t.Ask[2])
		}
		if len(t.V) > 0 {
			ticker.Volume24h = rawToString(t.V[len(t.V)-1])
		}
		if len(t.L) > 0 {
			ticker.Low24h = rawToString(t.L[len(t.L)-1])
		}
		if len(t.H) > 0 {
			ticker.High24h = rawToString(t.H[len(t.H)-1])
		}
		if openObj, ok := t.O.(map[string]interface{}); ok {
			if o, ok := openObj["o"].(string); ok {
				ticker.Open24h = o
			}
		} else if openArr, ok := t.O.([]interface{}); ok && len(openArr) > 0 {
			if o, ok := openArr[0].(string); ok {
				ticker.Open24h = o
			}
		}
		return Result{Ticker: ticker}, nil
	}

	return Result{}, nil
}

// rawToString coerces one element of a Kraken ticker sub-array to a plain
// string, whether it was sent quoted ("5525.10000") or bare (1).
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func normalizeKrakenTime(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	seconds := int64(f)
	micros := int64((f - float64(seconds)) * 1e6)
	return model.NormalizeTimestampMillis(seconds*1000 + micros/1000)
}

// Bitfinex parses the venue's array frames. Heartbeats ("hb") are skipped.
// Per spec.md §4.4, Bitfinex's ticker yields price only, located positionally
// (the value after the 7th comma, i.e. the 8th field, LAST_PRICE).
func Bitfinex(m *mapper.Table, raw []byte) (Result, error) {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "[") {
		return Result{}, nil
	}
	if strings.Contains(s, `"hb"`) {
		return Result{}, nil
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	fields := strings.Split(inner, ",")
	if len(fields) <= 7 {
		return Result{}, nil
	}
	price := strings.TrimSpace(fields[7])
	if price == "" {
		return Result{}, nil
	}
	return Result{Ticker: &model.Ticker{
		Exchange: "Bitfinex",
		Price:    price,
	}}, nil
}

// Huobi parses an already gzip-inflated Huobi JSON frame. If it is a ping,
// Result.Pong carries the `{"pong":<n>}` reply the session must write back.
func Huobi(m *mapper.Table, raw []byte) (Result, error) {
	var ping struct {
		Ping *int64 `json:"ping"`
	}
	if err := json.Unmarshal(raw, &ping); err == nil && ping.Ping != nil {
		pong, err := json.Marshal(struct {
			Pong int64 `json:"pong"`
		}{Pong: *ping.Ping})
		if err != nil {
			return Result{}, err
		}
		return Result{Pong: pong}, nil
	}

	var f struct {
		Channel string          `json:"ch"`
		Ts      int64           `json:"ts"`
		Tick    json.RawMessage `json:"tick"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Result{}, fmt.Errorf("huobi: %w", err)
	}
	if f.Channel == "" {
		return Result{}, nil
	}

	symbol := huobiSymbol(f.Channel)
	canonical := m.Map("market." + strings.ToLower(symbol) + "usdt")

	switch {
	case strings.HasSuffix(f.Channel, ".ticker"):
		var t struct {
			LastPrice string      `json:"lastPrice"`
			Close     interface{} `json:"close"`
			Bid       interface{} `json:"bid"`
			Ask       interface{} `json:"ask"`
			Open      interface{} `json:"open"`
			High      interface{} `json:"high"`
			Low       interface{} `json:"low"`
			Vol       interface{} `json:"vol"`
		}
		if err := json.Unmarshal(f.Tick, &t); err != nil {
			return Result{}, fmt.Errorf("huobi ticker: %w", err)
		}
		return Result{Ticker: &model.Ticker{
			Exchange:  "Huobi",
			Symbol:    canonical,
			Price:     numToString(t.Close),
			BidPrice:  numToString(t.Bid),
			AskPrice:  numToString(t.Ask),
			Open24h:   numToString(t.Open),
			High24h:   numToString(t.High),
			Low24h:    numToString(t.Low),
			Volume24h: numToString(t.Vol),
			Timestamp: model.NormalizeTimestampMillis(f.Ts),
		}}, nil
	case strings.HasSuffix(f.Channel, ".trade.detail"):
		var t struct {
			Data []struct {
				Price     interface{} `json:"price"`
				Amount    interface{} `json:"amount"`
				TradeID   int64       `json:"tradeId"`
				Direction string      `json:"direction"`
				Ts        int64       `json:"ts"`
			} `json:"data"`
		}
		if err := json.Unmarshal(f.Tick, &t); err != nil {
			return Result{}, fmt.Errorf("huobi trade: %w", err)
		}
		if len(t.Data) == 0 {
			return Result{}, nil
		}
		last := t.Data[len(t.Data)-1]
		ts := last.Ts
		if ts == 0 {
			ts = f.Ts
		}
		return Result{Trade: &model.Trade{
			Exchange:  "Huobi",
			Symbol:    canonical,
			Price:     numToString(last.Price),
			Size:      numToString(last.Amount),
			TradeID:   strconv.FormatInt(last.TradeID, 10),
			Timestamp: model.NormalizeTimestampMillis(ts),
		}}, nil
	default:
		return Result{}, nil
	}
}

func huobiSymbol(channel string) string {
	const prefix = "market."
	if !strings.HasPrefix(channel, prefix) {
		return ""
	}
	rest := channel[len(prefix):]
	if idx := strings.Index(rest, "."); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func numToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// OKX parses ticker and trade channel payloads.
func OKX(m *mapper.Table, raw []byte) (Result, error) {
	var envelope struct {
		Arg struct {
			Channel string `json:"channel"`
			InstID  string `json:"instId"`
		} `json:"arg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Result{}, fmt.Errorf("okx: %w", err)
	}
	if len(bytes.TrimSpace(envelope.Data)) == 0 {
		return Result{}, nil
	}

	switch envelope.Arg.Channel {
	case "tickers":
		var rows []struct {
			Last    string `json:"last"`
			InstID  string `json:"instId"`
			BidPx   string `json:"bidPx"`
			BidSz   string `json:"bidSz"`
			AskPx   string `json:"askPx"`
			AskSz   string `json:"askSz"`
			Open24h string `json:"open24h"`
			High24h string `json:"high24h"`
			Low24h  string `json:"low24h"`
			Vol24h  string `json:"vol24h"`
			Ts      string `json:"ts"`
		}
		if err := json.Unmarshal(envelope.Data, &rows); err != nil {
			return Result{}, fmt.Errorf("okx ticker: %w", err)
		}
		if len(rows) == 0 {
			return Result{}, nil
		}
		row := rows[0]
		if row.Last == "" || row.InstID == "" {
			return Result{}, nil
		}
		tsMillis, _ := strconv.ParseInt(row.Ts, 10, 64)
		return Result{Ticker: &model.Ticker{
			Exchange:  "OKX",
			Symbol:    m.Map(row.InstID),
			Price:     row.Last,
			BidPrice:  row.BidPx,
			BidSize:   row.BidSz,
			AskPrice:  row.AskPx,
			AskSize:   row.AskSz,
			Open24h:   row.Open24h,
			High24h:   row.High24h,
			Low24h:    row.Low24h,
			Volume24h: row.Vol24h,
			Timestamp: model.NormalizeTimestampMillis(tsMillis),
		}}, nil
	case "trades":
		var rows []struct {
			InstID  string `json:"instId"`
			Px      string `json:"px"`
			Sz      string `json:"sz"`
			TradeID string `json:"tradeId"`
			Side    string `json:"side"`
			Ts      string `json:"ts"`
		}
		if err := json.Unmarshal(envelope.Data, &rows); err != nil {
			return Result{}, fmt.Errorf("okx trade: %w", err)
		}
		if len(rows) == 0 {
			return Result{}, nil
		}
		row := rows[0]
		tsMillis, _ := strconv.ParseInt(row.Ts, 10, 64)
		return Result{Trade: &model.Trade{
			Exchange:  "OKX",
			Symbol:    m.Map(row.InstID),
			Price:     row.Px,
			Size:      row.Sz,
			TradeID:   row.TradeID,
			Timestamp: model.NormalizeTimestampMillis(tsMillis),
		}}, nil
	default:
		return Result{}, nil
	}
}
