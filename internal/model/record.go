// Package model holds the two canonical record types the engine emits:
// Ticker and Trade. Both are immutable once constructed and carry only
// stringified numeric fields, matching the wire-friendly shape the output
// sink writes to JSON and BSON.
package model

import "time"

// TimestampLayout is the canonical internal timestamp form records are
// normalized to: "YYYY-MM-DD HH:MM:SS.uuuuuu UTC".
const TimestampLayout = "2006-01-02 15:04:05.000000 UTC"

// Ticker is a flat bundle of stringified numeric fields for one venue's
// ticker update. All fields are optional (empty string = absent) except
// Exchange, Symbol, Price, Timestamp.
type Ticker struct {
	Exchange  string `json:"exchange" bson:"exchange"`
	Symbol    string `json:"symbol" bson:"symbol"`
	Price     string `json:"price" bson:"price"`
	Timestamp string `json:"timestamp" bson:"timestamp"`

	BidPrice string `json:"bid_price,omitempty" bson:"bid_price,omitempty"`
	BidSize  string `json:"bid_size,omitempty" bson:"bid_size,omitempty"`
	AskPrice string `json:"ask_price,omitempty" bson:"ask_price,omitempty"`
	AskSize  string `json:"ask_size,omitempty" bson:"ask_size,omitempty"`

	// WholeLotVolume is Kraken-only: its ticker payload splits bid/ask
	// quantity into a "whole lot" component distinct from the lot-size qty.
	WholeLotVolume string `json:"whole_lot_volume,omitempty" bson:"whole_lot_volume,omitempty"`

	Open24h  string `json:"open_24h,omitempty" bson:"open_24h,omitempty"`
	High24h  string `json:"high_24h,omitempty" bson:"high_24h,omitempty"`
	Low24h   string `json:"low_24h,omitempty" bson:"low_24h,omitempty"`
	Close24h string `json:"close_24h,omitempty" bson:"close_24h,omitempty"`

	Volume24h    string `json:"volume_24h,omitempty" bson:"volume_24h,omitempty"`
	Volume30d    string `json:"volume_30d,omitempty" bson:"volume_30d,omitempty"`
	QuoteVolume  string `json:"quote_volume,omitempty" bson:"quote_volume,omitempty"`

	LastTradeID    string `json:"last_trade_id,omitempty" bson:"last_trade_id,omitempty"`
	LastTradePrice string `json:"last_trade_price,omitempty" bson:"last_trade_price,omitempty"`
	LastTradeSize  string `json:"last_trade_size,omitempty" bson:"last_trade_size,omitempty"`
	LastTradeTime  string `json:"last_trade_time,omitempty" bson:"last_trade_time,omitempty"`
}

// Trade is a single executed trade normalized from any venue.
type Trade struct {
	Exchange     string `json:"exchange" bson:"exchange"`
	Symbol       string `json:"symbol" bson:"symbol"`
	Price        string `json:"price" bson:"price"`
	Size         string `json:"size" bson:"size"`
	TradeID      string `json:"trade_id,omitempty" bson:"trade_id,omitempty"`
	MarketMaker  bool   `json:"market_maker" bson:"market_maker"`
	Timestamp    string `json:"timestamp" bson:"timestamp"`
}

// Kind identifies a record kind for file naming and buffer routing.
type Kind string

const (
	KindTicker Kind = "ticker"
	KindTrade  Kind = "trade"
)

// Record is anything the output sink can append: it must expose its own
// normalized timestamp so the sink can apply retention trimming, and the
// exchange it came from so the sink can route it to the right
// binary-document file.
type Record interface {
	RecordTimestamp() time.Time
	ExchangeName() string
}

// ParsedAt returns t parsed against TimestampLayout, or the zero time if it
// does not parse (e.g. the original un-normalized string was kept because
// normalization failed upstream).
func ParsedAt(ts string) time.Time {
	parsed, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func (t Ticker) RecordTimestamp() time.Time { return ParsedAt(t.Timestamp) }
func (t Trade) RecordTimestamp() time.Time  { return ParsedAt(t.Timestamp) }

func (t Ticker) ExchangeName() string { return t.Exchange }
func (t Trade) ExchangeName() string  { return t.Exchange }

// NormalizeTimestamp converts a ms-epoch integer or ISO-8601 string into the
// canonical internal form. If neither is recognized, the original string is
// returned untouched, per spec.
func NormalizeTimestamp(raw string) string {
	if raw == "" {
		return raw
	}

	if ms, ok := parseEpochMillis(raw); ok {
		return time.UnixMilli(ms).UTC().Format(TimestampLayout)
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999Z",
	} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC().Format(TimestampLayout)
		}
	}

	return raw
}

// NormalizeTimestampMillis converts an already-numeric ms-epoch value.
func NormalizeTimestampMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

func parseEpochMillis(raw string) (int64, bool) {
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	if len(raw) < 10 {
		return 0, false
	}
	var ms int64
	for _, r := range raw {
		ms = ms*10 + int64(r-'0')
	}
	return ms, true
}
