// Package subscribe builds the ordered sequence of subscribe frames a
// Session emits for one venue's symbol chunk. It has no I/O of its own;
// callers are responsible for writing the frames to the wire in order
// (and, for Kraken, pausing 200ms after connection open before the first
// send — see internal/session).
package subscribe

import "encoding/json"

// Frame is one JSON payload ready to be written to a WebSocket connection.
type Frame []byte

// Builder produces the frames for one chunk of venue-native symbol tokens.
type Builder func(chunk []string) ([]Frame, error)

func marshal(v interface{}) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// Binance composes a single frame with a combined params array of
// "<sym>@ticker" and "<sym>@trade" streams.
func Binance(chunk []string) ([]Frame, error) {
	params := make([]string, 0, len(chunk)*2)
	for _, sym := range chunk {
		params = append(params, sym+"@ticker", sym+"@trade")
	}
	frame, err := marshal(struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: 1})
	if err != nil {
		return nil, err
	}
	return []Frame{frame}, nil
}

// Coinbase composes a single frame subscribing both the ticker and matches
// channels to every product id in the chunk.
func Coinbase(chunk []string) ([]Frame, error) {
	frame, err := marshal(struct {
		Type     string `json:"type"`
		Channels []struct {
			Name       string   `json:"name"`
			ProductIDs []string `json:"product_ids"`
		} `json:"channels"`
	}{
		Type: "subscribe",
		Channels: []struct {
			Name       string   `json:"name"`
			ProductIDs []string `json:"product_ids"`
		}{
			{Name: "ticker", ProductIDs: chunk},
			{Name: "matches", ProductIDs: chunk},
		},
	})
	if err != nil {
		return nil, err
	}
	return []Frame{frame}, nil
}

// Kraken composes two frames per chunk: one subscribing the "ticker"
// channel, one subscribing the "trade" channel, both over the same pair
// list. Callers must pause 200ms after connection open before sending the
// first of these.
func Kraken(chunk []string) ([]Frame, error) {
	var frames []Frame
	for _, channel := range []string{"ticker", "trade"} {
		frame, err := marshal(struct {
			Event        string   `json:"event"`
			Pair         []string `json:"pair"`
			Subscription struct {
				Name string `json:"name"`
			} `json:"subscription"`
		}{
			Event: "subscribe",
			Pair:  chunk,
			Subscription: struct {
				Name string `json:"name"`
			}{Name: channel},
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Huobi composes one ticker-subscribe frame and one trade-detail-subscribe
// frame per symbol in the chunk (the venue rate-limits subscriptions per
// socket to one symbol per frame pair).
func Huobi(chunk []string) ([]Frame, error) {
	var frames []Frame
	for _, sym := range chunk {
		tickerFrame, err := marshal(struct {
			Sub string `json:"sub"`
			ID  string `json:"id"`
		}{Sub: "market." + sym + ".ticker", ID: sym + "-ticker"})
		if err != nil {
			return nil, err
		}
		tradeFrame, err := marshal(struct {
			Sub string `json:"sub"`
			ID  string `json:"id"`
		}{Sub: "market." + sym + ".trade.detail", ID: sym + "-trade"})
		if err != nil {
			return nil, err
		}
		frames = append(frames, tickerFrame, tradeFrame)
	}
	return frames, nil
}

// OKX composes two frames: one subscribing the "tickers" channel for every
// instrument id in the chunk, one subscribing "trades".
func OKX(chunk []string) ([]Frame, error) {
	type arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}
	build := func(channel string) (Frame, error) {
		args := make([]arg, 0, len(chunk))
		for _, inst := range chunk {
			args = append(args, arg{Channel: channel, InstID: inst})
		}
		return marshal(struct {
			Op   string `json:"op"`
			Args []arg  `json:"args"`
		}{Op: "subscribe", Args: args})
	}

	tickerFrame, err := build("tickers")
	if err != nil {
		return nil, err
	}
	tradeFrame, err := build("trades")
	if err != nil {
		return nil, err
	}
	return []Frame{tickerFrame, tradeFrame}, nil
}

// Bitfinex composes a single subscribe frame for a single symbol; chunk
// size for this venue is always 1 (minimal sanity connection, spec.md §4.2).
func Bitfinex(chunk []string) ([]Frame, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	frame, err := marshal(struct {
		Event   string `json:"event"`
		Channel string `json:"channel"`
		Symbol  string `json:"symbol"`
	}{Event: "subscribe", Channel: "ticker", Symbol: chunk[0]})
	if err != nil {
		return nil, err
	}
	return []Frame{frame}, nil
}
