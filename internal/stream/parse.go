package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/strikefeed/strikefeed/internal/model"
)

// parseResult accumulates per-frame counters. Control messages are carried
// out so the caller can log them.
type parseResult struct {
	emitted   int
	skipped   int
	malformed int
	statuses  []statusWire
}

// parseFrame normalizes one raw frame into trade events. Feeds batch events
// into JSON arrays under burst; single objects also occur. Each element is
// validated independently so one bad element never poisons a whole frame.
func parseFrame(data []byte, emit func(model.TradeEvent)) parseResult {
	var res parseResult

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		res.malformed++
		return res
	}

	if trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			res.malformed++
			return res
		}
		for _, el := range elems {
			parseElement(el, emit, &res)
		}
		return res
	}

	parseElement(trimmed, emit, &res)
	return res
}

// parseElement validates a single feed object and emits it if it is a trade.
func parseElement(data []byte, emit func(model.TradeEvent), res *parseResult) {
	var wire tradeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		res.malformed++
		return
	}

	switch wire.Ev {
	case "T":
		// fallthrough to validation below
	case "":
		res.malformed++
		return
	default:
		// Recognized envelope, not a trade (status, subscription acks).
		var status statusWire
		if err := json.Unmarshal(data, &status); err == nil && status.Status != "" {
			res.statuses = append(res.statuses, status)
		}
		res.skipped++
		return
	}

	if wire.Sym == "" || wire.Timestamp <= 0 || wire.Price < 0 || wire.Size < 0 {
		res.malformed++
		return
	}

	emit(model.TradeEvent{
		Symbol:  strings.TrimPrefix(wire.Sym, "O:"),
		Price:   wire.Price,
		Size:    wire.Size,
		EventTS: wire.Timestamp * 1000, // ms → µs
	})
	res.emitted++
}
