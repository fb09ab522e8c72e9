package archive

import (
	"testing"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

func TestTradeWriter_Transform(t *testing.T) {
	w := NewTradeWriter(DefaultWriterConfig(), nil, nil)

	ev := model.TradeEvent{
		Symbol:  "SPY240913C00550000",
		Price:   2.35,
		Size:    7,
		EventTS: 1_700_000_000_000_000,
	}

	before := time.Now().UnixMicro()
	row := w.transform(ev)
	after := time.Now().UnixMicro()

	if row.Symbol != "SPY240913C00550000" {
		t.Errorf("Symbol = %s, want SPY240913C00550000", row.Symbol)
	}
	if row.Price != 2.35 {
		t.Errorf("Price = %v, want 2.35", row.Price)
	}
	if row.Size != 7 {
		t.Errorf("Size = %d, want 7", row.Size)
	}
	if row.EventTS != 1_700_000_000_000_000 {
		t.Errorf("EventTS = %d, want 1700000000000000", row.EventTS)
	}
	if row.ReceivedAt < before || row.ReceivedAt > after {
		t.Errorf("ReceivedAt = %d, want within [%d, %d]", row.ReceivedAt, before, after)
	}
}

func TestTradeWriter_ArchiveTradeNeverBlocks(t *testing.T) {
	cfg := DefaultWriterConfig()
	cfg.BufferSize = 4
	w := NewTradeWriter(cfg, nil, nil)

	// Not started: nothing drains the ring, so overflow must drop oldest
	// rather than block the caller.
	for i := 0; i < 20; i++ {
		w.ArchiveTrade(model.TradeEvent{Symbol: "SPY240913C00550000", EventTS: int64(i)})
	}

	if got := w.input.Len(); got != 4 {
		t.Errorf("input.Len() = %d, want 4", got)
	}
	if stats := w.input.Stats(); stats.Dropped != 16 {
		t.Errorf("Dropped = %d, want 16", stats.Dropped)
	}
}

func TestTradeWriter_BatchAccumulation(t *testing.T) {
	cfg := DefaultWriterConfig()
	w := NewTradeWriter(cfg, nil, nil)

	for i := 0; i < 3; i++ {
		w.handleEvent(model.TradeEvent{Symbol: "SPY240913C00550000", EventTS: int64(1000 + i)})
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.batch) != 3 {
		t.Errorf("len(batch) = %d, want 3", len(w.batch))
	}
}

func TestSnapshotWriter_RecordSnapshot(t *testing.T) {
	w := NewSnapshotWriter(DefaultWriterConfig(), nil, nil)

	snap := model.Snapshot{
		TS:          1_700_000_000.25,
		Underlying:  "SPY",
		Expiration:  "2024-09-13",
		ATM:         550,
		RangePoints: 12,
		Contracts:   make([]model.ContractState, 7),
	}
	w.RecordSnapshot("chain:snapshot:SPY:2024-09-13:1700000000250", snap)

	row, ok := w.input.TryReceive()
	if !ok {
		t.Fatal("no row enqueued")
	}
	if row.Key != "chain:snapshot:SPY:2024-09-13:1700000000250" {
		t.Errorf("Key = %s", row.Key)
	}
	if row.Underlying != "SPY" || row.Expiration != "2024-09-13" {
		t.Errorf("pair = %s/%s, want SPY/2024-09-13", row.Underlying, row.Expiration)
	}
	if row.CapturedTS != 1_700_000_000_250_000 {
		t.Errorf("CapturedTS = %d, want 1700000000250000", row.CapturedTS)
	}
	if row.ATM != 550 || row.RangePoints != 12 || row.Contracts != 7 {
		t.Errorf("row = %+v, want ATM 550 range 12 contracts 7", row)
	}
}

func TestWriterConfig_Defaults(t *testing.T) {
	cfg := WriterConfig{}.withDefaults()
	def := DefaultWriterConfig()
	if cfg != def {
		t.Errorf("withDefaults() = %+v, want %+v", cfg, def)
	}

	custom := WriterConfig{BatchSize: 10, FlushInterval: time.Second, BufferSize: 100}.withDefaults()
	if custom.BatchSize != 10 || custom.FlushInterval != time.Second || custom.BufferSize != 100 {
		t.Errorf("withDefaults() overrode explicit values: %+v", custom)
	}
}
