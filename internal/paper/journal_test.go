package paper

import (
	"context"
	"testing"

	"sniperbot-go/internal/signal"
)

func TestJournalRecordSnapshotStats(t *testing.T) {
	journal := NewJournal(2)
	_ = journal.Handle(context.Background(), signal.Decision{ID: "1", Asset: "BTC", Direction: signal.Up})
	journal.Record(signal.Decision{ID: "2", Asset: "BTC", Direction: signal.Down})
	journal.Record(signal.Decision{ID: "3", Asset: "SOL", Direction: signal.Up})

	snapshot := journal.Snapshot()
	if len(snapshot) != 3 || snapshot[0].ID != "1" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	st := journal.Stats()
	if st.Total != 3 || st.ByAsset["BTC"] != 2 || st.ByDirection[signal.Up] != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	snapshot[0].ID = "mutated"
	if journal.Snapshot()[0].ID != "1" {
		t.Fatalf("snapshot must be a copy")
	}
}
