package paper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sniperbot-go/internal/signal"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "decisions.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	d := signal.Decision{
		ID:             "abc",
		Asset:          "ETH",
		Bucket:         1961991,
		WindowStart:    time.Unix(1765791900, 0).UTC(),
		Direction:      signal.Up,
		ReferencePrice: decimal.NewFromInt(100),
		CurrentPrice:   decimal.NewFromInt(101),
		ChangeFraction: decimal.RequireFromString("0.01"),
	}
	for i := 0; i < 2; i++ {
		if err := recorder.Handle(context.Background(), d); err != nil {
			t.Fatalf("Handle error: %v", err)
		}
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := recorder.Record(d); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := 0
	for scanner.Scan() {
		lines++
		var decoded signal.Decision
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("json decode: %v", err)
		}
		if decoded.Asset != "ETH" || decoded.Direction != signal.Up || !decoded.ChangeFraction.Equal(d.ChangeFraction) {
			t.Fatalf("unexpected decoded decision %+v", decoded)
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}
