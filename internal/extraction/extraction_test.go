package extraction

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewCharInterval(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"valid", 0, 5, false},
		{"valid offset", 10, 11, false},
		{"empty", 3, 3, true},
		{"inverted", 5, 2, true},
		{"negative start", -1, 5, true},
		{"negative end", 0, -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := NewCharInterval(tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCharInterval() error = %v", err)
			}
			if iv.Start != tt.start || iv.End != tt.end {
				t.Errorf("got [%d, %d)", iv.Start, iv.End)
			}
		})
	}
}

func TestExtractionShifted(t *testing.T) {
	t.Run("shifts interval without mutating the original", func(t *testing.T) {
		orig := Extraction{Class: "c", Text: "t", Interval: &CharInterval{Start: 3, End: 8}}
		shifted := orig.Shifted(100)

		if shifted.Interval.Start != 103 || shifted.Interval.End != 108 {
			t.Errorf("shifted = [%d, %d)", shifted.Interval.Start, shifted.Interval.End)
		}
		if orig.Interval.Start != 3 || orig.Interval.End != 8 {
			t.Errorf("original mutated: [%d, %d)", orig.Interval.Start, orig.Interval.End)
		}
	})

	t.Run("nil interval passes through", func(t *testing.T) {
		orig := Extraction{Class: "c", Text: "t"}
		if got := orig.Shifted(100); got.Interval != nil {
			t.Errorf("got %+v", got.Interval)
		}
	})
}

func TestWire(t *testing.T) {
	t.Run("interval clamped to text bounds", func(t *testing.T) {
		e := Extraction{Class: "c", Text: "t", Interval: &CharInterval{Start: -2, End: 50}}
		w := e.Wire(10)
		if w.Interval == nil {
			t.Fatal("expected interval")
		}
		if w.Interval.Start != 0 || w.Interval.End != 10 {
			t.Errorf("got [%d, %d), want [0, 10)", w.Interval.Start, w.Interval.End)
		}
	})

	t.Run("degenerate interval dropped but extraction kept", func(t *testing.T) {
		e := Extraction{Class: "c", Text: "t", Interval: &CharInterval{Start: 15, End: 20}}
		w := e.Wire(10)
		if w.Interval != nil {
			t.Errorf("expected dropped interval, got %+v", w.Interval)
		}
		if w.Class != "c" || w.Text != "t" {
			t.Errorf("extraction record lost: %+v", w)
		}
	})

	t.Run("nil attributes serialize as empty object", func(t *testing.T) {
		w := Extraction{Class: "c", Text: "t"}.Wire(10)
		b, err := json.Marshal(w)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !strings.Contains(string(b), `"attributes":{}`) {
			t.Errorf("got %s", b)
		}
	})
}

func TestResultRoundTrip(t *testing.T) {
	res := &Result{
		Text: "Ada wrote programs.",
		Extractions: []Extraction{
			{Class: "person", Text: "Ada", Interval: &CharInterval{Start: 0, End: 3}},
			{Class: "thing", Text: "programs"},
		},
		Metadata: map[string]any{"model_name": "m"},
		Errors:   []ChunkError{{ChunkIndex: 2, Message: "boom"}},
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Errors must be visible to metadata-only consumers.
	if !strings.Contains(string(data), `"errors"`) {
		t.Errorf("serialized result missing errors: %s", data)
	}

	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if back.Text != res.Text {
		t.Errorf("text = %q", back.Text)
	}
	if len(back.Extractions) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(back.Extractions))
	}
	if back.Extractions[0].Interval == nil || back.Extractions[0].Interval.Start != 0 {
		t.Errorf("first interval = %+v", back.Extractions[0].Interval)
	}
	if back.Extractions[1].Interval != nil {
		t.Errorf("unlocated extraction regained interval: %+v", back.Extractions[1].Interval)
	}
	if len(back.Errors) != 1 || back.Errors[0].ChunkIndex != 2 {
		t.Errorf("errors = %+v", back.Errors)
	}
}
