package settings

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIntValueParsesNumberFloatAndString(t *testing.T) {
	Store(time.Now().UTC(), map[string]json.RawMessage{
		"N": json.RawMessage(`15`),
		"F": json.RawMessage(`15.6`),
		"S": json.RawMessage(`"15"`),
		"B": json.RawMessage(`"not a number"`),
	})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := IntValue("N", 1); got != 15 {
		t.Fatalf("expected 15 from number, got %d", got)
	}
	if got := IntValue("F", 1); got != 16 {
		t.Fatalf("expected 16 from rounded float, got %d", got)
	}
	if got := IntValue("S", 1); got != 15 {
		t.Fatalf("expected 15 from string, got %d", got)
	}
	if got := IntValue("B", 1); got != 1 {
		t.Fatalf("expected fallback for unparseable value, got %d", got)
	}
	if got := IntValue("MISSING", 42); got != 42 {
		t.Fatalf("expected fallback for missing key, got %d", got)
	}
}

func TestStringValue(t *testing.T) {
	Store(time.Now().UTC(), map[string]json.RawMessage{
		"URL":   json.RawMessage(`"http://example.com/ip"`),
		"BLANK": json.RawMessage(`"   "`),
	})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := StringValue("URL", "fallback"); got != "http://example.com/ip" {
		t.Fatalf("unexpected value: %s", got)
	}
	if got := StringValue("BLANK", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank string, got %s", got)
	}
	if got := StringValue("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for missing key, got %s", got)
	}
}

func TestStoreCopiesValues(t *testing.T) {
	raw := json.RawMessage(`"original"`)
	Store(time.Now().UTC(), map[string]json.RawMessage{"K": raw})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	raw[1] = 'X'

	if got := StringValue("K", ""); got != "original" {
		t.Fatalf("expected stored copy isolated from caller, got %s", got)
	}
}

func TestUpdatedAt(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	Store(at, map[string]json.RawMessage{})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if !UpdatedAt().Equal(at) {
		t.Fatalf("expected %v, got %v", at, UpdatedAt())
	}
}
