package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.42:5555", "203.0.113.0"},
		{"203.0.113.42", "203.0.113.0"},
		{"[::1]:80", "127.0.0.1"},
		{"2001:db8:85a3:1:2:3:4:5", "2001:db8:85a3:1::"},
		{"not-an-ip", "unknown_ip"},
	}

	for _, tt := range tests {
		if got := AnonymizeIP(tt.in); got != tt.want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInfoWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, false)

	Info("hello", "room_id", "R1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello" {
		t.Errorf("expected message hello, got %v", entry["message"])
	}
	if entry["room_id"] != "R1" {
		t.Errorf("expected room_id field, got %v", entry["room_id"])
	}
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, false)

	Info("odd", "lonely")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected a warning and the message, got %d lines: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[1], &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := entry["lonely"]; ok {
		t.Error("odd field should not be logged")
	}
}
