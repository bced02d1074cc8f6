package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRoomCode(t *testing.T) {
	seen := make(map[string]struct{})

	for n := 0; n < 50; n++ {
		code, err := RoomCode()
		if err != nil {
			t.Fatalf("RoomCode() error = %v", err)
		}
		if len(code) != RoomCodeLength {
			t.Fatalf("expected length %d, got %q", RoomCodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(Base62Chars, c) {
				t.Fatalf("unexpected character %q in %q", c, code)
			}
		}
		seen[code] = struct{}{}
	}

	if len(seen) < 45 {
		t.Errorf("room codes look insufficiently random: %d unique of 50", len(seen))
	}
}

func TestConnectionID(t *testing.T) {
	a, b := ConnectionID(), ConnectionID()
	if a == b {
		t.Fatal("expected unique connection IDs")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a UUID, got %q: %v", a, err)
	}
}
