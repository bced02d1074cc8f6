/*
Package randx generates identifiers: connection IDs and suggested room codes.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for room codes (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// RoomCodeLength is the length of generated room codes.
	RoomCodeLength = 6
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// RoomCode returns a random Base62 room code drawn from crypto/rand.
// Room codes are a convenience for creators; clients may still pick any room key.
func RoomCode() (string, error) {
	result := make([]byte, RoomCodeLength)

	for i := range result {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ConnectionID returns a new UUID v4 identifying one transport connection.
func ConnectionID() string {
	return uuid.NewString()
}
