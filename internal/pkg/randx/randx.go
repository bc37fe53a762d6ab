/*
Package randx generates the opaque identifiers used across the service:
UUIDs for messages, files, and connections, plus short random suffixes
for stored file names.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the character set for random suffixes (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// FileSuffixLength is the length of the random part of stored file names.
	FileSuffixLength = 8
)

// MessageID returns a UUID v4 string identifying one relayed message.
func MessageID() string {
	return uuid.New().String()
}

// ConnectionID returns a UUID v4 string identifying one live transport
// connection. Unique per socket, replaced on reconnect.
func ConnectionID() string {
	return uuid.New().String()
}

// NewID returns a UUID v4 string for persisted records (users, files,
// message history rows).
func NewID() string {
	return uuid.New().String()
}

// FileSuffix returns a random Base62 string used to build collision-free
// stored file names, generated with crypto/rand.
func FileSuffix() (string, error) {
	result := make([]byte, FileSuffixLength)

	for i := range FileSuffixLength {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(Base62Chars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random file suffix: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
