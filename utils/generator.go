package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const referenceLength = 10
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IDAllocator hands out identifiers for new records.
type IDAllocator interface {
	NewID() uuid.UUID
}

type UUIDAllocator struct{}

func (UUIDAllocator) NewID() uuid.UUID { return uuid.New() }

// SequenceAllocator returns the given IDs in order and then falls back to
// random ones. Tests use it to predict record IDs.
type SequenceAllocator struct {
	IDs  []uuid.UUID
	next int
}

func (s *SequenceAllocator) NewID() uuid.UUID {
	if s.next < len(s.IDs) {
		id := s.IDs[s.next]
		s.next++
		return id
	}
	return uuid.New()
}

// GenerateReference builds a human-readable reference such as TXN-7Q2K9ZP1XA.
func GenerateReference(prefix string) (string, error) {
	b := make([]byte, referenceLength)
	max := big.NewInt(int64(len(letterBytes)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		b[i] = letterBytes[n.Int64()]
	}
	return prefix + "-" + string(b), nil
}
