package keygen

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/constraints"

	"github.com/IvanBrykalov/shardstore/internal/util"
	"github.com/IvanBrykalov/shardstore/storage"
)

// UUID string lengths accepted by NewUUID.
const (
	UUIDHexLength       = 32 // 32 hex digits, no dashes
	UUIDCanonicalLength = 36 // 8-4-4-4-12
)

// NewUUID returns a generator of random 128-bit identifiers rendered as
// strings of the given length. A zero length selects the canonical form.
func NewUUID(length int, opts ...Option[string]) (*Generator[string], error) {
	switch length {
	case 0:
		length = UUIDCanonicalLength
	case UUIDHexLength, UUIDCanonicalLength:
	default:
		return nil, fmt.Errorf("keygen: uuid length %d not in {%d, %d}: %w",
			length, UUIDHexLength, UUIDCanonicalLength, storage.ErrInvalidConfiguration)
	}
	return New(func() (string, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		if length == UUIDHexLength {
			return hex.EncodeToString(id[:]), nil
		}
		return id.String(), nil
	}, opts...), nil
}

// NewRandom returns a generator of uniformly random integers in [lo, hi).
// hi must be greater than lo.
func NewRandom[K constraints.Integer](lo, hi K, opts ...Option[K]) (*Generator[K], error) {
	if hi <= lo {
		return nil, fmt.Errorf("keygen: empty range [%v, %v): %w", lo, hi, storage.ErrInvalidConfiguration)
	}
	// Two's-complement difference; exact for every integer width.
	span := uint64(hi) - uint64(lo)
	return New(func() (K, error) {
		return lo + K(rand.Uint64N(span)), nil
	}, opts...), nil
}

// NewSequential returns a generator yielding offset, offset+1, ... and
// failing with storage.ErrOutOfRange once a value would exceed ceiling.
// Get is safe for concurrent use: each call claims a slot atomically.
func NewSequential(offset, ceiling int64, opts ...Option[int64]) (*Generator[int64], error) {
	if ceiling < offset {
		return nil, fmt.Errorf("keygen: ceiling %d below offset %d: %w", ceiling, offset, storage.ErrInvalidConfiguration)
	}
	drawn := new(util.PaddedAtomicInt64)
	return New(func() (int64, error) {
		n := drawn.Add(1) - 1
		v := offset + n
		if n < 0 || v < offset || v > ceiling {
			return 0, fmt.Errorf("keygen: sequence passed %d: %w", ceiling, storage.ErrOutOfRange)
		}
		return v, nil
	}, opts...), nil
}

// segmentLength is the width of one random segment of NewRandomString.
const segmentLength = 32

// NewRandomString returns a generator of random hex strings whose length is
// drawn uniformly from [minLen, maxLen]. Strings are built from 128-bit
// random segments, truncated to the drawn length.
func NewRandomString(minLen, maxLen int, opts ...Option[string]) (*Generator[string], error) {
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("keygen: invalid string length range [%d, %d]: %w",
			minLen, maxLen, storage.ErrInvalidConfiguration)
	}
	return New(func() (string, error) {
		n := minLen + rand.IntN(maxLen-minLen+1)
		var b strings.Builder
		b.Grow(n + segmentLength)
		for b.Len() < n {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			b.WriteString(hex.EncodeToString(id[:]))
		}
		return b.String()[:n], nil
	}, opts...), nil
}
