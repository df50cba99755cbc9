package ingest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

// IDPrefix marks every generated record id.
const IDPrefix = "mat-"

// ID schemes accepted by NewIDGenerator.
const (
	IDSchemeRandom        = "random"
	IDSchemeDeterministic = "deterministic"
)

// IDSeed describes the chunk an id is generated for.
type IDSeed struct {
	MaterialID string

	// SourceID is the file or link id, or a digest of the text for text items.
	SourceID string

	// Index is the chunk position within its source.
	Index int
}

// IDGenerator assigns embedding record ids.
type IDGenerator interface {
	NewID(seed IDSeed) (string, error)
}

// NewIDGenerator returns the generator for scheme. An empty scheme is random.
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch scheme {
	case "", IDSchemeRandom:
		return RandomIDs{}, nil
	case IDSchemeDeterministic:
		return DeterministicIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}

var tenDigits = big.NewInt(10_000_000_000)

// RandomIDs draws "mat-" followed by ten digits from crypto/rand. Re-ingesting
// identical text appends new records.
type RandomIDs struct{}

func (RandomIDs) NewID(IDSeed) (string, error) {
	n, err := rand.Int(rand.Reader, tenDigits)
	if err != nil {
		return "", fmt.Errorf("reading random id: %w", err)
	}
	return fmt.Sprintf("%s%010d", IDPrefix, n.Int64()), nil
}

// DeterministicIDs hashes the seed, so retrying a failed run overwrites the
// records it already wrote.
type DeterministicIDs struct{}

func (DeterministicIDs) NewID(seed IDSeed) (string, error) {
	h := sha256.New()
	h.Write([]byte(seed.MaterialID))
	h.Write([]byte{0})
	h.Write([]byte(seed.SourceID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(seed.Index)))
	return IDPrefix + hex.EncodeToString(h.Sum(nil))[:32], nil
}

func textDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "text:" + hex.EncodeToString(sum[:8])
}
