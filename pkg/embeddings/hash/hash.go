// Package hash provides a deterministic, offline Embedder. Texts are
// embedded by feature hashing their lower-cased words into a fixed number of
// buckets, so texts sharing words land close together under cosine
// similarity. It needs no model server and is used for local runs and tests.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/papercomputeco/tomes/pkg/embeddings"
)

// DefaultDimensions is used when a non-positive dimension is configured.
const DefaultDimensions = 256

// Embedder is a feature-hashing embedder.
type Embedder struct {
	dimensions int
}

// NewEmbedder returns an embedder producing vectors of the given size.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed returns a unit-length vector for text. Empty text yields the zero
// vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		h.Write([]byte(w))
		sum := h.Sum64()

		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		emb[sum%uint64(e.dimensions)] += sign
	}

	var norm float64
	for _, v := range emb {
		norm += float64(v * v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range emb {
			emb[i] *= inv
		}
	}
	return emb, nil
}

// Close is a no-op.
func (e *Embedder) Close() error { return nil }

var _ embeddings.Embedder = (*Embedder)(nil)
