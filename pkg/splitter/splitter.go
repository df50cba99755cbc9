// Package splitter divides text into overlapping, size-bounded segments for
// retrieval. Splitting is recursive over a prioritized list of separators and
// falls back to hard rune splits when no separator yields small enough pieces.
package splitter

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum segment length in runes.
	DefaultChunkSize = 100

	// DefaultChunkOverlap is the approximate number of runes carried over
	// between consecutive segments.
	DefaultChunkOverlap = 10
)

// DefaultSeparators are tried in order: paragraph break, space, period, comma.
var DefaultSeparators = []string{"\n\n", " ", ".", ","}

// Splitter is an immutable, reusable text splitter.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures a Splitter created with New.
type Option func(*Splitter)

// WithChunkSize sets the maximum segment length in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive segments in runes.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithSeparators overrides the prioritized separator list.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		s.separators = append([]string(nil), separators...)
	}
}

// New creates a Splitter. An overlap that is not smaller than the chunk size
// is clamped to a quarter of the chunk size.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 4
	}

	return s
}

// Split divides text with the given parameters using the default separators.
func Split(text string, chunkSize, chunkOverlap int) []string {
	return New(WithChunkSize(chunkSize), WithChunkOverlap(chunkOverlap)).Split(text)
}

// ChunkSize returns the configured maximum segment length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split returns the segments of text. Empty or whitespace-only text yields an
// empty, non-nil slice.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	if runeLen(text) <= s.chunkSize {
		return []string{text}
	}

	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := ""
	var remaining []string
	for i, candidate := range separators {
		if candidate != "" && strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = hardSplit(text, s.chunkSize)
	} else {
		pieces = strings.Split(text, sep)
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range pieces {
		if piece == "" {
			continue
		}

		if runeLen(piece) <= s.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			out = append(out, s.merge(good, sep)...)
			good = nil
		}
		out = append(out, s.split(piece, remaining)...)
	}

	if len(good) > 0 {
		out = append(out, s.merge(good, sep)...)
	}

	return out
}

// merge greedily packs pieces into segments of at most chunkSize runes,
// carrying trailing pieces worth at most chunkOverlap runes into the next one.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)

	var (
		docs    []string
		current []string
		total   int
	)

	joinedLen := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		l := runeLen(piece)

		if len(current) > 0 && total+l+joinedLen(len(current)) > s.chunkSize {
			if doc := joinTrim(current, sep); doc != "" {
				docs = append(docs, doc)
			}

			for len(current) > 0 &&
				(total > s.chunkOverlap || (total+l+joinedLen(len(current)) > s.chunkSize && total > 0)) {
				total -= runeLen(current[0]) + joinedLen(len(current)-1)
				current = current[1:]
			}
		}

		current = append(current, piece)
		total += l + joinedLen(len(current)-1)
	}

	if doc := joinTrim(current, sep); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func joinTrim(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
