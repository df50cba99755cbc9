// Package extract normalizes document sources (raw text, files, web pages)
// into plain text and splits it into chunks.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/tomes/pkg/splitter"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20

	userAgent = "tomes/1.0 (+https://github.com/papercomputeco/tomes)"
)

// Extractor turns sources into chunks. It holds no per-call state and is safe
// for concurrent use.
type Extractor struct {
	splitter     *splitter.Splitter
	httpClient   *http.Client
	maxBodyBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSplitter overrides the default splitter (chunk size 100, overlap 10).
func WithSplitter(s *splitter.Splitter) Option {
	return func(e *Extractor) {
		if s != nil {
			e.splitter = s
		}
	}
}

// WithHTTPClient overrides the client used by FromURL.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithMaxBodyBytes caps how much of a fetched body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBodyBytes = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		splitter: splitter.New(
			splitter.WithChunkSize(splitter.DefaultChunkSize),
			splitter.WithChunkOverlap(splitter.DefaultChunkOverlap),
		),
		httpClient:   &http.Client{Timeout: defaultFetchTimeout},
		maxBodyBytes: defaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Splitter returns the splitter chunks are produced with.
func (e *Extractor) Splitter() *splitter.Splitter {
	return e.splitter
}

// FromText collapses whitespace in text and splits it.
func (e *Extractor) FromText(text string) ([]string, error) {
	return e.splitter.Split(CollapseWhitespace(text)), nil
}

// FromFile reads and parses the file at path, then splits its text.
func (e *Extractor) FromFile(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Source: path, Op: "read", Err: err}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Source: path, Op: "read", Err: err}
	}

	text, err := parseFile(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, &ExtractionError{Source: path, Op: "parse", Err: err}
	}

	return e.splitter.Split(CollapseWhitespace(text)), nil
}

func parseFile(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".html", ".htm":
		return extractHTML(strings.NewReader(string(content)))
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		if !utf8.Valid(content) {
			return "", fmt.Errorf("unsupported file type %q", ext)
		}
		return string(content), nil
	}
}

// CollapseWhitespace replaces every run of whitespace with a single space and
// trims the result.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
