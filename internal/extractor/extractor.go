// Package extractor validates a binary artifact container and recovers the
// JSON payload it carries. Extraction is pure: the same bytes always yield
// the same payload, and nothing is cached between calls.
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	// Leading local-file-header signature every non-empty zip starts with.
	magic = "PK\x03\x04"

	// Smallest byte length a structurally valid container can have.
	minContainerSize = 22

	// defaultPayloadName is the payload file the upstream reward job writes.
	defaultPayloadName = "output.json"
)

// Extractor recovers JSON payloads from artifact containers.
type Extractor struct {
	payloadName string
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithPayloadName overrides the expected payload entry name.
func WithPayloadName(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.payloadName = name
		}
	}
}

// New creates an Extractor with default configuration.
func New(opts ...Option) *Extractor {
	e := &Extractor{payloadName: defaultPayloadName}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract validates the container and returns the payload entries as raw
// JSON messages. A payload that is a single JSON object is normalized to a
// one-element slice; a payload that is an array is returned element-wise.
func (e *Extractor) Extract(data []byte) ([]json.RawMessage, error) {
	if len(data) < minContainerSize {
		return nil, fmt.Errorf("%w: %d bytes is below minimum container size", ErrInvalidContainer, len(data))
	}
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, fmt.Errorf("%w: leading signature mismatch", ErrInvalidContainer)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	entry := e.findPayload(zr)
	if entry == nil {
		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		return nil, &MissingEntryError{Want: e.payloadName, Entries: names}
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrMalformedPayload, entry.Name, err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrMalformedPayload, entry.Name, err)
	}

	return normalize(raw)
}

// findPayload locates the expected payload entry, preferring an exact name
// match and falling back to a case-insensitive one.
func (e *Extractor) findPayload(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if f.Name == e.payloadName {
			return f
		}
	}
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, e.payloadName) {
			return f
		}
	}
	return nil
}

// normalize parses the payload bytes and returns its entries. Arrays are
// split element-wise; a bare object becomes a single-element slice.
func normalize(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return entries, nil
	case '{':
		var entry json.RawMessage
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return []json.RawMessage{entry}, nil
	default:
		return nil, fmt.Errorf("%w: payload is neither a JSON array nor an object", ErrMalformedPayload)
	}
}
