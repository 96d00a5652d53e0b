package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Request body limits.
const (
	// DefaultMaxBodySize leaves room for a base64 document in sendMedia.
	DefaultMaxBodySize  = 64 << 20
	DefaultMaxJSONDepth = 32
)

// Validation errors.
var (
	ErrBodyTooLarge = errors.New("request body exceeds maximum size")
	ErrJSONTooDeep  = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON  = errors.New("invalid JSON")
)

// ValidateBodySize rejects data longer than limit bytes. A limit of zero or
// less means DefaultMaxBodySize.
func ValidateBodySize(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	if len(data) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrBodyTooLarge, len(data), limit)
	}
	return nil
}

// ValidateJSONDepth rejects JSON nested deeper than limit. A limit of zero or
// less means DefaultMaxJSONDepth.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if depth != 0 {
				return fmt.Errorf("%w: unexpected end of input", ErrInvalidJSON)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
