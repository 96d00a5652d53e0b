package mtproto

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
)

// Blob is an opaque serialized session. It is stored and transmitted but
// never inspected.
type Blob []byte

// ParseBlob decodes the text form produced by Blob.String. Surrounding
// whitespace is ignored and an empty string yields an empty blob.
func ParseBlob(s string) (Blob, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("mtproto: decode session string: %w", err)
		}
	}
	return Blob(raw), nil
}

// String returns the text form of the session.
func (b Blob) String() string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Empty reports whether the blob carries no session.
func (b Blob) Empty() bool { return len(b) == 0 }

// LogValue keeps session material out of logs.
func (b Blob) LogValue() slog.Value {
	if b.Empty() {
		return slog.StringValue("<empty>")
	}
	return slog.StringValue(fmt.Sprintf("<session %d bytes>", len(b)))
}
