package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ident is a peer identifier. Workflow engines send numeric chat IDs both as
// JSON numbers and as strings, so both are accepted.
type Ident string

// UnmarshalJSON implements json.Unmarshaler.
func (id *Ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Ident(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier must be a string or a number: %w", err)
	}
	*id = Ident(n.String())
	return nil
}

// IDList is a list of message IDs. It decodes from a JSON array, a single
// number, or a comma separated string such as "10, 11,12".
type IDList []int

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '[':
		var ids []int
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*l = ids
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		ids, err := ParseIDs(s)
		if err != nil {
			return err
		}
		*l = ids
		return nil
	default:
		var id int
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("message ids must be a list, a number or a string: %w", err)
		}
		*l = IDList{id}
		return nil
	}
}

// ParseIDs splits a comma separated list of message IDs. Blank entries are
// skipped.
func ParseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("message id %q is not a number", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
