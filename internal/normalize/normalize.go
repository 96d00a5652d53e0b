// Package normalize flattens gotd wire objects into the canonical records of
// package record.
//
// Every function accepts nil and unknown variants. Optional wire fields are
// read through the generated getters so an unset flag stays nil, and type
// tags are the wire constructor names.
package normalize

import (
	"strconv"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/pkg/record"
)

// typeNamer is implemented by every generated tg object.
type typeNamer interface {
	TypeName() string
}

func opt[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func optID[T ~int | ~int64](v T, ok bool) *string {
	if !ok {
		return nil
	}
	s := strconv.FormatInt(int64(v), 10)
	return &s
}

func id[T ~int | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func typeName(v any) string {
	if t, ok := v.(typeNamer); ok {
		return t.TypeName()
	}
	return "unknown"
}

func restrictions(rr []tg.RestrictionReason, ok bool) []record.RestrictionReason {
	if !ok {
		return nil
	}
	out := make([]record.RestrictionReason, 0, len(rr))
	for _, r := range rr {
		out = append(out, record.RestrictionReason{Platform: r.Platform, Reason: r.Reason, Text: r.Text})
	}
	return out
}

func usernames(uu []tg.Username, ok bool) []record.Username {
	if !ok {
		return nil
	}
	out := make([]record.Username, 0, len(uu))
	for _, u := range uu {
		out = append(out, record.Username{Username: u.Username, Active: u.Active, Editable: u.Editable})
	}
	return out
}
