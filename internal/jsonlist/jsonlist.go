// Package jsonlist handles list columns stored as JSON-encoded text.
//
// The stored text is not trusted: NULL, empty strings, invalid JSON and
// non-array values all read back as an empty list.
package jsonlist

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Of is a list column of T. It scans from text and writes JSON text.
type Of[T any] []T

func (l *Of[T]) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*l = Of[T]{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("jsonlist: cannot scan %T", src)
	}

	var out []T
	if len(strings.TrimSpace(string(raw))) == 0 || json.Unmarshal(raw, &out) != nil || out == nil {
		out = []T{}
	}

	*l = out
	return nil
}

func (l Of[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}

	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l Of[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

// Strings reads a loosely typed value as a list of strings. Arrays pass
// through, JSON text is decoded, and non-string elements are formatted.
func Strings(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case Of[string]:
		return []string(t)
	case []any:
		return stringify(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		var arr []any
		if err := json.Unmarshal([]byte(t), &arr); err != nil || arr == nil {
			return []string{}
		}
		return stringify(arr)
	default:
		return []string{}
	}
}

func stringify(in []any) []string {
	out := make([]string, 0, len(in))

	for _, e := range in {
		switch s := e.(type) {
		case string:
			out = append(out, s)
		case nil:
			continue
		default:
			b, err := json.Marshal(s)
			if err != nil {
				continue
			}
			out = append(out, string(b))
		}
	}
	return out
}
