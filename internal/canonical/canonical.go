// Package canonical produces deterministic JSON for hashing. Two logically
// identical values must serialize to identical bytes regardless of map
// iteration order or struct field insertion history, otherwise report hashes
// are not reproducible at verification time.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal returns deterministic JSON bytes for an arbitrary JSON-like value.
// Rules:
//   - objects: keys sorted lexicographically
//   - arrays: element order preserved
//   - numbers: textual representation preserved via json.Number where the
//     input came through a decoder; other numerics encode via encoding/json
//   - strings/booleans/null: standard JSON encoding
//
// Values that are not already map/slice/primitive shaped (structs, typed
// slices) are round-tripped through encoding/json with UseNumber first so
// their keys sort the same way every time.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, v interface{}) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if vv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(vv.String())
	case string:
		b, err := json.Marshal(vv)
		if err != nil {
			return err
		}
		buf.Write(b)
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		b, err := json.Marshal(vv)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := write(buf, vv[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		reshaped, err := reshape(vv)
		if err != nil {
			return err
		}
		return write(buf, reshaped)
	}
	return nil
}

// reshape round-trips a typed value through encoding/json so it becomes
// map/slice/primitive shaped, preserving number text with UseNumber.
func reshape(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonical decode: %w", err)
	}
	return out, nil
}
