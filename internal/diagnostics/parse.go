package diagnostics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// MaxDepth bounds how many mapping levels Parse keeps. Anything nested deeper
// is replaced by TruncatedMarker.
const MaxDepth = 64

const TruncatedMarker = "[max depth reached]"

var (
	ErrInvalidJSON = errors.New("diagnostics: invalid JSON")
	ErrNotObject   = errors.New("diagnostics: root must be a JSON object")
)

// Parse decodes a JSON object into a Node, keeping keys in document order.
// Arrays become mappings keyed by their index.
func Parse(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	return parseObject(data, 1)
}

func parseObject(data []byte, depth int) (*Node, error) {
	n := Map()
	if isEmptyContainer(data) {
		return n, nil
	}

	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		child, err := parseValue(value, dt, depth)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		n.Set(k, child)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return n, nil
}

func parseArray(data []byte, depth int) (*Node, error) {
	n := Map()
	if isEmptyContainer(data) {
		return n, nil
	}

	var (
		i       int
		itemErr error
	)
	_, err := jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
		if itemErr != nil {
			return
		}
		if err != nil {
			itemErr = err
			return
		}
		child, err := parseValue(value, dt, depth)
		if err != nil {
			itemErr = err
			return
		}
		n.Set(strconv.Itoa(i), child)
		i++
	})
	if err == nil {
		err = itemErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return n, nil
}

// parseValue converts one value found at the given depth of its parent.
func parseValue(value []byte, dt jsonparser.ValueType, depth int) (*Node, error) {
	switch dt {
	case jsonparser.Object, jsonparser.Array:
		if depth >= MaxDepth {
			return String(TruncatedMarker), nil
		}
		if dt == jsonparser.Object {
			return parseObject(value, depth+1)
		}
		return parseArray(value, depth+1)
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case jsonparser.Number:
		return number(value), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, err
		}
		return Bool(b), nil
	case jsonparser.Null:
		return Null(), nil
	default:
		return nil, fmt.Errorf("unexpected value %q", value)
	}
}

// number keeps integer literals as written and normalises everything else
// through float64, so 1.50 renders as 1.5.
func number(literal []byte) *Node {
	if i, err := strconv.ParseInt(string(literal), 10, 64); err == nil {
		return Int(i)
	}
	f, err := strconv.ParseFloat(string(literal), 64)
	if err != nil {
		return String(string(literal))
	}
	return Float(f)
}

func isEmptyContainer(data []byte) bool {
	return len(data) >= 2 && len(bytes.TrimSpace(data[1:len(data)-1])) == 0
}
