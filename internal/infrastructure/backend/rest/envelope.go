package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidResponse indicates a response body that could not be decoded
// into the expected shape.
var ErrInvalidResponse = errors.New("rest: invalid backend response")

// The REST facade is not consistent about envelopes: a call may answer with
// a bare array, a bare object, or an object wrapping the payload under a
// "result" key. unwrap applies the one normalization rule: if the top-level
// body is an object containing "result", use that value; otherwise use the
// body itself.
func unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return trimmed
	}
	if result, ok := probe["result"]; ok {
		return bytes.TrimSpace(result)
	}
	return trimmed
}

// decodeList decodes a list-returning call. A single unwrapped object is
// promoted to a one-element list, so the output is always a slice.
func decodeList[T any](body []byte) ([]T, error) {
	payload := unwrap(body)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return []T{}, nil
	}
	if payload[0] == '[' {
		var out []T
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return out, nil
	}
	var one T
	if err := json.Unmarshal(payload, &one); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return []T{one}, nil
}

// decodeOne decodes a singular call. An unwrapped list yields its first
// element; an empty payload yields nil without error.
func decodeOne[T any](body []byte) (*T, error) {
	payload := unwrap(body)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}
	if payload[0] == '[' {
		var list []T
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}
	var one T
	if err := json.Unmarshal(payload, &one); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &one, nil
}
