package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("no value at path")
	ErrUnsupported = errors.New("operation not supported by this datastore")
)

// Snapshot is the JSON value found at Path at the time it was read. A missing
// value is represented by null.
type Snapshot struct {
	Path  string
	Value json.RawMessage
}

func (s Snapshot) Exists() bool {
	return len(s.Value) > 0 && string(s.Value) != "null"
}

func (s Snapshot) Decode(v interface{}) error {
	if !s.Exists() {
		return ErrNotFound
	}

	return json.Unmarshal(s.Value, v)
}

// Store is a hierarchical JSON document store addressed by slash separated paths
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)

	// Set replaces the value at path, a nil value deletes it
	Set(ctx context.Context, path string, value interface{}) error

	// Subscribe calls onChange with the current value and then after every
	// change affecting path until the returned function is called or ctx ends
	Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error)

	Close(ctx context.Context) error
}

func SplitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	return segments
}

func JoinPath(segments ...string) string {
	return strings.Join(SplitPath(strings.Join(segments, "/")), "/")
}

// normalize converts value into its generic JSON form so stores never hold
// references to caller owned data
func normalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	var data []byte
	switch v := value.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return nil, err
		}
	}

	var normalized interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}

func marshalValue(value interface{}) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage("null")
	}

	return data
}

func lookup(node interface{}, segments []string) interface{} {
	for _, segment := range segments {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m[segment]
	}

	return node
}

// overlaps reports whether a write to one path can change the value at the other
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
