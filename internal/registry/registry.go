// Package registry stores named feed source definitions.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no source has the requested name.
	ErrNotFound = errors.New("source not found")
	// ErrInvalidName is returned for names that cannot be stored.
	ErrInvalidName = errors.New("invalid source name")
)

// Source is a pair of feed URLs. Either may be empty, meaning that feed is
// not requested.
type Source struct {
	VehiclePositionsURL string `json:"vehicle_positions_url"`
	TripUpdatesURL      string `json:"trip_updates_url"`
}

// Store persists sources by name.
type Store interface {
	Get(ctx context.Context, name string) (Source, error)
	Put(ctx context.Context, name string, src Source) error
	// Delete reports whether a source was removed.
	Delete(ctx context.Context, name string) (bool, error)
	// List returns all names, sorted.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// ValidateName rejects empty names, names containing a slash and names
// starting with a dot.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	return nil
}

// encode renders src the way definitions are stored: indented UTF-8 JSON.
func encode(src Source) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(src); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decode accepts definitions with missing or unknown fields.
func decode(name string, b []byte) (Source, error) {
	var src Source
	if err := json.Unmarshal(b, &src); err != nil {
		return Source{}, fmt.Errorf("decode source %q: %w", name, err)
	}
	return src, nil
}
