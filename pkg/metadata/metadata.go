// SPDX-License-Identifier: MPL-2.0

// Package metadata reads and writes a function's metadata.json.
package metadata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"lambkin-cli/internal/cueutil"

	"github.com/goccy/go-json"
)

// FileName is the metadata file kept in every function directory.
const FileName = "metadata.json"

//go:embed metadata_schema.cue
var schema []byte

// ErrNotFound is returned when the metadata file does not exist, which usually
// means the command was run outside a function directory.
var ErrNotFound = errors.New("metadata file not found")

type (
	// Metadata describes one function. Fields are declared in key order so the
	// encoded file has sorted keys.
	Metadata struct {
		Description string   `json:"description,omitempty"`
		Exclude     []string `json:"exclude,omitempty"`
		Function    string   `json:"function"`
		Language    string   `json:"language,omitempty"`
		Memory      int      `json:"memory,omitempty"`
		Role        string   `json:"role,omitempty"`
		Runtime     string   `json:"runtime"`
		Timeout     int      `json:"timeout,omitempty"`

		// extra holds keys this release does not know about, so rewriting the
		// file keeps them.
		extra map[string]json.RawMessage
	}

	// Store reads and writes metadata at a fixed path.
	Store struct {
		Path string
	}
)

// NewStore returns a Store for dir/metadata.json.
func NewStore(dir string) *Store {
	return &Store{Path: filepath.Join(dir, FileName)}
}

// Read loads and validates the metadata file.
func (s *Store) Read() (*Metadata, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return Parse(data, s.Path)
}

// Write replaces the metadata file with m.
func (s *Store) Write(m *Metadata) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Update reads the metadata, applies fn and writes the result back.
func (s *Store) Update(fn func(*Metadata)) (*Metadata, error) {
	m, err := s.Read()
	if err != nil {
		return nil, err
	}
	fn(m)
	if err := s.Write(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse validates data against the metadata schema and decodes it.
// filename only appears in error messages.
func Parse(data []byte, filename string) (*Metadata, error) {
	m, err := cueutil.ParseAndDecode[Metadata](schema, data, "#Metadata", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	for key, value := range raw {
		if _, ok := knownKeys[key]; ok {
			continue
		}
		if m.extra == nil {
			m.extra = make(map[string]json.RawMessage)
		}
		m.extra[key] = value
	}
	return m, nil
}

// Encode renders m as indented JSON with a trailing newline.
func Encode(m *Metadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("metadata cannot be nil")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if len(m.extra) > 0 {
		fields := make(map[string]json.RawMessage, len(m.extra)+len(knownKeys))
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		for key, value := range m.extra {
			fields[key] = value
		}
		// Maps encode with sorted keys.
		if data, err = json.Marshal(fields); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "    "); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// knownKeys are the JSON names of Metadata's declared fields.
var knownKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeFor[Metadata]()
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}()
