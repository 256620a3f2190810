package fuzzconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration at path. When the file does not
// exist a default one is written there and ErrMissingConfig is returned, so
// the caller exits instead of running with values nobody reviewed.
func Load(path string) (*Config, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(f)
}

// LoadFile is Load without Parse, for callers that adjust the file first.
func LoadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := WriteDefault(path); werr != nil {
			return File{}, fmt.Errorf("write default config %s: %w", path, werr)
		}
		return File{}, fmt.Errorf("%w: wrote a default one to %s", ErrMissingConfig, path)
	}
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := Decode(raw)
	if err != nil {
		return File{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return f, nil
}

// Decode unmarshals YAML into a File. Unknown keys are rejected.
func Decode(raw []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, err
	}
	return f, nil
}

// WriteDefault writes DefaultFile to path, creating parent directories.
func WriteDefault(path string) error {
	out, err := yaml.Marshal(DefaultFile())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o644)
}
