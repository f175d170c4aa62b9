package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a fleet definition from a YAML file.
// Defaults are applied; validation is left to the caller because CLI flags
// may still override fields.
func LoadFile(path string) (*Fleet, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.ApplyDefaults()
	return f, nil
}

// ReadFile parses a fleet definition without applying defaults. An empty
// file yields an empty Fleet.
func ReadFile(path string) (*Fleet, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f Fleet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &f, nil
}

// ReadScript returns the content of a script file, or "" for an empty path.
func ReadScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return string(data), nil
}
