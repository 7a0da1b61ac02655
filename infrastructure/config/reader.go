package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Reader loads a Config from a JSON file on disk, grounded on the teacher's
// server_configuration.reader: stat first for a clear not-found message,
// then decode.
type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

func (r *Reader) Read() (*Config, error) {
	if _, err := os.Stat(r.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file does not exist: %s", r.path)
		}
		return nil, fmt.Errorf("configuration file not found: %s", r.path)
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("configuration file (%s) is unreadable: %w", r.path, err)
	}

	cfg := NewDefaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("configuration file (%s) is invalid: %w", r.path, err)
	}
	cfg.ApplyDefaults()

	return cfg, nil
}
