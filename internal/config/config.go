// Package config loads scenario and benchmark configuration for the
// cmd/ tools from a JSON file: open the file, decode with
// encoding/json straight into the caller's struct, and return an
// error instead of panicking, matching the rest of this module's
// error-handling style.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the JSON file at path into dst, which must be a pointer.
func Load(path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}
