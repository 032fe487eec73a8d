package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes v to path through a temporary file and a rename, so a
// crash mid-write never leaves a truncated document behind.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		combined := fmt.Errorf("encode json: %w", err)
		if closeErr := f.Close(); closeErr != nil {
			combined = errors.Join(combined, fmt.Errorf("close temp file: %w", closeErr))
		}
		if removeErr := os.Remove(tmp); removeErr != nil {
			combined = errors.Join(combined, fmt.Errorf("remove temp file: %w", removeErr))
		}
		return combined
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

// WriteEmpty writes an empty cache document to path.
func WriteEmpty(path string) error {
	return WriteJSON(path, Empty())
}
