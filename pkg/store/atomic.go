package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// WriteJSONAtomic serializes v and writes it to path through a sibling
// temporary file: write, fsync, rename. Readers therefore never observe a
// partial file, even without holding a lock. The temporary file is removed
// on every failure path.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", errdefs.ErrStorage, filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", errdefs.ErrStorage, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %v", errdefs.ErrStorage, dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", errdefs.ErrStorage, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: sync %s: %v", errdefs.ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", errdefs.ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename to %s: %v", errdefs.ErrStorage, path, err)
	}
	return nil
}

// ReadJSON reads path into v. A missing file reports ErrNotFound; any other
// failure reports ErrStorage.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errdefs.ErrNotFound, path)
		}
		return fmt.Errorf("%w: read %s: %v", errdefs.ErrStorage, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", errdefs.ErrStorage, path, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
