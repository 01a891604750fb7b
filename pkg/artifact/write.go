package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// Artifact file names.
const (
	FileODN      = "odn.json"
	FileODD      = "odd.json"
	FileMetadata = "metadata.json"
	FileMappings = "zone-mappings.json"
	FileReport   = "report.json"
	FileIndex    = "index.json"
)

// MapFile returns the map artifact name of a department.
func MapFile(department string) string {
	return department + "_map.json"
}

// Encode encodes v as JSON. Indented output is meant for small artifacts
// people read; large geometry artifacts stay compact.
func Encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path through a temporary file in the same
// directory followed by a rename, so readers see either the old or the new
// content. The parent directory is created if needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return verrors.Wrap(verrors.ErrCodeIO, err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeIO, err, "create temp file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return verrors.Wrap(verrors.ErrCodeIO, err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return verrors.Wrap(verrors.ErrCodeIO, err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return verrors.Wrap(verrors.ErrCodeIO, err, "close %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return verrors.Wrap(verrors.ErrCodeIO, err, "chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return verrors.Wrap(verrors.ErrCodeIO, err, "rename into %s", path)
	}
	return nil
}

// WriteJSON encodes v and writes it to path with [WriteFile].
func WriteJSON(path string, v any, indent bool) error {
	data, err := Encode(v, indent)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return verrors.Wrap(verrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return verrors.Wrap(verrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Decode(f, v)
}

// Decode decodes one JSON value from r into v.
func Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidInput, err, "decode")
	}
	return nil
}
