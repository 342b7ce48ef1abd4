package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/feedmirror/feedmirror/pkg/plugin"
)

// Manifest is one published plugin list: a version tag and the descriptors.
type Manifest struct {
	Desc    string              `json:"desc"`
	Plugins []plugin.Descriptor `json:"plugins"`
}

// Write serializes m as indented JSON and writes it to path via a temp file
// rename, so a partial write surfaces as a failure instead of corrupt output.
// It reports the outcome through the log and the returned bool; it never
// propagates an error past this boundary.
func Write(path string, m Manifest) bool {
	data, err := Encode(m)
	if err != nil {
		slog.Error("manifest serialization failed", "path", path, "error", err)
		return false
	}

	if err := writeAtomic(path, data); err != nil {
		slog.Error("manifest write failed", "path", path, "error", err)
		return false
	}

	slog.Info("manifest written", "path", path, "plugins", len(m.Plugins))
	return true
}

// Encode renders the manifest document: two-space indent, HTML escaping off,
// and forward slashes kept literal inside string values (some serializers
// escape them; published manifests never contain the escaped form).
func Encode(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	return bytes.ReplaceAll(buf.Bytes(), []byte(`\/`), []byte(`/`)), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
