package testutil

import (
	"archive/zip"
	"bytes"
	"maps"
	"slices"
	"testing"
)

// ZipEntry is a single file placed in a test archive.
type ZipEntry struct {
	Name string
	Data []byte
}

// BuildZip writes a zip archive containing the given entries in order.
func BuildZip(t *testing.T, entries []ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("writing zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// BuildZipMap builds a zip from a path-to-content map. Entries are written
// in sorted path order so archives built from equal maps are byte-identical.
func BuildZipMap(t *testing.T, files map[string]string) []byte {
	t.Helper()

	entries := make([]ZipEntry, 0, len(files))
	for _, name := range slices.Sorted(maps.Keys(files)) {
		entries = append(entries, ZipEntry{Name: name, Data: []byte(files[name])})
	}
	return BuildZip(t, entries)
}
