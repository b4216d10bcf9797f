package archive

import (
	"bytes"
	"strings"
	"testing"

	"intake-go/internal/testutil"
)

func parseZip(t *testing.T, p *ZipParser, data []byte) []struct {
	Path, Hash, Err string
	Size            int64
} {
	t.Helper()

	entries, err := p.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out := make([]struct {
		Path, Hash, Err string
		Size            int64
	}, len(entries))
	for i, e := range entries {
		out[i] = struct {
			Path, Hash, Err string
			Size            int64
		}{e.Path, e.Hash, e.Err, e.Size}
	}
	return out
}

func TestZipParser_Parse(t *testing.T) {
	t.Run("hashes entries and sorts by path", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		data := testutil.BuildZip(t, []testutil.ZipEntry{
			{Name: "project/z.txt", Data: []byte("zebra")},
			{Name: "project/a.txt", Data: []byte("alpha")},
		})

		entries := parseZip(t, p, data)
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}
		if entries[0].Path != "project/a.txt" || entries[1].Path != "project/z.txt" {
			t.Errorf("order = %s, %s, want a.txt first", entries[0].Path, entries[1].Path)
		}
		if want := testutil.SHA256Hex([]byte("alpha")); entries[0].Hash != want {
			t.Errorf("Hash = %s, want %s", entries[0].Hash, want)
		}
		if entries[0].Size != int64(len("alpha")) {
			t.Errorf("Size = %d, want %d", entries[0].Size, len("alpha"))
		}
	})

	t.Run("drops directories and junk", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		data := testutil.BuildZip(t, []testutil.ZipEntry{
			{Name: "project/", Data: nil},
			{Name: "project/main.go", Data: []byte("package main")},
			{Name: "__MACOSX/project/._main.go", Data: []byte("junk")},
			{Name: "project/.DS_Store", Data: []byte("junk")},
		})

		entries := parseZip(t, p, data)
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		if entries[0].Path != "project/main.go" {
			t.Errorf("Path = %s, want project/main.go", entries[0].Path)
		}
	})

	t.Run("normalizes backslash separators", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		data := testutil.BuildZip(t, []testutil.ZipEntry{
			{Name: `project\docs\readme.md`, Data: []byte("hello")},
		})

		entries := parseZip(t, p, data)
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		if entries[0].Path != "project/docs/readme.md" {
			t.Errorf("Path = %s, want forward slashes", entries[0].Path)
		}
	})

	t.Run("rejects hostile paths", func(t *testing.T) {
		tests := []struct {
			name  string
			entry string
		}{
			{name: "absolute path", entry: "/etc/passwd"},
			{name: "traversal", entry: "../outside.txt"},
			{name: "nested traversal", entry: "project/../../outside.txt"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := NewZipParser(nil, 0)
				data := testutil.BuildZip(t, []testutil.ZipEntry{
					{Name: tt.entry, Data: []byte("boom")},
				})

				_, err := p.Parse(bytes.NewReader(data), int64(len(data)))
				if err == nil {
					t.Fatalf("Parse() with entry %q expected error", tt.entry)
				}
				if !strings.Contains(err.Error(), "unsafe path") {
					t.Errorf("error = %v, want unsafe path", err)
				}
			})
		}
	})

	t.Run("later duplicate entry wins", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		data := testutil.BuildZip(t, []testutil.ZipEntry{
			{Name: "project/file.txt", Data: []byte("first")},
			{Name: "project/file.txt", Data: []byte("second")},
		})

		entries := parseZip(t, p, data)
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		if want := testutil.SHA256Hex([]byte("second")); entries[0].Hash != want {
			t.Errorf("Hash = %s, want the later entry's content", entries[0].Hash)
		}
	})

	t.Run("oversized entry fails closed on the entry", func(t *testing.T) {
		p := NewZipParser(nil, 4)
		data := testutil.BuildZip(t, []testutil.ZipEntry{
			{Name: "project/big.bin", Data: []byte("way too large")},
			{Name: "project/ok.txt", Data: []byte("ok")},
		})

		entries := parseZip(t, p, data)
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}

		big := entries[0]
		if big.Path != "project/big.bin" {
			t.Fatalf("Path = %s, want project/big.bin", big.Path)
		}
		if big.Err == "" {
			t.Error("oversized entry has no recorded failure")
		}
		if big.Hash != "" {
			t.Error("oversized entry still has a hash")
		}

		ok := entries[1]
		if ok.Err != "" || ok.Hash == "" {
			t.Errorf("small entry = %+v, want hashed cleanly", ok)
		}
	})

	t.Run("rejects non-zip input", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		garbage := []byte("this is not a zip archive")

		_, err := p.Parse(bytes.NewReader(garbage), int64(len(garbage)))
		if err == nil {
			t.Error("Parse() expected error for non-zip input")
		}
	})

	t.Run("empty archive yields no entries", func(t *testing.T) {
		p := NewZipParser(nil, 0)
		data := testutil.BuildZip(t, nil)

		entries := parseZip(t, p, data)
		if len(entries) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(entries))
		}
	})
}
