// Package archive expands uploaded zip files into the normalized file
// entries the intake pipeline consumes. Nothing is ever extracted to
// disk: entries are hashed in a streaming pass over the archive.
package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"intake-go/internal/intake"
)

// DefaultMaxEntryBytes caps the uncompressed size of a single archive
// entry. The declared size in the zip header is advisory; the limit is
// enforced against the bytes actually read.
const DefaultMaxEntryBytes = 256 << 20

// ZipParser implements intake.ArchiveParser for zip archives.
type ZipParser struct {
	junk          *JunkMatcher
	maxEntryBytes int64
}

var _ intake.ArchiveParser = (*ZipParser)(nil)

// NewZipParser creates a parser with the given junk filter. A nil
// matcher uses the defaults; maxEntryBytes of 0 or less uses
// DefaultMaxEntryBytes.
func NewZipParser(junk *JunkMatcher, maxEntryBytes int64) *ZipParser {
	if junk == nil {
		junk = NewJunkMatcher(nil)
	}
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return &ZipParser{junk: junk, maxEntryBytes: maxEntryBytes}
}

// Parse enumerates the archive's file entries. Structurally hostile
// archives (absolute entry paths, traversal outside the root) fail the
// whole parse. Junk entries, directories, and symlinks are dropped.
// An entry whose content cannot be read, or that exceeds the entry size
// limit, is kept with its failure recorded so the owning project fails
// closed instead of silently losing a file. When an archive lists the
// same path twice the later entry wins.
func (p *ZipParser) Parse(r io.ReaderAt, size int64) ([]intake.ArchiveEntry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	var entries []intake.ArchiveEntry
	index := make(map[string]int)
	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			continue
		}

		cleaned := intake.CleanEntryPath(name)
		if cleaned == "" {
			return nil, fmt.Errorf("entry %q has an unsafe path", name)
		}
		if p.junk.Match(cleaned) {
			continue
		}

		entry := p.readEntry(f, cleaned)
		if i, ok := index[cleaned]; ok {
			entries[i] = entry
			continue
		}
		index[cleaned] = len(entries)
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// readEntry hashes one entry's content. Failures land on the entry.
func (p *ZipParser) readEntry(f *zip.File, cleaned string) intake.ArchiveEntry {
	entry := intake.ArchiveEntry{Path: cleaned}

	rc, err := f.Open()
	if err != nil {
		entry.Err = fmt.Sprintf("opening entry: %v", err)
		return entry
	}
	defer rc.Close()

	h := sha256.New()
	n, err := io.Copy(h, io.LimitReader(rc, p.maxEntryBytes+1))
	if err != nil {
		// Includes CRC mismatches, which the zip reader reports at
		// end of stream.
		entry.Err = fmt.Sprintf("reading entry: %v", err)
		return entry
	}
	if n > p.maxEntryBytes {
		entry.Err = fmt.Sprintf("entry exceeds size limit of %d bytes", p.maxEntryBytes)
		return entry
	}

	entry.Size = n
	entry.Hash = hex.EncodeToString(h.Sum(nil))
	return entry
}
