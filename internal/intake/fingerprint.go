package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Fingerprints are SHA-256 hex digests computed over a project
// directory's file listing. The strict fingerprint covers the sorted
// (relpath, content hash) pairs, so renaming a file changes it. The
// loose fingerprint covers only the sorted multiset of content hashes,
// so pure renames and moves leave it unchanged.
//
// Both functions are pure: inputs are copied before sorting, repeated
// calls over the same records yield the same digest, and input order
// never matters. A project with zero files digests the empty input,
// which is valid and distinct from any non-empty listing.

// StrictFingerprint computes the strict digest over the given records.
// A record with an empty hash means the file could not be read; the
// whole fingerprint fails rather than silently dropping the file.
func StrictFingerprint(files []FileRecord) (string, error) {
	if err := checkReadable(files); err != nil {
		return "", err
	}

	sorted := make([]FileRecord, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Relpath != sorted[j].Relpath {
			return sorted[i].Relpath < sorted[j].Relpath
		}
		return sorted[i].Hash < sorted[j].Hash
	})

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Relpath))
		h.Write([]byte{0})
		h.Write([]byte(f.Hash))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LooseFingerprint computes the loose digest over the given records.
// Duplicate content hashes are kept: the digest covers a multiset, so a
// project with two identical files differs from one with a single copy.
func LooseFingerprint(files []FileRecord) (string, error) {
	if err := checkReadable(files); err != nil {
		return "", err
	}

	hashes := make([]string, len(files))
	for i, f := range files {
		hashes[i] = f.Hash
	}
	sort.Strings(hashes)

	h := sha256.New()
	for _, hash := range hashes {
		h.Write([]byte(hash))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkReadable(files []FileRecord) error {
	for _, f := range files {
		if f.Hash == "" {
			return fmt.Errorf("file %q has no content hash", f.Relpath)
		}
	}
	return nil
}
