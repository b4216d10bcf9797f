package intake_test

import (
	"strings"
	"testing"

	"intake-go/internal/intake"
)

func TestStrictFingerprint(t *testing.T) {
	base := []intake.FileRecord{
		{Relpath: "src/main.go", Hash: "aaa", Size: 10},
		{Relpath: "docs/readme.md", Hash: "bbb", Size: 20},
	}

	t.Run("deterministic", func(t *testing.T) {
		first, err := intake.StrictFingerprint(base)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		second, err := intake.StrictFingerprint(base)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		if first != second {
			t.Errorf("repeated calls differ: %s vs %s", first, second)
		}
	})

	t.Run("input order does not matter", func(t *testing.T) {
		reversed := []intake.FileRecord{base[1], base[0]}

		a, err := intake.StrictFingerprint(base)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		b, err := intake.StrictFingerprint(reversed)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		if a != b {
			t.Errorf("order changed the digest: %s vs %s", a, b)
		}
	})

	t.Run("rename changes the digest", func(t *testing.T) {
		renamed := []intake.FileRecord{
			{Relpath: "src/app.go", Hash: "aaa", Size: 10},
			{Relpath: "docs/readme.md", Hash: "bbb", Size: 20},
		}

		a, _ := intake.StrictFingerprint(base)
		b, err := intake.StrictFingerprint(renamed)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		if a == b {
			t.Error("rename left the strict digest unchanged")
		}
	})

	t.Run("content change changes the digest", func(t *testing.T) {
		edited := []intake.FileRecord{
			{Relpath: "src/main.go", Hash: "zzz", Size: 10},
			{Relpath: "docs/readme.md", Hash: "bbb", Size: 20},
		}

		a, _ := intake.StrictFingerprint(base)
		b, err := intake.StrictFingerprint(edited)
		if err != nil {
			t.Fatalf("StrictFingerprint() error = %v", err)
		}
		if a == b {
			t.Error("content change left the strict digest unchanged")
		}
	})

	t.Run("empty listing is valid and distinct", func(t *testing.T) {
		empty, err := intake.StrictFingerprint(nil)
		if err != nil {
			t.Fatalf("StrictFingerprint(nil) error = %v", err)
		}
		if empty == "" {
			t.Fatal("empty listing produced no digest")
		}
		nonEmpty, _ := intake.StrictFingerprint(base)
		if empty == nonEmpty {
			t.Error("empty listing digest collides with a non-empty one")
		}
	})

	t.Run("unreadable file fails the fingerprint", func(t *testing.T) {
		broken := []intake.FileRecord{
			{Relpath: "src/main.go", Hash: "aaa"},
			{Relpath: "data/corrupt.bin", Hash: ""},
		}

		_, err := intake.StrictFingerprint(broken)
		if err == nil {
			t.Fatal("StrictFingerprint() expected error for unreadable file")
		}
		if !strings.Contains(err.Error(), "corrupt.bin") {
			t.Errorf("error = %v, want the unreadable file named", err)
		}
	})
}

func TestLooseFingerprint(t *testing.T) {
	t.Run("renames and moves do not change the digest", func(t *testing.T) {
		original := []intake.FileRecord{
			{Relpath: "src/main.go", Hash: "aaa"},
			{Relpath: "docs/readme.md", Hash: "bbb"},
		}
		shuffled := []intake.FileRecord{
			{Relpath: "notes.md", Hash: "bbb"},
			{Relpath: "lib/core/main.go", Hash: "aaa"},
		}

		a, err := intake.LooseFingerprint(original)
		if err != nil {
			t.Fatalf("LooseFingerprint() error = %v", err)
		}
		b, err := intake.LooseFingerprint(shuffled)
		if err != nil {
			t.Fatalf("LooseFingerprint() error = %v", err)
		}
		if a != b {
			t.Errorf("pure rename changed the loose digest: %s vs %s", a, b)
		}
	})

	t.Run("digest covers a multiset", func(t *testing.T) {
		single := []intake.FileRecord{
			{Relpath: "a.txt", Hash: "aaa"},
		}
		doubled := []intake.FileRecord{
			{Relpath: "a.txt", Hash: "aaa"},
			{Relpath: "copy-of-a.txt", Hash: "aaa"},
		}

		a, _ := intake.LooseFingerprint(single)
		b, err := intake.LooseFingerprint(doubled)
		if err != nil {
			t.Fatalf("LooseFingerprint() error = %v", err)
		}
		if a == b {
			t.Error("duplicate content collapsed; the loose digest must count copies")
		}
	})

	t.Run("content change changes the digest", func(t *testing.T) {
		a, _ := intake.LooseFingerprint([]intake.FileRecord{{Relpath: "a", Hash: "aaa"}})
		b, err := intake.LooseFingerprint([]intake.FileRecord{{Relpath: "a", Hash: "zzz"}})
		if err != nil {
			t.Fatalf("LooseFingerprint() error = %v", err)
		}
		if a == b {
			t.Error("content change left the loose digest unchanged")
		}
	})

	t.Run("unreadable file fails the fingerprint", func(t *testing.T) {
		_, err := intake.LooseFingerprint([]intake.FileRecord{{Relpath: "bad", Hash: ""}})
		if err == nil {
			t.Fatal("LooseFingerprint() expected error for unreadable file")
		}
	})
}
