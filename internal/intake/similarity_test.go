package intake_test

import (
	"testing"

	"intake-go/internal/intake"
)

func set(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    map[string]struct{}
		b    map[string]struct{}
		want float64
	}{
		{
			name: "identical sets",
			a:    set("h1", "h2", "h3"),
			b:    set("h1", "h2", "h3"),
			want: 1.0,
		},
		{
			name: "disjoint sets",
			a:    set("h1", "h2"),
			b:    set("h3", "h4"),
			want: 0.0,
		},
		{
			name: "half overlap",
			a:    set("h1", "h2"),
			b:    set("h2", "h3"),
			want: 1.0 / 3.0,
		},
		{
			name: "subset",
			a:    set("h1", "h2", "h3", "h4"),
			b:    set("h1", "h2"),
			want: 0.5,
		},
		{
			name: "both empty",
			a:    set(),
			b:    set(),
			want: 0.0,
		},
		{
			name: "one empty",
			a:    set("h1"),
			b:    set(),
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intake.JaccardSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("JaccardSimilarity() = %v, want %v", got, tt.want)
			}

			// Symmetric by definition.
			if rev := intake.JaccardSimilarity(tt.b, tt.a); rev != got {
				t.Errorf("JaccardSimilarity() not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestHashSet(t *testing.T) {
	files := []intake.FileRecord{
		{Relpath: "a.txt", Hash: "h1"},
		{Relpath: "b.txt", Hash: "h2"},
		{Relpath: "copy-of-a.txt", Hash: "h1"},
	}

	got := intake.HashSet(files)
	if len(got) != 2 {
		t.Errorf("HashSet() has %d entries, want 2 (duplicates collapse)", len(got))
	}
	for _, h := range []string{"h1", "h2"} {
		if _, ok := got[h]; !ok {
			t.Errorf("HashSet() missing %s", h)
		}
	}
}

func TestRelpathSet(t *testing.T) {
	files := []intake.FileRecord{
		{Relpath: "a.txt", Hash: "h1"},
		{Relpath: "b.txt", Hash: "h2"},
	}

	got := intake.RelpathSet(files)
	if len(got) != 2 {
		t.Fatalf("RelpathSet() has %d entries, want 2", len(got))
	}
	if _, ok := got["a.txt"]; !ok {
		t.Error("RelpathSet() missing a.txt")
	}
}

func TestStringSet(t *testing.T) {
	got := intake.StringSet([]string{"x", "y", "x"})
	if len(got) != 2 {
		t.Errorf("StringSet() has %d entries, want 2", len(got))
	}
}
