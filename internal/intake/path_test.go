package intake_test

import (
	"testing"

	"intake-go/internal/intake"
)

func TestCleanEntryPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain path", raw: "project/file.txt", want: "project/file.txt"},
		{name: "backslash separators", raw: `project\sub\file.txt`, want: "project/sub/file.txt"},
		{name: "redundant segments", raw: "project/./sub//file.txt", want: "project/sub/file.txt"},
		{name: "trailing slash", raw: "project/sub/", want: "project/sub"},
		{name: "internal dotdot that stays inside", raw: "project/sub/../file.txt", want: "project/file.txt"},
		{name: "empty", raw: "", want: ""},
		{name: "absolute", raw: "/etc/passwd", want: ""},
		{name: "drive letter", raw: `C:\projects\x`, want: ""},
		{name: "bare dot", raw: ".", want: ""},
		{name: "bare dotdot", raw: "..", want: ""},
		{name: "traversal", raw: "../outside", want: ""},
		{name: "traversal after cleaning", raw: "project/../../outside", want: ""},
		{name: "collapses to dot", raw: "project/..", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intake.CleanEntryPath(tt.raw); got != tt.want {
				t.Errorf("CleanEntryPath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		path     string
		wantTop  string
		wantRest string
	}{
		{path: "project/src/main.go", wantTop: "project", wantRest: "src/main.go"},
		{path: "project/file.txt", wantTop: "project", wantRest: "file.txt"},
		{path: "loose.txt", wantTop: "", wantRest: "loose.txt"},
	}

	for _, tt := range tests {
		top, rest := intake.SplitTopLevel(tt.path)
		if top != tt.wantTop || rest != tt.wantRest {
			t.Errorf("SplitTopLevel(%q) = (%q, %q), want (%q, %q)",
				tt.path, top, rest, tt.wantTop, tt.wantRest)
		}
	}
}
