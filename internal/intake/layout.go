package intake

import (
	"path"
	"sort"
	"strings"

	"intake-go/internal/model"
)

// Grouping directory names recognized at the archive's top level. A
// project directory found under one of these is auto-classified.
const (
	groupIndividual    = "individual"
	groupCollaborative = "collaborative"
)

// DefaultCodeExtensions and DefaultTextExtensions drive project
// auto-typing. Both lists are overridable through configuration.
var (
	DefaultCodeExtensions = []string{
		".c", ".cc", ".cpp", ".cs", ".css", ".go", ".h", ".hpp", ".html",
		".ipynb", ".java", ".js", ".jsx", ".kt", ".m", ".php", ".pl", ".py",
		".r", ".rb", ".rs", ".scala", ".sh", ".sql", ".swift", ".ts", ".tsx",
	}
	DefaultTextExtensions = []string{
		".doc", ".docx", ".markdown", ".md", ".odt", ".pdf", ".rtf",
		".tex", ".txt",
	}
)

// Layout is the analyzed shape of an uploaded archive: which top-level
// directories are candidate projects, what was auto-classified from
// grouping folders, and which loose files were set aside.
type Layout struct {
	RootFolder string
	StrayFiles []string
	Projects   []*CandidateProject
}

// CandidateProject is one directory proposed as a project. Name doubles
// as the proposed display name. AutoClass and AutoType are empty when
// the layout gives no signal and the caller must ask.
type CandidateProject struct {
	Name       string
	AutoClass  model.Classification
	AutoType   model.ProjectType
	Files      []FileRecord
	Unreadable []string
}

// AnalyzeLayout groups archive entries into candidate projects.
//
// A single top-level directory that contains only subdirectories is
// treated as a wrapper (the name archive tools prepend) and stripped.
// Directories named "individual" or "collaborative" group projects and
// classify them; anything else at the top level is a project of its own.
// Loose files that belong to no project directory are reported as strays.
func AnalyzeLayout(entries []ArchiveEntry, codeExts, textExts map[string]struct{}) *Layout {
	layout := &Layout{}

	live := make([]ArchiveEntry, 0, len(entries))
	for _, e := range entries {
		if e.Path == "" {
			continue
		}
		live = append(live, e)
	}

	live, layout.RootFolder = stripWrapper(live)

	type bucket struct {
		class      model.Classification
		files      []FileRecord
		unreadable []string
	}
	buckets := make(map[string]*bucket)

	addEntry := func(name string, class model.Classification, rel string, e ArchiveEntry) {
		b := buckets[name]
		if b == nil {
			b = &bucket{class: class}
			buckets[name] = b
		}
		if e.Err != "" {
			b.unreadable = append(b.unreadable, rel)
			return
		}
		b.files = append(b.files, FileRecord{Relpath: rel, Hash: e.Hash, Size: e.Size})
	}

	for _, e := range live {
		top, rest := SplitTopLevel(e.Path)
		if top == "" {
			layout.StrayFiles = append(layout.StrayFiles, e.Path)
			continue
		}

		switch strings.ToLower(top) {
		case groupIndividual, groupCollaborative:
			class := model.ClassificationIndividual
			if strings.ToLower(top) == groupCollaborative {
				class = model.ClassificationCollaborative
			}
			name, rel := SplitTopLevel(rest)
			if name == "" {
				// Loose file directly inside a grouping folder.
				layout.StrayFiles = append(layout.StrayFiles, e.Path)
				continue
			}
			addEntry(name, class, rel, e)
		default:
			addEntry(top, "", rest, e)
		}
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	sort.Strings(layout.StrayFiles)

	for _, name := range names {
		b := buckets[name]
		sort.Slice(b.files, func(i, j int) bool { return b.files[i].Relpath < b.files[j].Relpath })
		sort.Strings(b.unreadable)
		layout.Projects = append(layout.Projects, &CandidateProject{
			Name:       name,
			AutoClass:  b.class,
			AutoType:   autoType(b.files, codeExts, textExts),
			Files:      b.files,
			Unreadable: b.unreadable,
		})
	}

	return layout
}

// stripWrapper removes a single enclosing directory when the archive has
// exactly one top-level directory, no loose top-level files, and that
// directory holds only subdirectories. Returns the rewritten entries and
// the stripped name ("" when nothing was stripped). Grouping folder
// names are never wrappers: a zip of just individual/ keeps its
// classification signal.
func stripWrapper(entries []ArchiveEntry) ([]ArchiveEntry, string) {
	var root string
	for _, e := range entries {
		top, rest := SplitTopLevel(e.Path)
		if top == "" {
			return entries, ""
		}
		if root == "" {
			root = top
		} else if top != root {
			return entries, ""
		}
		// A file directly inside the candidate wrapper means it is a
		// project directory, not a wrapper.
		if !strings.Contains(rest, "/") {
			return entries, ""
		}
	}
	if root == "" {
		return entries, ""
	}
	switch strings.ToLower(root) {
	case groupIndividual, groupCollaborative:
		return entries, ""
	}

	stripped := make([]ArchiveEntry, len(entries))
	for i, e := range entries {
		_, rest := SplitTopLevel(e.Path)
		stripped[i] = e
		stripped[i].Path = rest
	}
	return stripped, root
}

// autoType assigns a project type from file extensions: all recognized
// files code means code, all text means text, anything mixed or
// unrecognized stays unassigned for the caller to resolve.
func autoType(files []FileRecord, codeExts, textExts map[string]struct{}) model.ProjectType {
	code, text := 0, 0
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Relpath))
		if _, ok := codeExts[ext]; ok {
			code++
			continue
		}
		if _, ok := textExts[ext]; ok {
			text++
		}
	}
	switch {
	case code > 0 && text == 0:
		return model.ProjectTypeCode
	case text > 0 && code == 0:
		return model.ProjectTypeText
	default:
		return ""
	}
}
