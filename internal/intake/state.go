package intake

import (
	"encoding/json"
	"fmt"
	"sort"

	"intake-go/internal/model"
)

// UploadState is the accumulated state document of an upload. It is
// stored as JSON on the upload row and only ever grows: each pipeline
// step merges its own keys and leaves everything else untouched. The
// upload's status is derived from this document, never stored
// independently of it.
type UploadState struct {
	Layout   *LayoutState             `json:"layout,omitempty"`
	Projects map[string]*ProjectState `json:"projects,omitempty"`
	Asks     map[string]*DedupAsk     `json:"dedup_asks,omitempty"`
	Failure  string                   `json:"failure,omitempty"`
}

// LayoutState is the recorded result of layout analysis.
type LayoutState struct {
	RootFolder string   `json:"root_folder,omitempty"`
	StrayFiles []string `json:"stray_files,omitempty"`
	Names      []string `json:"project_names"`
}

// ProjectState tracks one candidate directory through the pipeline.
// Fields fill in stage by stage; a field once set is never rewritten.
type ProjectState struct {
	Name    string       `json:"name"`
	Outcome DedupOutcome `json:"outcome,omitempty"`

	// Registry linkage, set when the outcome writes rows.
	ProjectKey string `json:"project_key,omitempty"`
	VersionKey string `json:"version_key,omitempty"`

	// ResolvedName is the lineage's display name when it differs from
	// the uploaded directory name. The project row keeps its name.
	ResolvedName string `json:"resolved_name,omitempty"`

	Classification model.Classification `json:"classification,omitempty"`
	Type           model.ProjectType    `json:"project_type,omitempty"`

	// Collaborative text projects only.
	MainFile   string   `json:"main_file,omitempty"`
	SectionIDs []string `json:"contributed_section_ids,omitempty"`

	// Collaborative projects only.
	Summary string `json:"summary,omitempty"`

	// Analysis results reported back per project, opaque key/value.
	Analysis map[string]string `json:"analysis,omitempty"`

	FileCount  int64    `json:"file_count"`
	Unreadable []string `json:"unreadable,omitempty"`
	Failure    string   `json:"failure,omitempty"`
}

// DedupAsk is the cached evidence for a directory whose similarity fell
// between the thresholds. Fingerprints and the file list are computed
// once, when the ask is raised, so re-reading and resolving the ask
// never re-derives them.
type DedupAsk struct {
	Name              string       `json:"name"`
	FingerprintStrict string       `json:"fingerprint_strict"`
	FingerprintLoose  string       `json:"fingerprint_loose"`
	Files             []FileRecord `json:"files"`

	BestProjectKey  string  `json:"best_project_key"`
	BestProjectName string  `json:"best_project_name"`
	BestVersionKey  string  `json:"best_version_key"`
	BestFileCount   int64   `json:"best_file_count"`
	Similarity      float64 `json:"similarity"`
	PathSimilarity  float64 `json:"path_similarity"`
}

// DecodeState parses a stored state document. A nil or empty blob
// decodes to the zero state.
func DecodeState(b []byte) (*UploadState, error) {
	state := &UploadState{}
	if len(b) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(b, state); err != nil {
		return nil, fmt.Errorf("decoding upload state: %w", err)
	}
	return state, nil
}

// Encode serializes the state document for storage.
func (s *UploadState) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding upload state: %w", err)
	}
	return b, nil
}

// Project returns the named project's state, or nil.
func (s *UploadState) Project(name string) *ProjectState {
	if s.Projects == nil {
		return nil
	}
	return s.Projects[name]
}

// SetProject records a project's state, creating the map on first use.
func (s *UploadState) SetProject(p *ProjectState) {
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectState)
	}
	s.Projects[p.Name] = p
}

// ActiveProjects returns, sorted by name, the projects whose outcome
// keeps them in the pipeline. Duplicates, skips, and failures are
// settled the moment their outcome is recorded.
func (s *UploadState) ActiveProjects() []*ProjectState {
	var active []*ProjectState
	for _, p := range s.Projects {
		if p.Outcome.Active() {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active
}

// PendingAsks returns the names of unresolved asks, sorted.
func (s *UploadState) PendingAsks() []string {
	names := make([]string, 0, len(s.Asks))
	for name := range s.Asks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
