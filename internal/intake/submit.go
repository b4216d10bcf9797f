package intake

import (
	"maps"
	"slices"
	"strings"

	"intake-go/internal/model"
)

// FileRoleSelection names a collaborative text project's main file and
// the sections the uploader contributed.
type FileRoleSelection struct {
	MainFile   string   `json:"main_file"`
	SectionIDs []string `json:"contributed_section_ids,omitempty"`
}

// SubmitClassifications assigns individual/collaborative to projects the
// layout could not classify. Partial submissions are fine; the upload
// stays at needs_classification until every active project is covered.
// Submissions never overwrite a recorded classification.
func (s *IntakeService) SubmitClassifications(userID, uploadID string, assignments map[string]model.Classification) (*model.Upload, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusNeedsClassification)
	if err != nil {
		return nil, err
	}

	var updates []ProjectFieldUpdate
	now := s.clock.Now()
	for _, name := range sortedKeys(assignments) {
		ps, err := activeProject(state, uploadID, name)
		if err != nil {
			return nil, err
		}
		if ps.Classification != "" {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "is already classified"}
		}
		value := assignments[name]
		if !value.Valid() {
			return nil, inputErrf("upload %s: invalid classification %q for project %q", uploadID, value, name)
		}
		ps.Classification = value
		c := value
		updates = append(updates, ProjectFieldUpdate{
			UserID: userID, ProjectKey: ps.ProjectKey, Classification: &c, UpdatedAt: now,
		})
	}

	if err := s.applyState(upload, state, nil, updates); err != nil {
		return nil, err
	}
	return upload, nil
}

// SubmitProjectTypes assigns code/text to projects whose content mix
// defeated auto-typing.
func (s *IntakeService) SubmitProjectTypes(userID, uploadID string, types map[string]model.ProjectType) (*model.Upload, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusNeedsProjectTypes)
	if err != nil {
		return nil, err
	}

	var updates []ProjectFieldUpdate
	now := s.clock.Now()
	for _, name := range sortedKeys(types) {
		ps, err := activeProject(state, uploadID, name)
		if err != nil {
			return nil, err
		}
		if ps.Type != "" {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "already has a project type"}
		}
		value := types[name]
		if !value.Valid() {
			return nil, inputErrf("upload %s: invalid project type %q for project %q", uploadID, value, name)
		}
		ps.Type = value
		t := value
		updates = append(updates, ProjectFieldUpdate{
			UserID: userID, ProjectKey: ps.ProjectKey, Type: &t, UpdatedAt: now,
		})
	}

	if err := s.applyState(upload, state, nil, updates); err != nil {
		return nil, err
	}
	return upload, nil
}

// SubmitFileRoles records the main file and contributed sections for
// collaborative text projects. The main file must be one of the
// relpaths recorded for the project's version.
func (s *IntakeService) SubmitFileRoles(userID, uploadID string, roles map[string]FileRoleSelection) (*model.Upload, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusNeedsFileRoles)
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(roles) {
		ps, err := activeProject(state, uploadID, name)
		if err != nil {
			return nil, err
		}
		if ps.Classification != model.ClassificationCollaborative || ps.Type != model.ProjectTypeText {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "does not take file roles"}
		}
		if ps.MainFile != "" {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "already has a main file"}
		}
		role := roles[name]
		if role.MainFile == "" {
			return nil, inputErrf("upload %s: empty main file for project %q", uploadID, name)
		}
		relpaths, err := s.db.VersionFileRelpaths(ps.VersionKey)
		if err != nil {
			return nil, err
		}
		if _, ok := StringSet(relpaths)[role.MainFile]; !ok {
			return nil, inputErrf("upload %s: main file %q is not a file of project %q", uploadID, role.MainFile, name)
		}
		ps.MainFile = role.MainFile
		ps.SectionIDs = role.SectionIDs
	}

	if err := s.applyState(upload, state, nil, nil); err != nil {
		return nil, err
	}
	return upload, nil
}

// SubmitSummaries records contribution summaries for collaborative
// projects.
func (s *IntakeService) SubmitSummaries(userID, uploadID string, summaries map[string]string) (*model.Upload, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusNeedsSummaries)
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(summaries) {
		ps, err := activeProject(state, uploadID, name)
		if err != nil {
			return nil, err
		}
		if ps.Classification != model.ClassificationCollaborative {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "does not take a contribution summary"}
		}
		if ps.Summary != "" {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "already has a summary"}
		}
		text := strings.TrimSpace(summaries[name])
		if text == "" {
			return nil, inputErrf("upload %s: empty summary for project %q", uploadID, name)
		}
		ps.Summary = text
	}

	if err := s.applyState(upload, state, nil, nil); err != nil {
		return nil, err
	}
	return upload, nil
}

// SubmitAnalysis records per-project results reported back by the
// analysis collaborators. Once every active project has results the
// upload reaches done.
func (s *IntakeService) SubmitAnalysis(userID, uploadID string, results map[string]map[string]string) (*model.Upload, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusAnalyzing)
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(results) {
		ps, err := activeProject(state, uploadID, name)
		if err != nil {
			return nil, err
		}
		if len(ps.Analysis) > 0 {
			return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "is already analyzed"}
		}
		if len(results[name]) == 0 {
			return nil, inputErrf("upload %s: empty analysis results for project %q", uploadID, name)
		}
		ps.Analysis = results[name]
	}

	if err := s.applyState(upload, state, nil, nil); err != nil {
		return nil, err
	}
	return upload, nil
}

// activeProject resolves a submitted name to a project still in the
// pipeline.
func activeProject(state *UploadState, uploadID, name string) (*ProjectState, error) {
	ps := state.Project(name)
	if ps == nil {
		return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "is not part of this upload"}
	}
	if !ps.Outcome.Active() {
		return nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "was settled by dedup and takes no submissions"}
	}
	return ps, nil
}

// sortedKeys gives map iteration a stable order so the first validation
// failure is deterministic.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
