package intake

import (
	"intake-go/internal/model"
)

// statusRank orders the pipeline stages. Failed is outside the ladder:
// it is reachable from any non-terminal status but never part of the
// forward walk.
var statusRank = map[model.UploadStatus]int{
	model.StatusStarted:             0,
	model.StatusParsed:              1,
	model.StatusNeedsDedup:          2,
	model.StatusNeedsClassification: 3,
	model.StatusNeedsProjectTypes:   4,
	model.StatusNeedsFileRoles:      5,
	model.StatusNeedsSummaries:      6,
	model.StatusAnalyzing:           7,
	model.StatusDone:                8,
}

// StatusRank returns the stage's position on the forward ladder, or -1
// for failed.
func StatusRank(s model.UploadStatus) int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// DeriveStatus computes an upload's status from its state document: the
// furthest stage whose prerequisites the document satisfies. Endpoints
// never choose a status; they merge their keys into the document and
// store whatever this function says.
//
// The walk mirrors the pipeline: a recorded failure pins the upload to
// failed; no layout means parsing has not finished; an undecided
// candidate means the dedup pass is still running; unresolved asks need
// the user; then each remaining stage is needed until every active
// project has its classification, type, file roles, summary, and
// analysis results.
func DeriveStatus(s *UploadState) model.UploadStatus {
	if s.Failure != "" {
		return model.StatusFailed
	}
	if s.Layout == nil {
		return model.StatusStarted
	}
	for _, p := range s.Projects {
		if p.Outcome == "" {
			return model.StatusParsed
		}
	}
	if len(s.Asks) > 0 {
		return model.StatusNeedsDedup
	}

	active := s.ActiveProjects()
	if len(active) == 0 {
		// Nothing survived dedup: all duplicates, skips, or failures.
		return model.StatusDone
	}

	for _, p := range active {
		if p.Classification == "" {
			return model.StatusNeedsClassification
		}
	}
	for _, p := range active {
		if p.Type == "" {
			return model.StatusNeedsProjectTypes
		}
	}
	for _, p := range active {
		if p.needsFileRoles() {
			return model.StatusNeedsFileRoles
		}
	}
	for _, p := range active {
		if p.needsSummary() {
			return model.StatusNeedsSummaries
		}
	}
	for _, p := range active {
		if len(p.Analysis) == 0 {
			return model.StatusAnalyzing
		}
	}
	return model.StatusDone
}

// needsFileRoles reports whether the project still owes a main-file
// selection. Only collaborative text projects carry file roles.
func (p *ProjectState) needsFileRoles() bool {
	return p.Classification == model.ClassificationCollaborative &&
		p.Type == model.ProjectTypeText &&
		p.MainFile == ""
}

// needsSummary reports whether the project still owes a contribution
// summary. Individual projects have nothing to summarize.
func (p *ProjectState) needsSummary() bool {
	return p.Classification == model.ClassificationCollaborative && p.Summary == ""
}
