package intake

import (
	"fmt"
	"sort"

	"intake-go/internal/model"
)

// ResolveDedup answers every pending ask of an upload in one atomic
// call. The decisions map must cover exactly the pending ask set: an
// unknown name, a missing name, or an invalid decision rejects the
// whole call and nothing is applied. Row creation for new_project and
// new_version decisions reuses the fingerprints and file lists cached
// when the asks were raised.
func (s *IntakeService) ResolveDedup(userID, uploadID string, decisions map[string]DedupDecision) (*model.Upload, *RunSummary, error) {
	upload, state, err := s.loadForStage(userID, uploadID, model.StatusNeedsDedup)
	if err != nil {
		return nil, nil, err
	}

	names := state.PendingAsks()
	for _, name := range names {
		if _, ok := decisions[name]; !ok {
			return nil, nil, inputErrf("upload %s: no decision for pending ask %q", uploadID, name)
		}
	}
	submitted := make([]string, 0, len(decisions))
	for name := range decisions {
		submitted = append(submitted, name)
	}
	sort.Strings(submitted)
	for _, name := range submitted {
		if state.Asks[name] == nil {
			return nil, nil, &UnknownNameError{UploadID: uploadID, Name: name, Reason: "has no pending dedup ask"}
		}
		if d := decisions[name]; !d.Valid() {
			return nil, nil, inputErrf("upload %s: invalid decision %q for project %q", uploadID, d, name)
		}
	}

	summary := &RunSummary{UploadID: uploadID}
	var writes []RegistryWrite
	var updates []ProjectFieldUpdate
	now := s.clock.Now()

	for _, name := range names {
		ask := state.Asks[name]
		ps := state.Project(name)

		var res *candidateResult
		switch decisions[name] {
		case DecisionSkip:
			ps.Outcome = OutcomeSkipped
			res = &candidateResult{}
		case DecisionNewProject:
			res, err = s.newProjectResult(userID, uploadID, ask.Files, ps, name, ask.FingerprintStrict, ask.FingerprintLoose, now)
		case DecisionNewVersion:
			res, err = s.newVersionResult(userID, uploadID, ask.Files, ps, ask.BestProjectKey, name, ask.FingerprintStrict, ask.FingerprintLoose, now)
		}
		if err != nil {
			return nil, nil, err
		}
		if res.write != nil {
			writes = append(writes, *res.write)
		}
		if res.update != nil {
			updates = append(updates, *res.update)
		}
		delete(state.Asks, name)
		summary.record(name, ps.Outcome)
		s.logger.Info("ask resolved",
			"upload_id", uploadID, "project", name, "decision", decisions[name], "outcome", ps.Outcome)
	}

	if err := s.applyState(upload, state, writes, updates); err != nil {
		return nil, nil, err
	}
	return upload, summary, nil
}

// loadForStage fetches an upload, verifies it sits at the status the
// operation requires, and decodes its state document.
func (s *IntakeService) loadForStage(userID, uploadID string, want model.UploadStatus) (*model.Upload, *UploadState, error) {
	upload, err := s.db.FindUploadByID(userID, uploadID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading upload: %w", err)
	}
	if upload == nil {
		return nil, nil, notFoundErrf("upload %s", uploadID)
	}
	if upload.Status != want {
		return nil, nil, &StatusError{UploadID: uploadID, Status: upload.Status, Wanted: want}
	}
	state, err := DecodeState(upload.State)
	if err != nil {
		return nil, nil, err
	}
	return upload, state, nil
}
