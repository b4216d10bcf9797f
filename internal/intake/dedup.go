package intake

import (
	"fmt"
	"time"

	"intake-go/internal/model"
)

// DedupOutcome is the resolver's verdict for one candidate directory.
type DedupOutcome string

const (
	// OutcomeDuplicate: strict fingerprint matched an existing version.
	// Nothing is written; the upload points at the existing rows.
	OutcomeDuplicate DedupOutcome = "duplicate"

	// OutcomeNewVersion: the directory extends an existing project's
	// lineage with a new version.
	OutcomeNewVersion DedupOutcome = "new_version"

	// OutcomeNewProject: the directory starts a new lineage.
	OutcomeNewProject DedupOutcome = "new_project"

	// OutcomeAsk: similarity fell between the thresholds; the user
	// decides. No rows are written until the ask is resolved.
	OutcomeAsk DedupOutcome = "ask"

	// OutcomeSkipped: the user answered an ask by dropping the
	// directory from the upload.
	OutcomeSkipped DedupOutcome = "skipped"

	// OutcomeFailed: the directory could not be fingerprinted.
	OutcomeFailed DedupOutcome = "failed"
)

// Active reports whether the outcome keeps the project in the pipeline.
func (o DedupOutcome) Active() bool {
	return o == OutcomeNewVersion || o == OutcomeNewProject
}

// DedupDecision is a user's answer to an ask.
type DedupDecision string

const (
	DecisionSkip       DedupDecision = "skip"
	DecisionNewProject DedupDecision = "new_project"
	DecisionNewVersion DedupDecision = "new_version"
)

// Valid reports whether d is a known decision value.
func (d DedupDecision) Valid() bool {
	return d == DecisionSkip || d == DecisionNewProject || d == DecisionNewVersion
}

// Similarity thresholds. At or above the high threshold a directory is
// treated as a new version of the best-matching project; below the low
// threshold it becomes a new project; between the two the user is asked.
const (
	DefaultHighThreshold = 0.85
	DefaultLowThreshold  = 0.30
)

// candidateResult is everything one dedup evaluation produced: the
// mutated project state, an ask to record, rows to write, and a field
// sync for an existing project row.
type candidateResult struct {
	ask    *DedupAsk
	write  *RegistryWrite
	update *ProjectFieldUpdate
}

// evaluateCandidate runs the dedup decision procedure for one candidate
// directory and mutates ps with the verdict. Lookup order: unreadable
// files fail the directory closed; a strict fingerprint hit is a
// duplicate; a loose hit is rename-only evidence and short-circuits to
// a new version; otherwise content-hash similarity against the latest
// version of every other project picks between new_version, new_project,
// and ask. Every lookup excludes rows created by this upload, so twin
// directories inside one archive never dedupe against each other.
func (s *IntakeService) evaluateCandidate(userID, uploadID string, cand *CandidateProject, ps *ProjectState, now time.Time) (*candidateResult, error) {
	if len(cand.Unreadable) > 0 {
		ferr := &FingerprintError{Project: cand.Name, Unreadable: cand.Unreadable}
		ps.Outcome = OutcomeFailed
		ps.Failure = ferr.Error()
		return &candidateResult{}, nil
	}

	strictFP, err := StrictFingerprint(cand.Files)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %q: %w", cand.Name, err)
	}
	looseFP, err := LooseFingerprint(cand.Files)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %q: %w", cand.Name, err)
	}

	if v, err := s.db.FindVersionByStrictFingerprint(userID, strictFP, uploadID); err != nil {
		return nil, fmt.Errorf("strict fingerprint lookup for %q: %w", cand.Name, err)
	} else if v != nil {
		proj, err := s.db.FindProjectByKey(userID, v.ProjectKey)
		if err != nil {
			return nil, fmt.Errorf("loading project %s: %w", v.ProjectKey, err)
		}
		ps.Outcome = OutcomeDuplicate
		ps.ProjectKey = v.ProjectKey
		ps.VersionKey = v.Key
		s.adoptProject(ps, cand.Name, proj)
		return &candidateResult{}, nil
	}

	if v, err := s.db.FindVersionByLooseFingerprint(userID, looseFP, uploadID); err != nil {
		return nil, fmt.Errorf("loose fingerprint lookup for %q: %w", cand.Name, err)
	} else if v != nil {
		return s.newVersionResult(userID, uploadID, cand.Files, ps, v.ProjectKey, cand.Name, strictFP, looseFP, now)
	}

	best, bestSim, err := s.scanLatestVersions(userID, uploadID, cand.Files)
	if err != nil {
		return nil, fmt.Errorf("scanning versions for %q: %w", cand.Name, err)
	}

	switch {
	case best != nil && bestSim >= s.opts.HighThreshold:
		return s.newVersionResult(userID, uploadID, cand.Files, ps, best.ProjectKey, cand.Name, strictFP, looseFP, now)

	case best == nil || bestSim < s.opts.LowThreshold:
		return s.newProjectResult(userID, uploadID, cand.Files, ps, cand.Name, strictFP, looseFP, now)

	default:
		ask, err := s.buildAsk(userID, cand, best, bestSim, strictFP, looseFP)
		if err != nil {
			return nil, err
		}
		ps.Outcome = OutcomeAsk
		return &candidateResult{ask: ask}, nil
	}
}

// scanLatestVersions compares the candidate's content-hash set against
// the latest version of each of the user's projects and returns the
// best match. Versions created by the current upload are excluded.
func (s *IntakeService) scanLatestVersions(userID, uploadID string, files []FileRecord) (*model.ProjectVersion, float64, error) {
	latest, err := s.db.LatestVersionPerProject(userID, uploadID)
	if err != nil {
		return nil, 0, fmt.Errorf("listing latest versions: %w", err)
	}

	candHashes := HashSet(files)
	var best *model.ProjectVersion
	var bestSim float64
	for _, v := range latest {
		hashes, err := s.db.VersionFileHashes(v.Key)
		if err != nil {
			return nil, 0, fmt.Errorf("loading hashes of version %s: %w", v.Key, err)
		}
		sim := JaccardSimilarity(candHashes, StringSet(hashes))
		if best == nil || sim > bestSim {
			best, bestSim = v, sim
		}
	}
	return best, bestSim, nil
}

// newVersionResult records the candidate as a new version of an
// existing project and prepares the rows to insert.
func (s *IntakeService) newVersionResult(userID, uploadID string, files []FileRecord, ps *ProjectState, projectKey, name, strictFP, looseFP string, now time.Time) (*candidateResult, error) {
	proj, err := s.db.FindProjectByKey(userID, projectKey)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectKey, err)
	}

	ps.Outcome = OutcomeNewVersion
	ps.ProjectKey = projectKey
	s.adoptProject(ps, name, proj)

	version, versionFiles := s.buildVersion(projectKey, uploadID, files, strictFP, looseFP, now)
	ps.VersionKey = version.Key

	return &candidateResult{
		write:  &RegistryWrite{Version: version, Files: versionFiles},
		update: projectFieldSync(userID, ps, proj, now),
	}, nil
}

// newProjectResult records the candidate as a brand-new lineage.
func (s *IntakeService) newProjectResult(userID, uploadID string, files []FileRecord, ps *ProjectState, name, strictFP, looseFP string, now time.Time) (*candidateResult, error) {
	project := &model.Project{
		Key:            s.idgen.New(),
		UserID:         userID,
		DisplayName:    name,
		Classification: ps.Classification,
		Type:           ps.Type,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	version, versionFiles := s.buildVersion(project.Key, uploadID, files, strictFP, looseFP, now)

	ps.Outcome = OutcomeNewProject
	ps.ProjectKey = project.Key
	ps.VersionKey = version.Key

	return &candidateResult{
		write: &RegistryWrite{Project: project, Version: version, Files: versionFiles},
	}, nil
}

// buildVersion assembles a version row and its file rows.
func (s *IntakeService) buildVersion(projectKey, uploadID string, files []FileRecord, strictFP, looseFP string, now time.Time) (*model.ProjectVersion, []*model.VersionFile) {
	version := &model.ProjectVersion{
		Key:               s.idgen.New(),
		ProjectKey:        projectKey,
		UploadID:          uploadID,
		FingerprintStrict: strictFP,
		FingerprintLoose:  looseFP,
		FileCount:         int64(len(files)),
		CreatedAt:         now,
	}
	versionFiles := make([]*model.VersionFile, len(files))
	for i, f := range files {
		versionFiles[i] = &model.VersionFile{
			VersionKey:  version.Key,
			Relpath:     f.Relpath,
			ContentHash: f.Hash,
			SizeBytes:   f.Size,
		}
	}
	return version, versionFiles
}

// buildAsk caches the evidence for a between-thresholds match so
// resolution never recomputes fingerprints or similarity.
func (s *IntakeService) buildAsk(userID string, cand *CandidateProject, best *model.ProjectVersion, bestSim float64, strictFP, looseFP string) (*DedupAsk, error) {
	proj, err := s.db.FindProjectByKey(userID, best.ProjectKey)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", best.ProjectKey, err)
	}
	relpaths, err := s.db.VersionFileRelpaths(best.Key)
	if err != nil {
		return nil, fmt.Errorf("loading relpaths of version %s: %w", best.Key, err)
	}

	ask := &DedupAsk{
		Name:              cand.Name,
		FingerprintStrict: strictFP,
		FingerprintLoose:  looseFP,
		Files:             cand.Files,
		BestProjectKey:    best.ProjectKey,
		BestVersionKey:    best.Key,
		BestFileCount:     best.FileCount,
		Similarity:        bestSim,
		PathSimilarity:    JaccardSimilarity(RelpathSet(cand.Files), StringSet(relpaths)),
	}
	if proj != nil {
		ask.BestProjectName = proj.DisplayName
	}
	return ask, nil
}

// adoptProject inherits an existing project row's settled fields into
// the upload state. Row values win over layout guesses; the lineage's
// display name is surfaced as the resolved name when the uploaded
// directory was called something else.
func (s *IntakeService) adoptProject(ps *ProjectState, uploadedName string, proj *model.Project) {
	if proj == nil {
		return
	}
	if proj.Classification != "" {
		ps.Classification = proj.Classification
	}
	if proj.Type != "" {
		ps.Type = proj.Type
	}
	if proj.DisplayName != uploadedName {
		ps.ResolvedName = proj.DisplayName
	}
}

// projectFieldSync pushes layout-derived classification or type onto an
// existing project row that has neither. Settled row values are never
// overwritten.
func projectFieldSync(userID string, ps *ProjectState, proj *model.Project, now time.Time) *ProjectFieldUpdate {
	if proj == nil {
		return nil
	}
	update := &ProjectFieldUpdate{UserID: userID, ProjectKey: proj.Key, UpdatedAt: now}
	changed := false
	if proj.Classification == "" && ps.Classification != "" {
		c := ps.Classification
		update.Classification = &c
		changed = true
	}
	if proj.Type == "" && ps.Type != "" {
		t := ps.Type
		update.Type = &t
		changed = true
	}
	if !changed {
		return nil
	}
	return update
}
