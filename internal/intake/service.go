package intake

import (
	"fmt"
	"io"
	"strings"

	"intake-go/internal/model"
)

// Options tunes the dedup thresholds and the extension lists that drive
// project auto-typing. Zero values fall back to the package defaults.
type Options struct {
	HighThreshold  float64
	LowThreshold   float64
	CodeExtensions []string
	TextExtensions []string
}

// IntakeService is the orchestration layer that walks an uploaded
// archive through the pipeline: staging, blob storage, parsing, layout
// analysis, dedup resolution, and the submission endpoints that carry an
// upload to done.
type IntakeService struct {
	db       Database
	vault    Vault
	staging  StagingArea
	parser   ArchiveParser
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	opts     Options
	codeExts map[string]struct{}
	textExts map[string]struct{}
}

// NewIntakeService creates a new IntakeService with the provided
// dependencies.
func NewIntakeService(db Database, vault Vault, staging StagingArea, parser ArchiveParser, logger Logger, clock Clock, idgen IDGenerator, opts Options) *IntakeService {
	if opts.HighThreshold == 0 {
		opts.HighThreshold = DefaultHighThreshold
	}
	if opts.LowThreshold == 0 {
		opts.LowThreshold = DefaultLowThreshold
	}
	if len(opts.CodeExtensions) == 0 {
		opts.CodeExtensions = DefaultCodeExtensions
	}
	if len(opts.TextExtensions) == 0 {
		opts.TextExtensions = DefaultTextExtensions
	}
	return &IntakeService{
		db:       db,
		vault:    vault,
		staging:  staging,
		parser:   parser,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		opts:     opts,
		codeExts: extensionSet(opts.CodeExtensions),
		textExts: extensionSet(opts.TextExtensions),
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// StartUpload ingests one archive for the user: the bytes are staged,
// stored durably, parsed, layout-analyzed, and run through the dedup
// pass. The returned upload carries the derived status and state
// document; the summary reports the dedup verdicts. When the upload row
// was created but a later step failed, the failed upload is returned
// alongside the error so callers can surface its ID.
func (s *IntakeService) StartUpload(userID, zipName string, r io.Reader) (*model.Upload, *RunSummary, error) {
	user, err := s.db.FindUserByID(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, nil, notFoundErrf("user %s", userID)
	}

	staged, err := s.staging.Stage(r)
	if err != nil {
		return nil, nil, fmt.Errorf("staging archive: %w", err)
	}
	defer func() {
		if err := s.staging.Remove(staged.Checksum); err != nil {
			s.logger.Warn("removing staged archive", "checksum", staged.Checksum, "error", err)
		}
	}()

	now := s.clock.Now()
	state := &UploadState{}
	stateBytes, err := state.Encode()
	if err != nil {
		return nil, nil, err
	}
	upload := &model.Upload{
		ID:        s.idgen.New(),
		UserID:    userID,
		ZipName:   zipName,
		ZipKey:    staged.Checksum,
		Status:    model.StatusStarted,
		State:     stateBytes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateUpload(upload); err != nil {
		return nil, nil, fmt.Errorf("creating upload: %w", err)
	}
	s.logger.Info("upload started",
		"upload_id", upload.ID, "user_id", userID,
		"zip_name", zipName, "checksum", staged.Checksum, "size", staged.Size)

	if err := s.storeArchive(staged.Checksum); err != nil {
		return s.failStartedUpload(upload, state, fmt.Sprintf("storing archive: %v", err), err)
	}

	entries, err := s.parseArchive(staged.Checksum)
	if err != nil {
		reason := fmt.Sprintf("parsing archive: %v", err)
		return s.failStartedUpload(upload, state, reason, inputErrf("%s", reason))
	}

	layout := AnalyzeLayout(entries, s.codeExts, s.textExts)
	if len(layout.Projects) == 0 {
		reason := "archive contains no project directories"
		if len(layout.StrayFiles) > 0 {
			reason = fmt.Sprintf("%s (%d loose files)", reason, len(layout.StrayFiles))
		}
		return s.failStartedUpload(upload, state, reason, inputErrf("%s", reason))
	}

	if err := s.recordLayout(upload, state, layout); err != nil {
		return upload, nil, err
	}

	summary, err := s.runDedupPass(upload, state, layout)
	if err != nil {
		return upload, nil, err
	}

	s.logger.Info("upload ingested",
		"upload_id", upload.ID, "status", upload.Status,
		"projects", len(layout.Projects), "asks", summary.Asks)
	return upload, summary, nil
}

// storeArchive copies the staged blob into the vault.
func (s *IntakeService) storeArchive(checksum string) error {
	rc, _, err := s.staging.Open(checksum)
	if err != nil {
		return fmt.Errorf("opening staged archive: %w", err)
	}
	defer rc.Close()

	if err := s.vault.PutArchive(checksum, rc); err != nil {
		return fmt.Errorf("storing archive %s: %w", checksum, err)
	}
	return nil
}

// parseArchive expands the staged blob into its file entries.
func (s *IntakeService) parseArchive(checksum string) ([]ArchiveEntry, error) {
	rc, size, err := s.staging.Open(checksum)
	if err != nil {
		return nil, fmt.Errorf("opening staged archive: %w", err)
	}
	defer rc.Close()

	entries, err := s.parser.Parse(rc, size)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// recordLayout advances started → parsed: the layout and one stub per
// candidate project enter the state document. Stubs carry the counts
// and the layout's classification and type guesses; outcomes stay empty
// until the dedup pass runs.
func (s *IntakeService) recordLayout(upload *model.Upload, state *UploadState, layout *Layout) error {
	names := make([]string, len(layout.Projects))
	for i, cand := range layout.Projects {
		names[i] = cand.Name
		state.SetProject(&ProjectState{
			Name:           cand.Name,
			FileCount:      int64(len(cand.Files)),
			Unreadable:     cand.Unreadable,
			Classification: cand.AutoClass,
			Type:           cand.AutoType,
		})
	}
	state.Layout = &LayoutState{
		RootFolder: layout.RootFolder,
		StrayFiles: layout.StrayFiles,
		Names:      names,
	}
	return s.applyState(upload, state, nil, nil)
}

// runDedupPass evaluates every candidate and lands the verdicts, the
// registry rows they produce, and any asks in one atomic patch.
func (s *IntakeService) runDedupPass(upload *model.Upload, state *UploadState, layout *Layout) (*RunSummary, error) {
	summary := &RunSummary{UploadID: upload.ID}
	var writes []RegistryWrite
	var updates []ProjectFieldUpdate

	now := s.clock.Now()
	for _, cand := range layout.Projects {
		ps := state.Project(cand.Name)
		res, err := s.evaluateCandidate(upload.UserID, upload.ID, cand, ps, now)
		if err != nil {
			return nil, err
		}
		if res.ask != nil {
			if state.Asks == nil {
				state.Asks = make(map[string]*DedupAsk)
			}
			state.Asks[cand.Name] = res.ask
		}
		if res.write != nil {
			writes = append(writes, *res.write)
		}
		if res.update != nil {
			updates = append(updates, *res.update)
		}
		summary.record(cand.Name, ps.Outcome)
		s.logger.Debug("dedup verdict",
			"upload_id", upload.ID, "project", cand.Name, "outcome", ps.Outcome)
	}

	if err := s.applyState(upload, state, writes, updates); err != nil {
		return nil, err
	}
	return summary, nil
}

// applyState derives the next status from the state document and writes
// both through the store's compare-and-swap patch, then mirrors the
// result onto the in-memory upload.
func (s *IntakeService) applyState(upload *model.Upload, state *UploadState, writes []RegistryWrite, updates []ProjectFieldUpdate) error {
	stateBytes, err := state.Encode()
	if err != nil {
		return err
	}
	next := DeriveStatus(state)
	now := s.clock.Now()

	patch := &UploadPatch{
		UploadID: upload.ID,
		Expected: upload.Status,
		Next:     next,
		State:    stateBytes,
		At:       now,
		Writes:   writes,
		Updates:  updates,
	}
	if err := s.db.ApplyUploadPatch(patch); err != nil {
		return fmt.Errorf("advancing upload %s: %w", upload.ID, err)
	}

	upload.Status = next
	upload.State = stateBytes
	upload.UpdatedAt = now
	return nil
}

// failStartedUpload pins a just-created upload to failed and hands the
// caller both the upload and the causing error.
func (s *IntakeService) failStartedUpload(upload *model.Upload, state *UploadState, reason string, cause error) (*model.Upload, *RunSummary, error) {
	state.Failure = reason
	if err := s.applyState(upload, state, nil, nil); err != nil {
		s.logger.Error("marking upload failed", "upload_id", upload.ID, "error", err)
	}
	s.logger.Warn("upload failed", "upload_id", upload.ID, "reason", reason)
	return upload, nil, cause
}
