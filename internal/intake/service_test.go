package intake_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"intake-go/internal/archive"
	"intake-go/internal/intake"
	"intake-go/internal/model"
	"intake-go/internal/testutil"
)

// testStack bundles a service with the real in-memory infrastructure
// behind it so tests can assert on both sides of every operation.
type testStack struct {
	svc     *intake.IntakeService
	db      intake.Database
	vault   intake.Vault
	staging intake.StagingArea
	clock   *testutil.StubClock
	user    *model.User
}

func newStackWith(t *testing.T, parser intake.ArchiveParser, staging intake.StagingArea, opts intake.Options) *testStack {
	t.Helper()

	db := testutil.NewTestDatabase(t)
	vault := testutil.NewTestVault()
	clock := testutil.FixedClock()
	svc := intake.NewIntakeService(db, vault, staging, parser,
		intake.NewNopLogger(), clock, testutil.NewStubIDGenerator(), opts)

	return &testStack{
		svc:     svc,
		db:      db,
		vault:   vault,
		staging: staging,
		clock:   clock,
		user:    testutil.CreateTestUser(t, db, "user-1", "jane@example.com"),
	}
}

func newStack(t *testing.T) *testStack {
	t.Helper()
	return newStackWith(t, archive.NewZipParser(nil, 0), testutil.NewTestStagingArea(), intake.Options{})
}

// mustStart ingests a zip built from the given file map and fails the
// test on any error.
func mustStart(t *testing.T, st *testStack, zipName string, files map[string]string) (*model.Upload, *intake.RunSummary) {
	t.Helper()
	data := testutil.BuildZipMap(t, files)
	upload, summary, err := st.svc.StartUpload(st.user.ID, zipName, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("StartUpload(%s) error = %v", zipName, err)
	}
	return upload, summary
}

// mustState decodes an upload's state document.
func mustState(t *testing.T, upload *model.Upload) *intake.UploadState {
	t.Helper()
	state, err := intake.DecodeState(upload.State)
	if err != nil {
		t.Fatalf("decoding state of upload %s: %v", upload.ID, err)
	}
	return state
}

// eventTrail flattens an upload's events into "from>to" strings.
func eventTrail(t *testing.T, st *testStack, uploadID string) []string {
	t.Helper()
	events, err := st.svc.UploadEvents(st.user.ID, uploadID)
	if err != nil {
		t.Fatalf("UploadEvents() error = %v", err)
	}
	trail := make([]string, len(events))
	for i, e := range events {
		trail[i] = string(e.FromStatus) + ">" + string(e.ToStatus)
	}
	return trail
}

func wantTrail(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event trail = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event trail = %v, want %v", got, want)
		}
	}
}

func TestIntakeService_StartUpload(t *testing.T) {
	t.Run("ingests a fresh archive", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		data := testutil.BuildZipMap(t, map[string]string{
			"proj-a/main.go":  "package main",
			"proj-b/notes.md": "# notes",
		})
		upload, summary, err := st.svc.StartUpload(st.user.ID, "work.zip", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("StartUpload() error = %v", err)
		}

		if upload.Status != model.StatusNeedsClassification {
			t.Errorf("Status = %s, want needs_classification", upload.Status)
		}
		if upload.ZipKey != testutil.SHA256Hex(data) {
			t.Errorf("ZipKey = %s, want the archive checksum", upload.ZipKey)
		}
		if summary.NewProjects != 2 || summary.Duplicates != 0 || summary.Asks != 0 {
			t.Errorf("summary = %+v, want 2 new projects", summary)
		}

		state := mustState(t, upload)
		if state.Layout == nil || len(state.Layout.Names) != 2 {
			t.Fatalf("layout = %+v, want 2 project names", state.Layout)
		}
		for _, name := range []string{"proj-a", "proj-b"} {
			ps := state.Project(name)
			if ps == nil || ps.Outcome != intake.OutcomeNewProject {
				t.Fatalf("project %s = %+v, want new_project", name, ps)
			}
			if ps.ProjectKey == "" || ps.VersionKey == "" {
				t.Errorf("project %s has no registry keys", name)
			}
			if ps.FileCount != 1 {
				t.Errorf("project %s FileCount = %d, want 1", name, ps.FileCount)
			}
		}

		// Auto-typing from extensions: all-code and all-text directories.
		if state.Project("proj-a").Type != model.ProjectTypeCode {
			t.Errorf("proj-a type = %q, want code", state.Project("proj-a").Type)
		}
		if state.Project("proj-b").Type != model.ProjectTypeText {
			t.Errorf("proj-b type = %q, want text", state.Project("proj-b").Type)
		}

		// The blob landed in the vault and the staging area is drained.
		var stored bytes.Buffer
		if err := st.vault.GetArchive(upload.ZipKey, &stored); err != nil {
			t.Fatalf("vault GetArchive() error = %v", err)
		}
		if !bytes.Equal(stored.Bytes(), data) {
			t.Error("stored archive differs from the uploaded bytes")
		}
		if size, _ := st.staging.Size(); size != 0 {
			t.Errorf("staging size after ingest = %d, want 0", size)
		}

		wantTrail(t, eventTrail(t, st, upload.ID), []string{
			"started>parsed",
			"parsed>needs_classification",
		})
	})

	t.Run("registry rows land with the dedup pass", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		upload, _ := mustStart(t, st, "work.zip", map[string]string{
			"proj/a.txt": "alpha",
			"proj/b.txt": "beta",
		})

		state := mustState(t, upload)
		ps := state.Project("proj")

		proj, err := st.db.FindProjectByKey(st.user.ID, ps.ProjectKey)
		if err != nil {
			t.Fatalf("FindProjectByKey() error = %v", err)
		}
		if proj == nil || proj.DisplayName != "proj" {
			t.Fatalf("project row = %+v, want display name proj", proj)
		}

		relpaths, err := st.db.VersionFileRelpaths(ps.VersionKey)
		if err != nil {
			t.Fatalf("VersionFileRelpaths() error = %v", err)
		}
		if len(relpaths) != 2 || relpaths[0] != "a.txt" || relpaths[1] != "b.txt" {
			t.Errorf("relpaths = %v, want [a.txt b.txt]", relpaths)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		data := testutil.BuildZipMap(t, map[string]string{"proj/a.txt": "x"})
		upload, _, err := st.svc.StartUpload("ghost", "work.zip", bytes.NewReader(data))
		if !errors.Is(err, intake.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		if upload != nil {
			t.Error("no upload row should exist for an unknown user")
		}
	})

	t.Run("malformed archive fails the upload but keeps the row", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		upload, _, err := st.svc.StartUpload(st.user.ID, "broken.zip", bytes.NewReader([]byte("this is not a zip")))
		if !errors.Is(err, intake.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if upload == nil {
			t.Fatal("the failed upload must be returned for inspection")
		}
		if upload.Status != model.StatusFailed {
			t.Errorf("Status = %s, want failed", upload.Status)
		}
		state := mustState(t, upload)
		if state.Failure == "" {
			t.Error("failure reason not recorded in the state document")
		}

		wantTrail(t, eventTrail(t, st, upload.ID), []string{"started>failed"})
	})

	t.Run("archive without project directories fails", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		data := testutil.BuildZipMap(t, map[string]string{"loose.txt": "hello"})
		upload, _, err := st.svc.StartUpload(st.user.ID, "loose.zip", bytes.NewReader(data))
		if !errors.Is(err, intake.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if upload.Status != model.StatusFailed {
			t.Errorf("Status = %s, want failed", upload.Status)
		}
	})

	t.Run("archive over staging capacity is rejected up front", func(t *testing.T) {
		t.Parallel()
		st := newStackWith(t, archive.NewZipParser(nil, 0), testutil.NewTestStagingAreaWithSize(16), intake.Options{})

		data := testutil.BuildZipMap(t, map[string]string{"proj/big.txt": "far too much content for the staging area"})
		upload, _, err := st.svc.StartUpload(st.user.ID, "big.zip", bytes.NewReader(data))
		if !errors.Is(err, intake.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if upload != nil {
			t.Error("no upload row should exist when staging rejects the archive")
		}
	})

	t.Run("unreadable entries fail their project closed", func(t *testing.T) {
		t.Parallel()
		parser := &testutil.StubParser{Entries: []intake.ArchiveEntry{
			{Path: "proj/ok.txt", Hash: "aaa", Size: 3},
			{Path: "proj/corrupt.bin", Err: "reading entry: checksum error"},
		}}
		st := newStackWith(t, parser, testutil.NewTestStagingArea(), intake.Options{})

		upload, summary := mustStart(t, st, "partial.zip", map[string]string{"anything": "x"})

		if summary.Failed != 1 {
			t.Errorf("summary.Failed = %d, want 1", summary.Failed)
		}
		// The only candidate failed, so nothing is left to process.
		if upload.Status != model.StatusDone {
			t.Errorf("Status = %s, want done", upload.Status)
		}

		ps := mustState(t, upload).Project("proj")
		if ps.Outcome != intake.OutcomeFailed {
			t.Errorf("Outcome = %s, want failed", ps.Outcome)
		}
		if ps.Failure == "" {
			t.Error("project failure reason not recorded")
		}

		// Fail closed: no registry rows for a half-read directory.
		versions, err := st.db.LatestVersionPerProject(st.user.ID, "")
		if err != nil {
			t.Fatalf("LatestVersionPerProject() error = %v", err)
		}
		if len(versions) != 0 {
			t.Errorf("registry has %d versions, want 0", len(versions))
		}
	})

	t.Run("timestamps come from the clock", func(t *testing.T) {
		t.Parallel()
		st := newStack(t)

		upload, _ := mustStart(t, st, "work.zip", map[string]string{"proj/a.txt": "x"})
		if !upload.CreatedAt.Equal(st.clock.Now()) {
			t.Errorf("CreatedAt = %v, want %v", upload.CreatedAt, st.clock.Now())
		}

		st.clock.Advance(time.Hour)
		second, _ := mustStart(t, st, "later.zip", map[string]string{"other/b.txt": "y"})
		if !second.CreatedAt.After(upload.CreatedAt) {
			t.Error("advancing the clock must move upload timestamps")
		}
	})
}
