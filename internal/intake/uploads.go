package intake

import (
	"fmt"
	"io"

	"intake-go/internal/model"
)

// GetUpload returns an upload with its current status and state
// document. Pure read; nothing advances.
func (s *IntakeService) GetUpload(userID, uploadID string) (*model.Upload, error) {
	upload, err := s.db.FindUploadByID(userID, uploadID)
	if err != nil {
		return nil, fmt.Errorf("loading upload: %w", err)
	}
	if upload == nil {
		return nil, notFoundErrf("upload %s", uploadID)
	}
	return upload, nil
}

// ListUploads returns the user's uploads, newest first. A limit of 0
// or less returns them all.
func (s *IntakeService) ListUploads(userID string, limit int) ([]*model.Upload, error) {
	uploads, err := s.db.ListUploadsByUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	return uploads, nil
}

// UploadEvents returns an upload's status transition trail, oldest
// first.
func (s *IntakeService) UploadEvents(userID, uploadID string) ([]*model.UploadEvent, error) {
	if _, err := s.GetUpload(userID, uploadID); err != nil {
		return nil, err
	}
	events, err := s.db.ListUploadEvents(uploadID)
	if err != nil {
		return nil, fmt.Errorf("listing upload events: %w", err)
	}
	return events, nil
}

// FailUpload pins a non-terminal upload to failed with the given
// reason. Failing an already-failed upload is a no-op; a done upload
// cannot be failed.
func (s *IntakeService) FailUpload(userID, uploadID, reason string) (*model.Upload, error) {
	upload, err := s.GetUpload(userID, uploadID)
	if err != nil {
		return nil, err
	}
	if upload.Status == model.StatusFailed {
		return upload, nil
	}
	if upload.Status == model.StatusDone {
		return nil, &StatusError{UploadID: uploadID, Status: upload.Status}
	}

	state, err := DecodeState(upload.State)
	if err != nil {
		return nil, err
	}
	state.Failure = reason
	if err := s.applyState(upload, state, nil, nil); err != nil {
		return nil, err
	}
	s.logger.Warn("upload failed", "upload_id", uploadID, "reason", reason)
	return upload, nil
}

// PurgeUpload deletes an upload: its row, its event trail, and, when no
// other upload shares the archive, the stored blob. Registry rows the
// upload created survive with their upload reference cleared.
func (s *IntakeService) PurgeUpload(userID, uploadID string) error {
	upload, err := s.GetUpload(userID, uploadID)
	if err != nil {
		return err
	}

	if err := s.db.DeleteUpload(userID, uploadID); err != nil {
		return fmt.Errorf("deleting upload %s: %w", uploadID, err)
	}

	remaining, err := s.db.CountUploadsByZipKey(upload.ZipKey)
	if err != nil {
		return fmt.Errorf("counting archive references: %w", err)
	}
	if remaining == 0 {
		if err := s.vault.DeleteArchive(upload.ZipKey); err != nil {
			return fmt.Errorf("deleting archive %s: %w", upload.ZipKey, err)
		}
	}

	s.logger.Info("upload purged", "upload_id", uploadID, "archive_kept", remaining > 0)
	return nil
}

// ExportArchive streams an upload's stored archive to w.
func (s *IntakeService) ExportArchive(userID, uploadID string, w io.Writer) error {
	upload, err := s.GetUpload(userID, uploadID)
	if err != nil {
		return err
	}
	if err := s.vault.GetArchive(upload.ZipKey, w); err != nil {
		return fmt.Errorf("reading archive %s: %w", upload.ZipKey, err)
	}
	return nil
}
