package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"intake-go/internal/intake"
	"intake-go/internal/model"
)

func (s *Server) handleHealth(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"service": "intake"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	token, user, expiresAt, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userResponse{UserID: user.ID, Email: user.Email, DisplayName: user.DisplayName},
	})
}

// handleStartUpload ingests a multipart zip archive: persist, parse,
// layout analysis and the full dedup pass in one request.
func (s *Server) handleStartUpload(c *gin.Context) {
	uid := userID(c)
	if s.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: multipart field %q is required", intake.ErrInvalidInput, "archive"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.respondError(c, fmt.Errorf("opening uploaded archive: %w", err))
		return
	}
	defer f.Close()

	upload, summary, err := s.intake.StartUpload(uid, filepath.Base(fileHeader.Filename), f)
	if err != nil {
		if upload != nil {
			// The upload row survives ingest failures in failed status.
			recordIngest(string(upload.Status))
			s.respondUploadError(c, uid, upload.ID, err)
			return
		}
		s.respondError(c, err)
		return
	}

	recordIngest(string(upload.Status))
	recordOutcomes(summary)
	respondOK(c, http.StatusCreated, newUploadResponse(upload, summary))
}

func (s *Server) handleListUploads(c *gin.Context) {
	uid := userID(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(c, fmt.Errorf("%w: limit must be a non-negative integer", intake.ErrInvalidInput))
			return
		}
		limit = n
	}

	uploads, err := s.intake.ListUploads(uid, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]uploadResponse, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, newUploadResponse(u, nil))
	}
	respondOK(c, http.StatusOK, gin.H{"uploads": out})
}

func (s *Server) handleGetUpload(c *gin.Context) {
	upload, err := s.intake.GetUpload(userID(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleUploadEvents(c *gin.Context) {
	events, err := s.intake.UploadEvents(userID(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{FromStatus: e.FromStatus, ToStatus: e.ToStatus, CreatedAt: e.CreatedAt})
	}
	respondOK(c, http.StatusOK, gin.H{"events": out})
}

func (s *Server) handleExportArchive(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	upload, err := s.intake.GetUpload(uid, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", upload.ZipName))
	if err := s.intake.ExportArchive(uid, id, c.Writer); err != nil {
		// Headers are already sent; log and drop the connection.
		s.logger.Error("archive export failed", "upload_id", id, "error", err)
		c.Abort()
	}
}

func (s *Server) handleResolveDedup(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req resolveDedupRequest
	if !s.bindJSON(c, &req) {
		return
	}

	decisions := make(map[string]intake.DedupDecision, len(req.Decisions))
	for name, d := range req.Decisions {
		decisions[name] = intake.DedupDecision(d)
	}

	upload, summary, err := s.intake.ResolveDedup(uid, id, decisions)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}

	recordOutcomes(summary)
	respondOK(c, http.StatusOK, newUploadResponse(upload, summary))
}

func (s *Server) handleSubmitClassifications(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req classificationsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	assignments := make(map[string]model.Classification, len(req.Assignments))
	for name, cl := range req.Assignments {
		assignments[name] = model.Classification(cl)
	}

	upload, err := s.intake.SubmitClassifications(uid, id, assignments)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleSubmitProjectTypes(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req projectTypesRequest
	if !s.bindJSON(c, &req) {
		return
	}

	types := make(map[string]model.ProjectType, len(req.Types))
	for name, pt := range req.Types {
		types[name] = model.ProjectType(pt)
	}

	upload, err := s.intake.SubmitProjectTypes(uid, id, types)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleSubmitFileRoles(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req fileRolesRequest
	if !s.bindJSON(c, &req) {
		return
	}

	roles := make(map[string]intake.FileRoleSelection, len(req.Roles))
	for name, r := range req.Roles {
		roles[name] = intake.FileRoleSelection{MainFile: r.MainFile, SectionIDs: r.SectionIDs}
	}

	upload, err := s.intake.SubmitFileRoles(uid, id, roles)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleSubmitSummaries(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req summariesRequest
	if !s.bindJSON(c, &req) {
		return
	}

	upload, err := s.intake.SubmitSummaries(uid, id, req.Summaries)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleSubmitAnalysis(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req analysisRequest
	if !s.bindJSON(c, &req) {
		return
	}

	upload, err := s.intake.SubmitAnalysis(uid, id, req.Results)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handleFailUpload(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	var req failRequest
	if !s.bindJSON(c, &req) {
		return
	}

	upload, err := s.intake.FailUpload(uid, id, req.Reason)
	if err != nil {
		s.respondUploadError(c, uid, id, err)
		return
	}
	respondOK(c, http.StatusOK, newUploadResponse(upload, nil))
}

func (s *Server) handlePurgeUpload(c *gin.Context) {
	uid := userID(c)
	id := c.Param("id")

	if err := s.intake.PurgeUpload(uid, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"upload_id": id})
}

// bindJSON binds the request body and writes the input-error envelope on
// failure.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", intake.ErrInvalidInput, err))
		return false
	}
	return true
}
