package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intake-go/internal/auth"
	"intake-go/internal/intake"
)

// errorBody is the error half of the response envelope. For upload
// endpoints the current status and state document ride along so a
// client can re-render the wizard without a second request.
type errorBody struct {
	Kind         string          `json:"kind"`
	Message      string          `json:"message"`
	UploadStatus string          `json:"upload_status,omitempty"`
	State        json.RawMessage `json:"state,omitempty"`
}

// classifyError maps an error to its taxonomy kind and HTTP status.
func classifyError(err error) (string, int) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return "input", http.StatusBadRequest
	case errors.Is(err, intake.ErrInvalidInput):
		return "input", http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return "auth", http.StatusUnauthorized
	case errors.Is(err, intake.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, intake.ErrWrongState):
		return "state", http.StatusConflict
	case errors.Is(err, intake.ErrConflict):
		return "conflict", http.StatusConflict
	default:
		return "internal", http.StatusInternalServerError
	}
}

func respondOK(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

// respondError writes the error envelope for failures outside an upload
// context.
func (s *Server) respondError(c *gin.Context, err error) {
	s.writeError(c, err, errorBody{})
}

// respondUploadError writes the error envelope and, when the upload is
// still readable, attaches its current status and state document.
func (s *Server) respondUploadError(c *gin.Context, userID, uploadID string, err error) {
	body := errorBody{}
	if upload, ferr := s.intake.GetUpload(userID, uploadID); ferr == nil && upload != nil {
		body.UploadStatus = string(upload.Status)
		if len(upload.State) > 0 {
			body.State = json.RawMessage(upload.State)
		}
	}
	s.writeError(c, err, body)
}

func (s *Server) writeError(c *gin.Context, err error, body errorBody) {
	kind, code := classifyError(err)
	body.Kind = kind
	body.Message = err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"status": "error", "error": body})
}
