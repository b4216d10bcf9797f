package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"intake-go/internal/intake"
	"intake-go/internal/model"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("relpath", validateRelpath)
	}
}

// validateRelpath accepts forward-slash relative paths with no empty,
// "." or ".." segments. Deeper validation (does the path exist in the
// version) happens in the service.
func validateRelpath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resolveDedupRequest struct {
	Decisions map[string]string `json:"decisions" binding:"required,min=1,dive,oneof=skip new_project new_version"`
}

type classificationsRequest struct {
	Assignments map[string]string `json:"assignments" binding:"required,min=1,dive,oneof=individual collaborative"`
}

type projectTypesRequest struct {
	Types map[string]string `json:"types" binding:"required,min=1,dive,oneof=code text"`
}

type fileRoleRequest struct {
	MainFile   string   `json:"main_file" binding:"required,relpath"`
	SectionIDs []string `json:"contributed_section_ids"`
}

type fileRolesRequest struct {
	Roles map[string]fileRoleRequest `json:"roles" binding:"required,min=1,dive"`
}

type summariesRequest struct {
	Summaries map[string]string `json:"summaries" binding:"required,min=1,dive,min=1"`
}

type analysisRequest struct {
	Results map[string]map[string]string `json:"results" binding:"required,min=1"`
}

type failRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type userResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type uploadResponse struct {
	UploadID  string             `json:"upload_id"`
	ZipName   string             `json:"zip_name"`
	Status    model.UploadStatus `json:"status"`
	State     json.RawMessage    `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Summary   *intake.RunSummary `json:"summary,omitempty"`
}

func newUploadResponse(u *model.Upload, summary *intake.RunSummary) uploadResponse {
	state := u.State
	if len(state) == 0 {
		state = []byte("{}")
	}
	return uploadResponse{
		UploadID:  u.ID,
		ZipName:   u.ZipName,
		Status:    u.Status,
		State:     json.RawMessage(state),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Summary:   summary,
	}
}

type eventResponse struct {
	FromStatus model.UploadStatus `json:"from_status"`
	ToStatus   model.UploadStatus `json:"to_status"`
	CreatedAt  time.Time          `json:"created_at"`
}
