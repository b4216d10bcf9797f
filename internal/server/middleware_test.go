package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func requestContext(t *testing.T, header string) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	return c
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid token", "Bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"no scheme", "abc123", ""},
		{"basic auth", "Basic abc123", ""},
		{"only scheme", "Bearer", ""},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"uppercase scheme", "BEARER abc123", "abc123"},
		{"padded token", "Bearer   abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := requestContext(t, tt.header)
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

func TestValidateRelpath(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("relpath", validateRelpath))

	valid := []string{"main.md", "docs/intro.md", "a/b/c.txt"}
	for _, p := range valid {
		assert.NoErrorf(t, v.Var(p, "relpath"), "path %q should pass", p)
	}

	invalid := []string{"", "/abs.md", `win\path.md`, "a//b.md", "./here.md", "../up.md", "a/../b.md", "a/."}
	for _, p := range invalid {
		assert.Errorf(t, v.Var(p, "relpath"), "path %q should fail", p)
	}
}
