package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/config"
	"curequeue-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := testConfig()
	user := &models.User{BaseModel: models.BaseModel{ID: "doc-1"}, Role: models.RoleDoctor}

	access, refresh, err := GenerateTokens(user, cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", claims.UserID)
	assert.Equal(t, models.RoleDoctor, claims.Role)

	_, err = ValidateToken(refresh, cfg.JWTSecret)
	assert.Error(t, err, "refresh token must not pass as an access token")

	_, err = ValidateToken(access, "other-secret")
	assert.Error(t, err)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	cfg := testConfig()
	access, _, err := GenerateTokens(&models.User{BaseModel: models.BaseModel{ID: "u-1"}, Role: "superuser"}, cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, cfg.JWTSecret)
	assert.Error(t, err)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"forbidden", apperrors.Forbidden("Access denied"), http.StatusForbidden, "Access denied"},
		{"wrapped conflict", fmt.Errorf("cancel: %w", apperrors.Conflict("Appointment is already cancelled")), http.StatusBadRequest, "Appointment is already cancelled"},
		{"unexpected hides cause", apperrors.Unexpected("Failed to load queue", errors.New("dial tcp 10.0.0.5:3306")), http.StatusInternalServerError, "Failed to load queue"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var body ResponseData
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body.Message)
			assert.Equal(t, tt.code, body.Status)
			assert.NotContains(t, w.Body.String(), "10.0.0.5")
		})
	}
}

func TestBindAndValidateReportsJSONNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	type request struct {
		DoctorID string `json:"doctorId" binding:"required"`
		Rating   int    `json:"rating" binding:"min=1,max=5"`
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":9}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req request
	assert.False(t, BindAndValidate(c, &req))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "doctorId is required")
	assert.Contains(t, w.Body.String(), "rating must be at most 5")
}
