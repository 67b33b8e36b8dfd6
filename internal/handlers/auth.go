package handlers

import (
	"strings"
	"time"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/config"
	"curequeue-server/internal/logging"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const refreshTokenCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Ratings RatingsService
}

// NewAuthHandler creates a new AuthHandler. Doctor sign-ups and profile
// changes invalidate the ratings directory.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, ratings RatingsService) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Ratings: ratings}
}

// RegisterRequest represents the request body for user registration.
// Admin accounts are provisioned out of band.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phoneNumber" binding:"max=32"`
	Address     string `json:"address" binding:"max=255"`
	Role        string `json:"role" binding:"omitempty,oneof=patient doctor"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existingUser models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "Email already registered")
		return
	} else if !models.IsNotFound(err) {
		utils.RespondError(c, apperrors.Unexpected("Server error during registration", err))
		return
	}

	role := models.RolePatient
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	user := models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Role:        role,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Address:     strings.TrimSpace(req.Address),
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error during registration", err))
		return
	}

	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if models.IsDuplicate(err) {
			utils.BadRequest(c, "Email already registered")
			return
		}
		utils.RespondError(c, apperrors.Unexpected("Server error during registration", err))
		return
	}

	refreshDoctorDirectory(ctx, h.Ratings, user.Role)

	logging.FromContext(ctx).Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if models.IsNotFound(err) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.RespondError(c, apperrors.Unexpected("Server error during login", err))
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, &user)
	if err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error during login", err))
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets it as an
// HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", err
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&refreshToken).Error; err != nil {
		return "", "", err
	}

	c.SetCookie(
		refreshTokenCookie,
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)
	return accessToken, refreshTokenString, nil
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token. The cookie wins over the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshTokenCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	var storedToken models.RefreshToken
	if err := h.DB.WithContext(ctx).Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", presented, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if models.IsNotFound(err) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.RespondError(c, apperrors.Unexpected("Server error", err))
		}
		return
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if models.IsNotFound(err) {
			utils.Unauthorized(c, "User no longer exists")
		} else {
			utils.RespondError(c, apperrors.Unexpected("Server error", err))
		}
		return
	}

	storedToken.IsRevoked = true
	if err := h.DB.WithContext(ctx).Save(&storedToken).Error; err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error", err))
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, &user)
	if err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error", err))
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	result := h.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", req.RefreshToken, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()})
	if result.Error != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error during logout", result.Error))
		return
	}

	c.SetCookie(refreshTokenCookie, "", -1, "/", "", h.Cfg.Environment != "development", true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if models.IsNotFound(err) {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.RespondError(c, apperrors.Unexpected("Server error", err))
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email and role cannot be changed here.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" binding:"max=100"`
	LastName    string `json:"lastName" binding:"max=100"`
	PhoneNumber string `json:"phoneNumber" binding:"max=32"`
	Address     string `json:"address" binding:"max=255"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if models.IsNotFound(err) {
			utils.NotFound(c, "User not found")
		} else {
			utils.RespondError(c, apperrors.Unexpected("Server error", err))
		}
		return
	}

	if v := strings.TrimSpace(req.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(req.PhoneNumber); v != "" {
		user.PhoneNumber = v
	}
	if v := strings.TrimSpace(req.Address); v != "" {
		user.Address = v
	}

	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		utils.RespondError(c, apperrors.Unexpected("Failed to update profile", err))
		return
	}
	refreshDoctorDirectory(ctx, h.Ratings, user.Role)

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
