package handlers

import (
	"context"
	"strings"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/logging"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler handles admin user management.
type UserHandler struct {
	DB      *gorm.DB
	Ratings RatingsService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, ratings RatingsService) *UserHandler {
	return &UserHandler{DB: db, Ratings: ratings}
}

// ListUsers returns every account, newest first.
func (h *UserHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Find(&users).Error; err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error", err))
		return
	}

	sanitizedUsers := make([]models.UserSanitized, len(users))
	for i := range users {
		sanitizedUsers[i] = users[i].Sanitize()
	}

	utils.Success(c, "Users fetched successfully", gin.H{"users": sanitizedUsers})
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Passwords are only changed by their owner.
type UpdateUserRequest struct {
	FirstName   string `json:"firstName" binding:"max=100"`
	LastName    string `json:"lastName" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phoneNumber" binding:"max=32"`
	Role        string `json:"role" binding:"omitempty,oneof=patient doctor admin"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req UpdateUserRequest
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
	previousRole := user.Role

	if v := strings.TrimSpace(req.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(req.PhoneNumber); v != "" {
		user.PhoneNumber = v
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		var taken int64
		if err := h.DB.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
			utils.RespondError(c, apperrors.Unexpected("Server error", err))
			return
		}
		if taken > 0 {
			utils.BadRequest(c, "Email already in use")
			return
		}
		user.Email = email
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}

	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		if models.IsDuplicate(err) {
			utils.BadRequest(c, "Email already in use")
			return
		}
		utils.RespondError(c, apperrors.Unexpected("Failed to update user", err))
		return
	}
	refreshDoctorDirectory(ctx, h.Ratings, previousRole, user.Role)

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser removes an account and its sessions. Accounts that still own
// appointments, home visits or reviews are kept.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")
	if actorID, _ := middleware.GetUserIDFromContext(c); actorID == userID {
		utils.BadRequest(c, "You cannot delete your own account")
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

	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if models.IsForeignKeyViolation(err) {
			utils.RespondError(c, apperrors.Conflict("User has appointment history and cannot be deleted"))
			return
		}
		utils.RespondError(c, apperrors.Unexpected("Failed to delete user", err))
		return
	}
	refreshDoctorDirectory(ctx, h.Ratings, user.Role)

	logging.FromContext(ctx).Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user deleted")
	utils.Success(c, "User deleted successfully", nil)
}

// refreshDoctorDirectory drops cached ratings when a doctor account changed.
func refreshDoctorDirectory(ctx context.Context, ratings RatingsService, roles ...models.Role) {
	if ratings == nil {
		return
	}
	for _, role := range roles {
		if role == models.RoleDoctor {
			ratings.InvalidateRatings(ctx)
			return
		}
	}
}
