package middleware

import (
	"strings"

	"curequeue-server/internal/config"
	"curequeue-server/internal/models"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	contextUserID   = "userID"
	contextUserRole = "userRole"

	// LegacyTokenHeader carries a bare JWT for older clients.
	LegacyTokenHeader = "x-auth-token"
)

// AuthMiddleware creates a middleware for JWT authentication. The token is
// read from "Authorization: Bearer" or from the legacy x-auth-token header.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := tokenFromRequest(c)
		if !ok {
			utils.Unauthorized(c, "No token, authorization denied")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Token is not valid")
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(contextUserID, claims.UserID)
		c.Set(contextUserRole, claims.Role)

		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := strings.TrimSpace(c.GetHeader(LegacyTokenHeader)); token != "" {
		return token, true
	}
	return "", false
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Server error")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "Access denied")
		c.Abort()
	}
}

// GetUserIDFromContext returns the authenticated user's id.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// GetUserRoleFromContext returns the authenticated user's role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(contextUserRole)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}

// GetActor returns the authenticated caller. It reports false on routes
// that are not behind AuthMiddleware.
func GetActor(c *gin.Context) (models.Actor, bool) {
	id, ok := GetUserIDFromContext(c)
	if !ok || id == "" {
		return models.Actor{}, false
	}
	role, ok := GetUserRoleFromContext(c)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: role}, true
}
