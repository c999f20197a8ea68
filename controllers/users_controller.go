package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/middleware"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// POST /admin/users
func CreateUser(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterUserDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		user := models.User{
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := app.Users.Create(c.Request.Context(), &user); err != nil {
			if database.IsDuplicateKey(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "email already exists", "field": "email"})
				return
			}
			respondError(c, app.Logger, err)
			return
		}

		app.Logger.Info("user created",
			zap.String("user_id", user.ID.Hex()),
			zap.String("created_by", c.GetString(middleware.CtxUserID)),
		)
		c.JSON(http.StatusCreated, user)
	}
}

// POST /admin/users/me/password
//
// Every refresh token of the user is revoked, so other sessions have to log
// in again.
func ChangeMyPassword(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.ChangeMyPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		userID, err := bson.ObjectIDFromHex(c.GetString(middleware.CtxUserID))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid auth context"})
			return
		}

		user, err := app.Users.FindByID(ctx, userID)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}
		if err := utils.CheckPassword(user.PasswordHash, body.CurrentPassword); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}

		newHash, err := utils.HashPassword(body.NewPassword)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if err := app.Users.UpdatePassword(ctx, userID, newHash); err != nil {
			respondError(c, app.Logger, err)
			return
		}

		if err := app.Users.RevokeAllRefreshTokens(ctx, userID); err != nil {
			app.Logger.Warn("refresh token revoke failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		}
		utils.ClearRefreshCookie(c, app.Config.Server.CookieSecure, app.Config.Server.CookieDomain)

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
