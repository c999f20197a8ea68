package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.uber.org/zap"
)

// POST /auth/login
func Login(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		user, err := app.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(body.Email)))
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if user == nil || utils.CheckPassword(user.PasswordHash, body.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if !user.CanSignIn() {
			c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		access, ok := issueTokens(c, app, user)
		if !ok {
			return
		}
		if err := app.Users.RecordLogin(ctx, user.ID, time.Now().UTC()); err != nil {
			app.Logger.Warn("could not record login", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		}
		app.Logger.Info("user logged in", zap.String("user_id", user.ID.Hex()))
		c.JSON(http.StatusOK, gin.H{"accessToken": access})
	}
}

// POST /auth/refresh
//
// The presented refresh token is revoked and replaced on every call.
func Refresh(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		auth := app.Config.Auth

		raw, err := c.Cookie(utils.RefreshCookieName)
		if err != nil || raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
			return
		}
		if _, err := utils.ValidateToken(raw, auth.JWTRefreshSecret); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		rt, err := app.Users.FindActiveRefreshToken(ctx, utils.HashToken(raw))
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if rt == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		user, err := app.Users.FindByID(ctx, rt.UserID)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}
		if !user.CanSignIn() {
			c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		newRaw, err := utils.GenerateRefreshToken(auth.JWTRefreshSecret, user.ID.Hex(), auth.RefreshTTL)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		newHash := utils.HashToken(newRaw)
		if err := app.Users.RotateRefreshToken(ctx, rt.ID, newHash); err != nil {
			respondError(c, app.Logger, err)
			return
		}
		now := time.Now().UTC()
		if err := app.Users.InsertRefreshToken(ctx, &models.RefreshToken{
			UserID:    user.ID,
			TokenHash: newHash,
			ExpiresAt: now.Add(auth.RefreshTTL),
			CreatedAt: now,
		}); err != nil {
			respondError(c, app.Logger, err)
			return
		}

		access, err := utils.GenerateAccessToken(auth.JWTSecret, user.ID.Hex(), user.Email, string(user.Role), auth.AccessTTL)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		utils.SetRefreshCookie(c, newRaw, auth.RefreshTTL, app.Config.Server.CookieSecure, app.Config.Server.CookieDomain)
		c.JSON(http.StatusOK, gin.H{"accessToken": access})
	}
}

// POST /auth/logout
func Logout(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Cookie(utils.RefreshCookieName)
		utils.ClearRefreshCookie(c, app.Config.Server.CookieSecure, app.Config.Server.CookieDomain)

		// best effort revoke
		if raw != "" {
			if err := app.Users.RevokeRefreshToken(c.Request.Context(), utils.HashToken(raw)); err != nil {
				app.Logger.Warn("refresh token revoke failed", zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// issueTokens stores a new refresh token, sets its cookie and returns a
// fresh access token.
func issueTokens(c *gin.Context, app *App, user *models.User) (string, bool) {
	auth := app.Config.Auth

	access, err := utils.GenerateAccessToken(auth.JWTSecret, user.ID.Hex(), user.Email, string(user.Role), auth.AccessTTL)
	if err != nil {
		respondError(c, app.Logger, err)
		return "", false
	}
	refresh, err := utils.GenerateRefreshToken(auth.JWTRefreshSecret, user.ID.Hex(), auth.RefreshTTL)
	if err != nil {
		respondError(c, app.Logger, err)
		return "", false
	}

	now := time.Now().UTC()
	if err := app.Users.InsertRefreshToken(c.Request.Context(), &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: now.Add(auth.RefreshTTL),
		CreatedAt: now,
	}); err != nil {
		respondError(c, app.Logger, err)
		return "", false
	}

	utils.SetRefreshCookie(c, refresh, auth.RefreshTTL, app.Config.Server.CookieSecure, app.Config.Server.CookieDomain)
	return access, true
}
