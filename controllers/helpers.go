package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/hierarchy"
	"github.com/princinho/storefront/storage"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

// bindData decodes the request payload into dst. Multipart requests carry it
// as JSON in the "data" field, everything else as a JSON body.
func bindData(c *gin.Context, dst any) error {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.ShouldBindJSON(dst)
	}
	raw := c.PostForm("data")
	if raw == "" {
		return errors.New("missing data")
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("invalid data json: %w", err)
	}
	return validate.Struct(dst)
}

// formFiles returns the uploaded files under field, or nil for non-multipart
// requests.
func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError maps engine and store errors to HTTP responses. Unknown errors
// are logged and hidden behind a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		cycle   *hierarchy.CycleError
		blocked *hierarchy.DeletionBlockedError
	)
	switch {
	case errors.As(err, &cycle):
		c.JSON(http.StatusConflict, gin.H{"error": cycle.Error(), "code": "category_cycle"})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{
			"error":          blocked.Error(),
			"code":           "category_has_products",
			"activeProducts": blocked.Count,
		})
	case errors.Is(err, hierarchy.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case database.IsDuplicateKey(err):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already exists", "field": "slug"})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		_ = c.Error(err)
		logger.Error("request error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// uploadImages stores files and returns what was written. When one upload
// fails the ones already written are removed.
func uploadImages(ctx context.Context, app *App, prefix string, files []*multipart.FileHeader, mimeTypes []string) ([]storage.StoredObject, error) {
	stored := make([]storage.StoredObject, 0, len(files))
	for i, fh := range files {
		obj, err := app.Images.Upload(ctx, prefix, fh, mimeTypes[i])
		if err != nil {
			cleanupObjects(ctx, app, stored)
			return nil, err
		}
		stored = append(stored, obj)
	}
	return stored, nil
}

func cleanupObjects(ctx context.Context, app *App, objs []storage.StoredObject) {
	if len(objs) == 0 {
		return
	}
	names := make([]string, 0, len(objs))
	for _, o := range objs {
		names = append(names, o.ObjectName)
	}
	deleteObjects(ctx, app, names)
}

// deleteObjects is best effort; failures only leave orphan files behind.
func deleteObjects(ctx context.Context, app *App, names []string) {
	if len(names) == 0 {
		return
	}
	if err := app.Images.Delete(context.WithoutCancel(ctx), names...); err != nil {
		app.Logger.Warn("image cleanup failed", zap.Strings("objects", names), zap.Error(err))
	}
}
