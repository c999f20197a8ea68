package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/hierarchy"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/storage"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GET /categories
func GetCategories(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, limit, skip := utils.Pagination(c.Query("page"), c.Query("limit"), 50, 200)

		f := database.CategoryListFilter{
			Query: strings.TrimSpace(c.Query("q")),
			Skip:  skip,
			Limit: int64(limit),
		}
		switch parent := strings.TrimSpace(c.Query("parentId")); parent {
		case "":
		case "root":
			f.RootOnly = true
		default:
			id, err := bson.ObjectIDFromHex(parent)
			if err != nil {
				badRequest(c, "invalid parentId")
				return
			}
			f.ParentID = &id
		}

		items, total, err := app.Categories.List(ctx, f)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items": items,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}

// GET /categories/tree and GET /admin/categories/tree
//
// Query: rootId limits the tree to the children of that category, flat=true
// returns the pre-order list with depths. Inactive categories and everything
// below them are hidden unless includeInactive is set by the route.
func GetCategoryTree(app *App, includeInactive bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		rootID, err := utils.ParseOptionalObjectID(c.Query("rootId"))
		if err != nil {
			badRequest(c, "invalid rootId")
			return
		}

		var (
			cats   []models.Category
			counts map[bson.ObjectID]int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			cats, err = app.Categories.ListAll(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			counts, err = app.Categories.ActiveProductCounts(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			respondError(c, app.Logger, err)
			return
		}

		nodes := make([]models.CategoryTreeNode, 0, len(cats))
		for _, cat := range cats {
			if !cat.IsActive && !includeInactive {
				continue
			}
			nodes = append(nodes, models.CategoryTreeNode{Category: cat, ProductCount: counts[cat.Id]})
		}
		tree := hierarchy.BuildTree(nodes, rootID)

		if flat, _ := utils.ParseBoolQuery(c.Query("flat")); flat != nil && *flat {
			c.JSON(http.StatusOK, gin.H{"items": hierarchy.FlattenTree(tree)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": tree})
	}
}

// GET /categories/:id and GET /categories/slug/:slug
func GetCategory(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		idHex := c.Param("id")
		slug := strings.TrimSpace(c.Param("slug"))

		var (
			cat *models.Category
			err error
		)
		switch {
		case idHex != "":
			id, perr := bson.ObjectIDFromHex(idHex)
			if perr != nil {
				badRequest(c, "invalid category id")
				return
			}
			cat, err = app.Categories.FindCategoryByID(ctx, id)
		case slug != "":
			cat, err = app.Categories.FindBySlug(ctx, slug)
		default:
			badRequest(c, "no id or slug provided")
			return
		}
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if cat == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

// GET /categories/:id/path
func GetCategoryPath(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid category id")
			return
		}
		path, err := app.Hierarchy.ResolvePath(c.Request.Context(), id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": path})
	}
}

// POST /admin/categories
func AddCategory(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.CreateCategoryDTO
		if err := bindData(c, &body); err != nil {
			badRequest(c, err.Error())
			return
		}

		name := strings.TrimSpace(body.Name)
		slug := strings.TrimSpace(body.Slug)
		if slug == "" {
			slug = utils.GenerateSlug(name)
		}
		if !utils.IsValidSlug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slug must be lowercase letters, digits and hyphens", "field": "slug"})
			return
		}

		parentID, err := utils.ParseOptionalObjectID(body.ParentId)
		if err != nil {
			badRequest(c, "invalid parentId")
			return
		}
		if parentID != nil {
			parent, err := app.Categories.FindCategoryByID(ctx, *parentID)
			if err != nil {
				respondError(c, app.Logger, err)
				return
			}
			if parent == nil {
				badRequest(c, "parent category not found")
				return
			}
		}

		cat := models.Category{
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(body.Description),
			SortOrder:   body.SortOrder,
			ParentId:    parentID,
			IsActive:    body.IsActive == nil || *body.IsActive,
		}

		img, ok := validateCategoryImage(c, app)
		if !ok {
			return
		}
		uploaded, ok := uploadCategoryImage(c, app, slug, img)
		if !ok {
			return
		}
		if uploaded != nil {
			cat.ImageUrl = uploaded.URL
		}

		if err := app.Categories.Create(ctx, &cat); err != nil {
			if uploaded != nil {
				cleanupObjects(ctx, app, []storage.StoredObject{*uploaded})
			}
			respondError(c, app.Logger, err)
			return
		}

		app.Logger.Info("category created", zap.String("category_id", cat.Id.Hex()), zap.String("slug", cat.Slug))
		c.JSON(http.StatusCreated, cat)
	}
}

// PATCH /admin/categories/:id
func UpdateCategory(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid category id")
			return
		}

		var body dto.UpdateCategoryDTO
		if err := bindData(c, &body); err != nil {
			badRequest(c, err.Error())
			return
		}
		if body.Slug != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slug cannot be changed", "field": "slug"})
			return
		}

		current, err := app.Categories.FindCategoryByID(ctx, id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if current == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}

		set := bson.M{}
		if body.Name != nil {
			v := strings.TrimSpace(*body.Name)
			if v == "" {
				badRequest(c, "name cannot be empty")
				return
			}
			set["name"] = v
		}
		if body.Description != nil {
			set["description"] = strings.TrimSpace(*body.Description)
		}
		if body.SortOrder != nil {
			set["sortOrder"] = *body.SortOrder
		}
		if body.IsActive != nil {
			set["isActive"] = *body.IsActive
		}

		var newParent *bson.ObjectID
		moveParent := false
		if body.ParentId != nil {
			newParent, err = utils.ParseOptionalObjectID(*body.ParentId)
			if err != nil {
				badRequest(c, "invalid parentId")
				return
			}
			moveParent = !models.SameParent(newParent, current.ParentId)
		}

		img, ok := validateCategoryImage(c, app)
		if !ok {
			return
		}
		if len(set) == 0 && !moveParent && len(img.files) == 0 && !body.RemoveImage {
			badRequest(c, "no updates provided")
			return
		}

		if moveParent && newParent != nil {
			parent, err := app.Categories.FindCategoryByID(ctx, *newParent)
			if err != nil {
				respondError(c, app.Logger, err)
				return
			}
			if parent == nil {
				badRequest(c, "parent category not found")
				return
			}
		}

		// Everything is validated; only the image upload and the writes remain.
		uploaded, ok := uploadCategoryImage(c, app, current.Slug, img)
		if !ok {
			return
		}
		switch {
		case uploaded != nil:
			set["imageUrl"] = uploaded.URL
		case body.RemoveImage:
			set["imageUrl"] = ""
		}

		applyFields := func(ctx context.Context) error {
			if len(set) == 0 {
				return nil
			}
			found, err := app.Categories.Update(ctx, id, set)
			if err != nil {
				return err
			}
			if !found {
				return hierarchy.ErrNotFound
			}
			return nil
		}

		if moveParent {
			err = app.Hierarchy.AssignParentWith(ctx, id, newParent, applyFields)
		} else {
			err = applyFields(ctx)
		}
		if err != nil {
			if uploaded != nil {
				cleanupObjects(ctx, app, []storage.StoredObject{*uploaded})
			}
			respondError(c, app.Logger, err)
			return
		}

		if _, replaced := set["imageUrl"]; replaced && current.ImageUrl != "" {
			removeImageURL(c, app, current.ImageUrl)
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GET /admin/categories/:id/can-delete
func CanDeleteCategory(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid category id")
			return
		}
		cat, err := app.Categories.FindCategoryByID(ctx, id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if cat == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		check, err := app.Hierarchy.CanDelete(ctx, id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		c.JSON(http.StatusOK, check)
	}
}

// DELETE /admin/categories/:id
func DeleteCategory(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid category id")
			return
		}

		cat, err := app.Categories.FindCategoryByID(ctx, id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		res, err := app.Hierarchy.DeleteCategory(ctx, id)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if !res.Deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		if cat != nil && cat.ImageUrl != "" {
			removeImageURL(c, app, cat.ImageUrl)
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "childrenMoved": res.ChildrenMoved})
	}
}

// categoryImage is the optional validated "image" upload of a category
// request.
type categoryImage struct {
	files     []*multipart.FileHeader
	mimeTypes []string
}

// validateCategoryImage checks the "image" file without storing it. It writes
// the error response itself and returns ok=false on failure.
func validateCategoryImage(c *gin.Context, app *App) (categoryImage, bool) {
	files := formFiles(c, "image")
	if len(files) == 0 {
		return categoryImage{}, true
	}
	if len(files) > 1 {
		badRequest(c, "only one category image is allowed")
		return categoryImage{}, false
	}
	mimeTypes, err := app.Validator.ValidateAll(files)
	if err != nil {
		badRequest(c, err.Error())
		return categoryImage{}, false
	}
	return categoryImage{files: files, mimeTypes: mimeTypes}, true
}

// uploadCategoryImage stores a validated image, returning nil when there is
// none.
func uploadCategoryImage(c *gin.Context, app *App, slug string, img categoryImage) (*storage.StoredObject, bool) {
	if len(img.files) == 0 {
		return nil, true
	}
	stored, err := uploadImages(c.Request.Context(), app, storage.CategoryPrefix(slug), img.files, img.mimeTypes)
	if err != nil {
		respondError(c, app.Logger, err)
		return nil, false
	}
	return &stored[0], true
}

func removeImageURL(c *gin.Context, app *App, url string) {
	name, err := app.Images.ObjectName(url)
	if err != nil {
		app.Logger.Warn("cannot map image url to object", zap.String("url", url), zap.Error(err))
		return
	}
	deleteObjects(c.Request.Context(), app, []string{name})
}
