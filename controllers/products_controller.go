package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/storage"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// GET /products
//
// Query: category (slug), includeDescendants, isTrending, isDisabled, sort,
// page, limit.
func GetProducts(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		page, limit, skip := utils.Pagination(c.Query("page"), c.Query("limit"),
			app.Config.Query.DefaultLimit, app.Config.Query.MaxLimit)
		categorySlug := strings.TrimSpace(c.Query("category"))
		sortParam := strings.TrimSpace(c.Query("sort"))

		q := database.ProductQuery{Sort: sortParam, Skip: skip, Limit: int64(limit)}

		if categorySlug != "" {
			cat, err := app.Categories.FindBySlug(ctx, categorySlug)
			if err != nil {
				respondError(c, app.Logger, err)
				return
			}
			if cat == nil {
				c.JSON(http.StatusOK, gin.H{
					"items": []models.Product{},
					"page":  page,
					"limit": limit,
					"total": 0,
				})
				return
			}
			q.CategoryIDs = []bson.ObjectID{cat.Id}

			if b, err := utils.ParseBoolQuery(c.Query("includeDescendants")); err == nil && b != nil && *b {
				desc, err := app.Hierarchy.CollectDescendants(ctx, cat.Id)
				if err != nil {
					respondError(c, app.Logger, err)
					return
				}
				q.CategoryIDs = append(q.CategoryIDs, desc...)
			}
		}
		if b, err := utils.ParseBoolQuery(c.Query("isTrending")); err == nil && b != nil {
			q.IsTrending = b
		}
		if b, err := utils.ParseBoolQuery(c.Query("isDisabled")); err == nil && b != nil {
			q.IsDisabled = b
		}

		products, total, err := app.Products.FindPage(ctx, q)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items":    products,
			"page":     page,
			"limit":    limit,
			"total":    total,
			"category": categorySlug,
			"sort":     sortParam,
		})
	}
}

// GET /products/slug/:slug
func GetProduct(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := app.Products.FindBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// POST /admin/products
func AddProduct(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.CreateProductDTO
		if err := bindData(c, &body); err != nil {
			badRequest(c, err.Error())
			return
		}

		slug := strings.TrimSpace(body.Slug)
		if slug == "" {
			slug = utils.GenerateSlug(body.Name)
		}
		if !utils.IsValidSlug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slug must be lowercase letters, digits and hyphens", "field": "slug"})
			return
		}

		files := formFiles(c, "images")
		maxImages := app.Config.Upload.MaxProductImages
		if len(files) == 0 {
			badRequest(c, "at least one image is required")
			return
		}
		if len(files) > maxImages {
			badRequest(c, fmt.Sprintf("Max %v images", maxImages))
			return
		}
		mimeTypes, err := app.Validator.ValidateAll(files)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		categoryIDs, ok := resolveCategoryIDs(c, app, body.CategoryIds)
		if !ok {
			return
		}

		stored, err := uploadImages(ctx, app, storage.ProductPrefix(slug), files, mimeTypes)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}

		product := models.Product{
			Name:            strings.TrimSpace(body.Name),
			Slug:            slug,
			Price:           body.Price,
			CategoryIds:     categoryIDs,
			Images:          productImages(stored, 0),
			Inventory:       models.Inventory{Quantity: body.Quantity, LowStockThreshold: body.LowStockThreshold},
			Materials:       body.Materials,
			Colors:          body.Colors,
			Description:     body.Description,
			DescriptionFull: body.DescriptionFull,
			Dimensions:      body.Dimensions,
			Weight:          body.Weight,
			IsTrending:      body.IsTrending,
			IsDisabled:      body.IsDisabled,
		}

		if err := app.Products.Create(ctx, &product); err != nil {
			cleanupObjects(ctx, app, stored)
			respondError(c, app.Logger, err)
			return
		}

		app.Logger.Info("product created",
			zap.String("product_id", product.Id.Hex()),
			zap.String("slug", product.Slug),
			zap.Int("images", len(product.Images)),
		)
		c.JSON(http.StatusCreated, product)
	}
}

// PATCH /admin/products/:id
func UpdateProduct(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		prodID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid product id")
			return
		}

		var body dto.UpdateProductDTO
		if err := bindData(c, &body); err != nil {
			badRequest(c, err.Error())
			return
		}

		product, err := app.Products.FindByID(ctx, prodID)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if product == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		// Only urls that belong to the product can be removed.
		urlsToDelete := utils.IntersectStrings(body.RemovedImagesUrls, product.ImageUrls())
		newFiles := formFiles(c, "images")

		maxImages := app.Config.Upload.MaxProductImages
		total := len(product.Images) - len(urlsToDelete) + len(newFiles)
		if total > maxImages {
			badRequest(c, fmt.Sprintf("Max %v images", maxImages))
			return
		}
		if total < 1 {
			badRequest(c, "a product needs at least one image")
			return
		}

		set := bson.M{}
		if body.Name != nil {
			set["name"] = strings.TrimSpace(*body.Name)
		}
		if body.Price != nil {
			set["price"] = *body.Price
		}
		if body.Quantity != nil {
			set["inventory.quantity"] = *body.Quantity
		}
		if body.LowStockThreshold != nil {
			set["inventory.lowStockThreshold"] = *body.LowStockThreshold
		}
		if body.Description != nil {
			set["description"] = *body.Description
		}
		if body.DescriptionFull != nil {
			set["descriptionFull"] = *body.DescriptionFull
		}
		if body.Materials != nil {
			set["materials"] = *body.Materials
		}
		if body.Colors != nil {
			set["colors"] = *body.Colors
		}
		if body.Dimensions != nil {
			set["dimensions"] = *body.Dimensions
		}
		if body.Weight != nil {
			set["weight"] = *body.Weight
		}
		if body.IsTrending != nil {
			set["isTrending"] = *body.IsTrending
		}
		if body.IsDisabled != nil {
			set["isDisabled"] = *body.IsDisabled
		}
		if body.CategoryIds != nil {
			ids, ok := resolveCategoryIDs(c, app, *body.CategoryIds)
			if !ok {
				return
			}
			set["categoryIds"] = ids
		}

		if len(set) == 0 && len(urlsToDelete) == 0 && len(newFiles) == 0 {
			badRequest(c, "no updates provided")
			return
		}

		var stored []storage.StoredObject
		if len(newFiles) > 0 {
			mimeTypes, err := app.Validator.ValidateAll(newFiles)
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			stored, err = uploadImages(ctx, app, storage.ProductPrefix(product.Slug), newFiles, mimeTypes)
			if err != nil {
				respondError(c, app.Logger, err)
				return
			}
		}

		removed := utils.ImagesByURL(product.Images, urlsToDelete)
		if len(removed) > 0 || len(stored) > 0 {
			set["images"] = utils.MergeImages(product.Images, urlsToDelete, productImages(stored, len(product.Images)))
		}

		// Database first. New uploads are rolled back if the write fails,
		// old objects are only removed once it succeeded.
		found, err := app.Products.Update(ctx, prodID, set)
		if err != nil {
			cleanupObjects(ctx, app, stored)
			respondError(c, app.Logger, err)
			return
		}
		if !found {
			cleanupObjects(ctx, app, stored)
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		names := make([]string, 0, len(removed))
		for _, img := range removed {
			names = append(names, img.ObjectName)
		}
		deleteObjects(ctx, app, names)

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// DELETE /admin/products/:id
//
// Products are soft deleted; images stay in place so the record can be
// restored.
func DeleteProduct(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		prodID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid product id")
			return
		}
		found, err := app.Products.SoftDelete(c.Request.Context(), prodID)
		if err != nil {
			respondError(c, app.Logger, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		app.Logger.Info("product deleted", zap.String("product_id", prodID.Hex()))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// resolveCategoryIDs parses ids and checks that every category exists. It
// writes the error response itself and returns ok=false on failure.
func resolveCategoryIDs(c *gin.Context, app *App, raw []string) ([]bson.ObjectID, bool) {
	ids, err := utils.StringsToObjectIDs(raw)
	if err != nil {
		badRequest(c, "invalid category id")
		return nil, false
	}
	for _, id := range ids {
		cat, err := app.Categories.FindCategoryByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, app.Logger, err)
			return nil, false
		}
		if cat == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category not found", "categoryId": id.Hex()})
			return nil, false
		}
	}
	return ids, true
}

func productImages(stored []storage.StoredObject, startOrder int) []models.ProductImage {
	imgs := make([]models.ProductImage, 0, len(stored))
	for i, o := range stored {
		imgs = append(imgs, models.ProductImage{
			Url:        o.URL,
			ObjectName: o.ObjectName,
			MimeType:   o.MimeType,
			SizeBytes:  o.SizeBytes,
			SortOrder:  startOrder + i,
		})
	}
	return imgs
}
