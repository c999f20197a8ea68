package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/middleware"
)

func RegisterRoutes(r *gin.Engine, app *App) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/login", Login(app))
		auth.POST("/refresh", Refresh(app))
		auth.POST("/logout", Logout(app))
	}

	r.GET("/categories", GetCategories(app))
	r.GET("/categories/tree", GetCategoryTree(app, false))
	r.GET("/categories/:id", GetCategory(app))
	r.GET("/categories/:id/path", GetCategoryPath(app))
	r.GET("/categories/slug/:slug", GetCategory(app))

	r.GET("/products", GetProducts(app))
	r.GET("/products/slug/:slug", GetProduct(app))

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(app.Config.Auth.JWTSecret), middleware.RequireAdmin())
	{
		admin.GET("/categories/tree", GetCategoryTree(app, true))
		admin.POST("/categories", AddCategory(app))
		admin.PATCH("/categories/:id", UpdateCategory(app))
		admin.DELETE("/categories/:id", DeleteCategory(app))
		admin.GET("/categories/:id/can-delete", CanDeleteCategory(app))

		admin.POST("/products", AddProduct(app))
		admin.PATCH("/products/:id", UpdateProduct(app))
		admin.DELETE("/products/:id", DeleteProduct(app))

		admin.POST("/users", CreateUser(app))
		admin.POST("/users/me/password", ChangeMyPassword(app))
	}
}
