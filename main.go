package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/princinho/storefront/config"
	"github.com/princinho/storefront/controllers"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/hierarchy"
	"github.com/princinho/storefront/logger"
	"github.com/princinho/storefront/middleware"
	"github.com/princinho/storefront/storage"
	"github.com/princinho/storefront/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	cfg := config.LoadEnv()

	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.Connect(ctx, cfg.Mongo, appLogger)
	if err != nil {
		appLogger.Fatal("could not connect to mongodb", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			appLogger.Warn("mongodb disconnect failed", zap.Error(err))
		}
	}()
	db := client.Database(cfg.Mongo.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		appLogger.Fatal("could not create indexes", zap.Error(err))
	}

	categories := database.NewCategoryStore(client, db)
	products := database.NewProductStore(db)
	users := database.NewUserStore(db)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		hash, err := utils.HashPassword(cfg.Auth.AdminPassword)
		if err != nil {
			appLogger.Fatal("could not hash admin password", zap.Error(err))
		}
		created, err := users.SeedAdmin(ctx, cfg.Auth.AdminEmail, hash)
		if err != nil {
			appLogger.Fatal("could not seed admin", zap.Error(err))
		}
		if created {
			appLogger.Info("admin user seeded", zap.String("email", cfg.Auth.AdminEmail))
		}
	}

	images, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		appLogger.Fatal("could not initialise image storage", zap.Error(err), zap.String("provider", cfg.Storage.Provider))
	}

	app := &controllers.App{
		Config:     cfg,
		Logger:     appLogger,
		Categories: categories,
		Hierarchy:  hierarchy.NewEngine(categories, appLogger),
		Products:   products,
		Users:      users,
		Images:     images,
		Validator:  storage.NewFileValidator(cfg.Upload),
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())
	r.MaxMultipartMemory = int64(cfg.Upload.MaxSizeMB*cfg.Upload.MaxProductImages) << 20

	controllers.RegisterRoutes(r, app)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("starting http server", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.Server.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("server stopped")
}
