package controllers

import (
	"context"
	"time"

	"github.com/princinho/storefront/config"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/hierarchy"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	FindCategoryByID(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, f database.CategoryListFilter) ([]models.Category, int64, error)
	ListAll(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.M) (bool, error)
	ActiveProductCounts(ctx context.Context) (map[bson.ObjectID]int64, error)
}

type ProductRepository interface {
	FindPage(ctx context.Context, q database.ProductQuery) ([]models.Product, int64, error)
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.M) (bool, error)
	SoftDelete(ctx context.Context, id bson.ObjectID) (bool, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error
	RecordLogin(ctx context.Context, id bson.ObjectID, at time.Time) error
	InsertRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	FindActiveRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, id bson.ObjectID, replacedBy string) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID bson.ObjectID) error
}

// App carries the dependencies shared by every handler.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Categories CategoryRepository
	Hierarchy  *hierarchy.Engine
	Products   ProductRepository
	Users      UserRepository
	Images     storage.ImageStore
	Validator  *storage.FileValidator
}
