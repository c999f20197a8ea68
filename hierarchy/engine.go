// Package hierarchy maintains the category parent/child graph: cycle checks
// before parent changes, tree building for responses, breadcrumb paths, and
// safe deletion that splices a category out of its chain.
//
// Every call re-reads what it needs from the Store. Nothing is cached between
// calls.
package hierarchy

import (
	"context"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// Store is the persistence boundary the engine reads and writes through.
type Store interface {
	// FindCategoryByID returns nil, nil when the category does not exist.
	FindCategoryByID(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	// FindChildren returns the direct children of any of the given parents.
	FindChildren(ctx context.Context, parentIDs ...bson.ObjectID) ([]models.Category, error)
	// FindPath returns the ancestors of id and id itself, root first.
	FindPath(ctx context.Context, id bson.ObjectID) ([]models.Category, error)
	UpdateParent(ctx context.Context, categoryID bson.ObjectID, newParentID *bson.ObjectID) (int64, error)
	ReparentChildren(ctx context.Context, fromParentID bson.ObjectID, toParentID *bson.ObjectID) (int64, error)
	CountActiveProducts(ctx context.Context, categoryID bson.ObjectID) (int64, error)
	DeleteCategory(ctx context.Context, id bson.ObjectID) (int64, error)
	// WithTransaction runs fn so that all of its writes commit or none do.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Engine struct {
	store  Store
	logger *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger.Named("hierarchy")}
}
