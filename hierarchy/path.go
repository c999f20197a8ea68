package hierarchy

import (
	"context"
	"fmt"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ResolvePath returns the breadcrumb for id: its furthest ancestor first, id
// itself last. An unknown id yields an empty path.
func (e *Engine) ResolvePath(ctx context.Context, id bson.ObjectID) ([]models.Category, error) {
	path, err := e.store.FindPath(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", id.Hex(), err)
	}
	if path == nil {
		return []models.Category{}, nil
	}
	return path, nil
}
