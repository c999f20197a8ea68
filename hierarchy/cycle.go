package hierarchy

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// WouldCreateCycle reports whether making proposedParentID the parent of
// categoryID would make categoryID its own ancestor.
//
// The walk starts at the proposed parent and follows parent references up to
// a root or a dangling reference. The visited set is seeded with categoryID, so
// the walk also stops on a graph that is already cyclic.
func (e *Engine) WouldCreateCycle(ctx context.Context, categoryID bson.ObjectID, proposedParentID *bson.ObjectID) (bool, error) {
	if proposedParentID == nil {
		return false, nil
	}
	if *proposedParentID == categoryID {
		return true, nil
	}

	visited := map[bson.ObjectID]struct{}{categoryID: {}}
	current := *proposedParentID
	for {
		if _, seen := visited[current]; seen {
			return true, nil
		}
		visited[current] = struct{}{}

		if err := ctx.Err(); err != nil {
			return false, err
		}
		cat, err := e.store.FindCategoryByID(ctx, current)
		if err != nil {
			return false, fmt.Errorf("load ancestor %s: %w", current.Hex(), err)
		}
		if cat == nil || cat.ParentId == nil {
			return false, nil
		}
		current = *cat.ParentId
	}
}

// AssignParent moves categoryID under newParentID (nil makes it a root). The
// cycle check and the write run in the same transaction.
func (e *Engine) AssignParent(ctx context.Context, categoryID bson.ObjectID, newParentID *bson.ObjectID) error {
	return e.AssignParentWith(ctx, categoryID, newParentID, nil)
}

// AssignParentWith is AssignParent followed by apply in the same transaction.
// An error from apply rolls the move back.
func (e *Engine) AssignParentWith(ctx context.Context, categoryID bson.ObjectID, newParentID *bson.ObjectID, apply func(ctx context.Context) error) error {
	return e.store.WithTransaction(ctx, func(ctx context.Context) error {
		cat, err := e.store.FindCategoryByID(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}
		if cat == nil {
			return ErrNotFound
		}
		if newParentID != nil {
			parent, err := e.store.FindCategoryByID(ctx, *newParentID)
			if err != nil {
				return fmt.Errorf("load parent: %w", err)
			}
			if parent == nil {
				return fmt.Errorf("parent %s: %w", newParentID.Hex(), ErrNotFound)
			}
		}

		cyclic, err := e.WouldCreateCycle(ctx, categoryID, newParentID)
		if err != nil {
			return err
		}
		if cyclic {
			return &CycleError{CategoryID: categoryID, ParentID: *newParentID}
		}

		if _, err := e.store.UpdateParent(ctx, categoryID, newParentID); err != nil {
			return fmt.Errorf("update parent: %w", err)
		}
		if apply != nil {
			if err := apply(ctx); err != nil {
				return err
			}
		}
		e.logger.Info("category reparented",
			zap.String("category_id", categoryID.Hex()),
			zap.Stringp("parent_id", hexPtr(newParentID)))
		return nil
	})
}

func hexPtr(id *bson.ObjectID) *string {
	if id == nil {
		return nil
	}
	s := id.Hex()
	return &s
}
