package hierarchy

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type DeletionCheck struct {
	CanDelete     bool   `json:"canDelete"`
	ActiveCount   int64  `json:"activeProducts"`
	BlockedReason string `json:"reason,omitempty"`
}

type DeleteResult struct {
	Deleted       bool  `json:"deleted"`
	ChildrenMoved int64 `json:"childrenMoved"`
}

// CanDelete reports whether id has no active products left.
func (e *Engine) CanDelete(ctx context.Context, id bson.ObjectID) (DeletionCheck, error) {
	count, err := e.store.CountActiveProducts(ctx, id)
	if err != nil {
		return DeletionCheck{}, fmt.Errorf("count active products: %w", err)
	}
	if count > 0 {
		return DeletionCheck{ActiveCount: count, BlockedReason: blockedReason(count)}, nil
	}
	return DeletionCheck{CanDelete: true}, nil
}

// ReparentChildren moves every direct child of id under newParentID and
// returns how many moved.
func (e *Engine) ReparentChildren(ctx context.Context, id bson.ObjectID, newParentID *bson.ObjectID) (int64, error) {
	moved, err := e.store.ReparentChildren(ctx, id, newParentID)
	if err != nil {
		return 0, fmt.Errorf("reparent children of %s: %w", id.Hex(), err)
	}
	return moved, nil
}

// DeleteCategory removes id after handing its children to its own parent.
// The guard, the reparenting and the delete share one transaction, in that
// order. Deleting a category that does not exist is a no-op.
func (e *Engine) DeleteCategory(ctx context.Context, id bson.ObjectID) (DeleteResult, error) {
	var res DeleteResult
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		res = DeleteResult{}

		cat, err := e.store.FindCategoryByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}
		if cat == nil {
			return nil
		}

		check, err := e.CanDelete(ctx, id)
		if err != nil {
			return err
		}
		if !check.CanDelete {
			return &DeletionBlockedError{CategoryID: id, Count: check.ActiveCount}
		}

		moved, err := e.ReparentChildren(ctx, id, cat.ParentId)
		if err != nil {
			return err
		}
		deleted, err := e.store.DeleteCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}

		res = DeleteResult{Deleted: deleted > 0, ChildrenMoved: moved}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	if res.Deleted {
		e.logger.Info("category deleted",
			zap.String("category_id", id.Hex()),
			zap.Int64("children_moved", res.ChildrenMoved))
	}
	return res, nil
}
