package hierarchy

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound        = errors.New("category not found")
	ErrCycle           = errors.New("parent assignment would create a cycle")
	ErrDeletionBlocked = errors.New("category deletion blocked")
)

// CycleError rejects a parent assignment. No state was changed.
type CycleError struct {
	CategoryID bson.ObjectID
	ParentID   bson.ObjectID
}

func (e *CycleError) Error() string {
	if e.CategoryID == e.ParentID {
		return "a category cannot be its own parent"
	}
	return fmt.Sprintf("category %s cannot be moved under %s: it would become its own ancestor",
		e.CategoryID.Hex(), e.ParentID.Hex())
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// DeletionBlockedError is returned when a category still has active products.
type DeletionBlockedError struct {
	CategoryID bson.ObjectID
	Count      int64
}

func (e *DeletionBlockedError) Error() string {
	return blockedReason(e.Count)
}

func (e *DeletionBlockedError) Is(target error) bool { return target == ErrDeletionBlocked }

func blockedReason(count int64) string {
	if count == 1 {
		return "category has 1 active product; move or archive it first"
	}
	return fmt.Sprintf("category has %d active products; move or archive them first", count)
}
