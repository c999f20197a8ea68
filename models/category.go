package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Category struct {
	Id          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string         `bson:"name" json:"name"`
	Slug        string         `bson:"slug" json:"slug"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	ImageUrl    string         `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	SortOrder   int            `bson:"sortOrder" json:"sortOrder"`
	ParentId    *bson.ObjectID `bson:"parentId" json:"parentId"` // nil for root categories
	IsActive    bool           `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// CategoryTreeNode is the response projection of a category. It is built per
// request and never stored.
type CategoryTreeNode struct {
	Category     `bson:",inline"`
	ProductCount int64              `bson:"productCount" json:"productCount"`
	Children     []CategoryTreeNode `bson:"-" json:"children,omitempty"`
}

// FlatCategoryNode is one entry of a pre-order flattened tree.
type FlatCategoryNode struct {
	Category     `bson:",inline"`
	ProductCount int64 `json:"productCount"`
	Depth        int   `json:"depth"`
}

// SameParent reports whether two optional parent references point at the same
// category. Two nil references are equal.
func SameParent(a, b *bson.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
