package hierarchy

import (
	"slices"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BuildTree nests a flat list of categories under parentID (nil for the
// roots). Nodes whose parent is not in the list are left out. Siblings are
// ordered by SortOrder, then by name.
func BuildTree(nodes []models.CategoryTreeNode, parentID *bson.ObjectID) []models.CategoryTreeNode {
	byParent := make(map[string][]models.CategoryTreeNode, len(nodes))
	for _, n := range nodes {
		k := parentKey(n.ParentId)
		byParent[k] = append(byParent[k], n)
	}

	col := collate.New(language.Und)
	expanded := make(map[bson.ObjectID]struct{}, len(nodes))

	var attach func(key string) []models.CategoryTreeNode
	attach = func(key string) []models.CategoryTreeNode {
		siblings := byParent[key]
		if len(siblings) == 0 {
			return nil
		}
		out := make([]models.CategoryTreeNode, 0, len(siblings))
		for _, n := range siblings {
			if _, done := expanded[n.Id]; done {
				continue
			}
			expanded[n.Id] = struct{}{}
			n.Children = attach(n.Id.Hex())
			out = append(out, n)
		}
		sortSiblings(col, out)
		return out
	}

	tree := attach(parentKey(parentID))
	if tree == nil {
		return []models.CategoryTreeNode{}
	}
	return tree
}

// FlattenTree lists a tree in pre-order: every node is followed by its whole
// subtree. Depth is 0 for the top level.
func FlattenTree(tree []models.CategoryTreeNode) []models.FlatCategoryNode {
	out := make([]models.FlatCategoryNode, 0, len(tree))
	var walk func(level []models.CategoryTreeNode, depth int)
	walk = func(level []models.CategoryTreeNode, depth int) {
		for _, n := range level {
			out = append(out, models.FlatCategoryNode{
				Category:     n.Category,
				ProductCount: n.ProductCount,
				Depth:        depth,
			})
			walk(n.Children, depth+1)
		}
	}
	walk(tree, 0)
	return out
}

func sortSiblings(col *collate.Collator, nodes []models.CategoryTreeNode) {
	slices.SortStableFunc(nodes, func(a, b models.CategoryTreeNode) int {
		if a.SortOrder != b.SortOrder {
			if a.SortOrder < b.SortOrder {
				return -1
			}
			return 1
		}
		return col.CompareString(a.Name, b.Name)
	})
}

func parentKey(id *bson.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
