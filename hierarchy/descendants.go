package hierarchy

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CollectDescendants returns the ids of every category below id, nearest
// levels first. id itself is not included. Children are fetched one level per
// store call.
func (e *Engine) CollectDescendants(ctx context.Context, id bson.ObjectID) ([]bson.ObjectID, error) {
	visited := map[bson.ObjectID]struct{}{id: {}}
	out := []bson.ObjectID{}
	frontier := []bson.ObjectID{id}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		children, err := e.store.FindChildren(ctx, frontier...)
		if err != nil {
			return nil, fmt.Errorf("load children: %w", err)
		}

		next := make([]bson.ObjectID, 0, len(children))
		for _, c := range children {
			if _, seen := visited[c.Id]; seen {
				continue
			}
			visited[c.Id] = struct{}{}
			out = append(out, c.Id)
			next = append(next, c.Id)
		}
		frontier = next
	}
	return out, nil
}
