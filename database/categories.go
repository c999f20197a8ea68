package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CategoryStore keeps categories in MongoDB. It backs both the admin CRUD
// handlers and the hierarchy engine.
type CategoryStore struct {
	client   *mongo.Client
	col      *mongo.Collection
	products *mongo.Collection
}

func NewCategoryStore(client *mongo.Client, db *mongo.Database) *CategoryStore {
	return &CategoryStore{
		client:   client,
		col:      db.Collection(CategoriesCollection),
		products: db.Collection(ProductsCollection),
	}
}

type CategoryListFilter struct {
	Query    string
	ParentID *bson.ObjectID
	RootOnly bool
	Skip     int64
	Limit    int64
}

func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, c)
	return err
}

func (s *CategoryStore) FindCategoryByID(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *CategoryStore) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	var cat models.Category
	if err := s.col.FindOne(ctx, filter).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (s *CategoryStore) List(ctx context.Context, f CategoryListFilter) ([]models.Category, int64, error) {
	filter := bson.M{}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	switch {
	case f.ParentID != nil:
		filter["parentId"] = *f.ParentID
	case f.RootOnly:
		filter["parentId"] = nil
	}

	opts := options.Find().
		SetSkip(f.Skip).
		SetLimit(f.Limit).
		SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})

	items, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAll loads every category; used to build the full tree.
func (s *CategoryStore) ListAll(ctx context.Context) ([]models.Category, error) {
	return s.find(ctx, bson.M{}, options.Find())
}

func (s *CategoryStore) FindChildren(ctx context.Context, parentIDs ...bson.ObjectID) ([]models.Category, error) {
	if len(parentIDs) == 0 {
		return []models.Category{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})
	return s.find(ctx, bson.M{"parentId": bson.M{"$in": parentIDs}}, opts)
}

func (s *CategoryStore) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Category, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Category, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type pathDoc struct {
	models.Category `bson:",inline"`
	Ancestors       []ancestorDoc `bson:"ancestors"`
}

type ancestorDoc struct {
	models.Category `bson:",inline"`
	Depth           int64 `bson:"depth"`
}

// FindPath resolves the ancestor chain in a single $graphLookup round trip.
// $graphLookup stops on documents it has already visited, so a corrupted
// cyclic chain still terminates.
func (s *CategoryStore) FindPath(ctx context.Context, id bson.ObjectID) ([]models.Category, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$graphLookup", Value: bson.M{
			"from":             CategoriesCollection,
			"startWith":        "$parentId",
			"connectFromField": "parentId",
			"connectToField":   "_id",
			"as":               "ancestors",
			"depthField":       "depth",
		}}},
	}
	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []pathDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []models.Category{}, nil
	}
	return orderPath(docs[0]), nil
}

// orderPath puts the furthest ancestor first and the category itself last.
// On a corrupted loop $graphLookup reports the category among its own
// ancestors; that entry is dropped so it appears only once.
func orderPath(doc pathDoc) []models.Category {
	ancestors := slices.DeleteFunc(slices.Clone(doc.Ancestors), func(a ancestorDoc) bool {
		return a.Category.Id == doc.Category.Id
	})
	slices.SortStableFunc(ancestors, func(a, b ancestorDoc) int {
		switch {
		case a.Depth > b.Depth:
			return -1
		case a.Depth < b.Depth:
			return 1
		}
		return 0
	})
	path := make([]models.Category, 0, len(ancestors)+1)
	for _, a := range ancestors {
		path = append(path, a.Category)
	}
	return append(path, doc.Category)
}

func (s *CategoryStore) Update(ctx context.Context, id bson.ObjectID, set bson.M) (bool, error) {
	set["updatedAt"] = time.Now().UTC()
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *CategoryStore) UpdateParent(ctx context.Context, categoryID bson.ObjectID, newParentID *bson.ObjectID) (int64, error) {
	res, err := s.col.UpdateByID(ctx, categoryID, bson.M{"$set": bson.M{
		"parentId":  newParentID,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *CategoryStore) ReparentChildren(ctx context.Context, fromParentID bson.ObjectID, toParentID *bson.ObjectID) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"parentId": fromParentID},
		bson.M{"$set": bson.M{"parentId": toParentID, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *CategoryStore) DeleteCategory(ctx context.Context, id bson.ObjectID) (int64, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *CategoryStore) CountActiveProducts(ctx context.Context, categoryID bson.ObjectID) (int64, error) {
	return s.products.CountDocuments(ctx, bson.M{"categoryIds": categoryID, "deletedAt": nil})
}

// ActiveProductCounts returns the number of active products per category.
// Categories without products are absent from the map.
func (s *CategoryStore) ActiveProductCounts(ctx context.Context) (map[bson.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"deletedAt": nil}}},
		{{Key: "$unwind", Value: "$categoryIds"}},
		{{Key: "$group", Value: bson.M{"_id": "$categoryIds", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.products.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate product counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    bson.ObjectID `bson:"_id"`
		Count int64         `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[bson.ObjectID]int64, len(rows))
	for _, r := range rows {
		counts[r.ID] = r.Count
	}
	return counts, nil
}

func (s *CategoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTransaction(ctx, s.client, fn)
}
