package database

import (
	"context"
	"errors"
	"time"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"
)

type ProductStore struct {
	col *mongo.Collection
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{col: db.Collection(ProductsCollection)}
}

// ProductQuery describes a storefront listing. An empty CategoryIDs slice
// means no category filter.
type ProductQuery struct {
	CategoryIDs []bson.ObjectID
	IsTrending  *bool
	IsDisabled  *bool
	Sort        string
	Skip        int64
	Limit       int64
}

func buildProductFilter(q ProductQuery) bson.M {
	filter := bson.M{"deletedAt": nil, "isDisabled": false}
	if len(q.CategoryIDs) > 0 {
		filter["categoryIds"] = bson.M{"$in": q.CategoryIDs}
	}
	if q.IsTrending != nil {
		filter["isTrending"] = *q.IsTrending
	}
	if q.IsDisabled != nil {
		filter["isDisabled"] = *q.IsDisabled
	}
	return filter
}

func productSort(sort string) bson.D {
	switch sort {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}}
	case "newest":
		return bson.D{{Key: "createdAt", Value: -1}}
	case "oldest":
		return bson.D{{Key: "createdAt", Value: 1}}
	case "stock_asc":
		return bson.D{{Key: "inventory.quantity", Value: 1}}
	case "stock_desc":
		return bson.D{{Key: "inventory.quantity", Value: -1}}
	}
	return bson.D{{Key: "name", Value: 1}}
}

// FindPage loads one page of products and the total match count. The two
// reads run concurrently.
func (s *ProductStore) FindPage(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	filter := buildProductFilter(q)
	opts := options.Find().
		SetSkip(q.Skip).
		SetLimit(q.Limit).
		SetSort(productSort(q.Sort))

	var (
		items []models.Product
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := s.col.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(gctx)
		items = make([]models.Product, 0)
		return cursor.All(gctx, &items)
	})
	g.Go(func() error {
		var err error
		total, err = s.col.CountDocuments(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.Id.IsZero() {
		p.Id = bson.NewObjectID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, p)
	return err
}

// FindByID returns nil, nil for unknown or soft deleted products.
func (s *ProductStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id, "deletedAt": nil})
}

func (s *ProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"slug": slug, "deletedAt": nil, "isDisabled": false})
}

func (s *ProductStore) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	var p models.Product
	if err := s.col.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *ProductStore) Update(ctx context.Context, id bson.ObjectID, set bson.M) (bool, error) {
	set["updatedAt"] = time.Now().UTC()
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id, "deletedAt": nil}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// SoftDelete marks the product deleted. It stops counting as an active
// product of its categories.
func (s *ProductStore) SoftDelete(ctx context.Context, id bson.ObjectID) (bool, error) {
	now := time.Now().UTC()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "deletedAt": nil},
		bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
