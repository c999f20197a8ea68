package controllers

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"time"

	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/hierarchy/hierarchytest"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var duplicateKeyErr = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}

type fakeCategories struct {
	*hierarchytest.MemoryStore

	// updateErr, when set, is returned by Update.
	updateErr error
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) error {
	for _, existing := range f.All() {
		if existing.Slug == c.Slug {
			return duplicateKeyErr
		}
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	c.Id = f.Put(*c)
	return nil
}

func (f *fakeCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range f.All() {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) List(_ context.Context, filter database.CategoryListFilter) ([]models.Category, int64, error) {
	out := make([]models.Category, 0)
	for _, c := range f.All() {
		switch {
		case filter.RootOnly && c.ParentId != nil:
			continue
		case filter.ParentID != nil && !models.SameParent(filter.ParentID, c.ParentId):
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCategories) ListAll(_ context.Context) ([]models.Category, error) {
	return f.All(), nil
}

func (f *fakeCategories) Update(_ context.Context, id bson.ObjectID, set bson.M) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	c, ok := f.Get(id)
	if !ok {
		return false, nil
	}
	for k, v := range set {
		switch k {
		case "name":
			c.Name = v.(string)
		case "description":
			c.Description = v.(string)
		case "sortOrder":
			c.SortOrder = v.(int)
		case "isActive":
			c.IsActive = v.(bool)
		case "imageUrl":
			c.ImageUrl = v.(string)
		}
	}
	f.Put(c)
	return true, nil
}

func (f *fakeCategories) ActiveProductCounts(_ context.Context) (map[bson.ObjectID]int64, error) {
	out := map[bson.ObjectID]int64{}
	for _, c := range f.All() {
		if n := f.ActiveProducts(c.Id); n > 0 {
			out[c.Id] = n
		}
	}
	return out, nil
}

type fakeProducts struct {
	mu        sync.Mutex
	items     map[bson.ObjectID]models.Product
	lastQuery database.ProductQuery
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{items: map[bson.ObjectID]models.Product{}}
}

func (f *fakeProducts) FindPage(_ context.Context, q database.ProductQuery) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	out := make([]models.Product, 0)
	for _, p := range f.items {
		if p.DeletedAt != nil {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Slug == p.Slug {
			return duplicateKeyErr
		}
	}
	if p.Id.IsZero() {
		p.Id = bson.NewObjectID()
	}
	f.items[p.Id] = *p
	return nil
}

func (f *fakeProducts) FindByID(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProducts) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.Slug == slug && p.DeletedAt == nil && !p.IsDisabled {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) Update(_ context.Context, id bson.ObjectID, set bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	if v, ok := set["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := set["images"]; ok {
		p.Images = v.([]models.ProductImage)
	}
	if v, ok := set["categoryIds"]; ok {
		p.CategoryIds = v.([]bson.ObjectID)
	}
	f.items[id] = p
	return true, nil
}

func (f *fakeProducts) SoftDelete(_ context.Context, id bson.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	f.items[id] = p
	return true, nil
}

func (f *fakeProducts) get(id bson.ObjectID) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

type fakeUsers struct {
	mu     sync.Mutex
	users  map[bson.ObjectID]models.User
	tokens map[bson.ObjectID]models.RefreshToken
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:  map[bson.ObjectID]models.User{},
		tokens: map[bson.ObjectID]models.RefreshToken{},
	}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return duplicateKeyErr
		}
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id bson.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUsers) RecordLogin(_ context.Context, id bson.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.LastLoginAt = &at
	f.users[id] = u
	return nil
}

func (f *fakeUsers) InsertRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt.ID.IsZero() {
		rt.ID = bson.NewObjectID()
	}
	f.tokens[rt.ID] = *rt
	return nil
}

func (f *fakeUsers) FindActiveRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rt := range f.tokens {
		if rt.TokenHash == tokenHash && rt.RevokedAt == nil && rt.ExpiresAt.After(time.Now()) {
			return &rt, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) RotateRefreshToken(_ context.Context, id bson.ObjectID, replacedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt := f.tokens[id]
	now := time.Now().UTC()
	rt.RevokedAt = &now
	rt.ReplacedBy = &replacedBy
	f.tokens[id] = rt
	return nil
}

func (f *fakeUsers) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rt := range f.tokens {
		if rt.TokenHash == tokenHash && rt.RevokedAt == nil {
			now := time.Now().UTC()
			rt.RevokedAt = &now
			f.tokens[id] = rt
		}
	}
	return nil
}

func (f *fakeUsers) RevokeAllRefreshTokens(_ context.Context, userID bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rt := range f.tokens {
		if rt.UserID == userID && rt.RevokedAt == nil {
			now := time.Now().UTC()
			rt.RevokedAt = &now
			f.tokens[id] = rt
		}
	}
	return nil
}

func (f *fakeUsers) activeTokens(userID bson.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rt := range f.tokens {
		if rt.UserID == userID && rt.RevokedAt == nil {
			n++
		}
	}
	return n
}

type fakeImages struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   int // 1-based upload number that fails, 0 for never
}

func (f *fakeImages) Upload(_ context.Context, prefix string, fh *multipart.FileHeader, mimeType string) (storage.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && len(f.uploaded)+1 == f.failOn {
		return storage.StoredObject{}, fmt.Errorf("upload %s: bucket unavailable", fh.Filename)
	}
	name := fmt.Sprintf("%s/%d-%s", prefix, len(f.uploaded), fh.Filename)
	f.uploaded = append(f.uploaded, name)
	return storage.StoredObject{
		URL:        "https://cdn.test/" + name,
		ObjectName: name,
		MimeType:   mimeType,
		SizeBytes:  fh.Size,
	}, nil
}

func (f *fakeImages) Delete(_ context.Context, names ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, names...)
	return nil
}

func (f *fakeImages) ObjectName(publicURL string) (string, error) {
	const prefix = "https://cdn.test/"
	if len(publicURL) <= len(prefix) || publicURL[:len(prefix)] != prefix {
		return "", fmt.Errorf("not a cdn.test url: %s", publicURL)
	}
	return publicURL[len(prefix):], nil
}
