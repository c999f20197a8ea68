// Package hierarchytest provides an in-memory hierarchy.Store for tests.
package hierarchytest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps categories and active product counts in maps.
// WithTransaction restores the previous state when fn fails.
type MemoryStore struct {
	mu             sync.Mutex
	categories     map[bson.ObjectID]models.Category
	activeProducts map[bson.ObjectID]int64
	order          []bson.ObjectID

	// Lookups counts FindCategoryByID calls.
	Lookups int
	// FailWith, when set, is returned by every store call.
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories:     map[bson.ObjectID]models.Category{},
		activeProducts: map[bson.ObjectID]int64{},
	}
}

// Add stores a category under a fresh id and returns it.
func (s *MemoryStore) Add(name string, parent *bson.ObjectID) bson.ObjectID {
	return s.Put(models.Category{Name: name, Slug: name, ParentId: parent})
}

// Put stores c as given, assigning an id when c has none.
func (s *MemoryStore) Put(c models.Category) bson.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	if _, exists := s.categories[c.Id]; !exists {
		s.order = append(s.order, c.Id)
	}
	s.categories[c.Id] = c
	return c.Id
}

func (s *MemoryStore) SetActiveProducts(id bson.ObjectID, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeProducts[id] = n
}

// Get returns a copy of the stored category.
func (s *MemoryStore) Get(id bson.ObjectID) (models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	return c, ok
}

// All returns every stored category in insertion order.
func (s *MemoryStore) All() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *MemoryStore) ActiveProducts(id bson.ObjectID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeProducts[id]
}

func (s *MemoryStore) FindCategoryByID(_ context.Context, id bson.ObjectID) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lookups++
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) FindChildren(_ context.Context, parentIDs ...bson.ObjectID) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var out []models.Category
	for _, id := range s.order {
		c, ok := s.categories[id]
		if ok && c.ParentId != nil && slices.Contains(parentIDs, *c.ParentId) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindPath(_ context.Context, id bson.ObjectID) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var path []models.Category
	seen := map[bson.ObjectID]struct{}{}
	cur, ok := s.categories[id]
	for ok {
		if _, loop := seen[cur.Id]; loop {
			break
		}
		seen[cur.Id] = struct{}{}
		path = append(path, cur)
		if cur.ParentId == nil {
			break
		}
		cur, ok = s.categories[*cur.ParentId]
	}
	slices.Reverse(path)
	return path, nil
}

func (s *MemoryStore) UpdateParent(_ context.Context, categoryID bson.ObjectID, newParentID *bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	c, ok := s.categories[categoryID]
	if !ok {
		return 0, nil
	}
	c.ParentId = copyID(newParentID)
	s.categories[categoryID] = c
	return 1, nil
}

func (s *MemoryStore) ReparentChildren(_ context.Context, fromParentID bson.ObjectID, toParentID *bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	var moved int64
	for id, c := range s.categories {
		if c.ParentId != nil && *c.ParentId == fromParentID {
			c.ParentId = copyID(toParentID)
			s.categories[id] = c
			moved++
		}
	}
	return moved, nil
}

func (s *MemoryStore) CountActiveProducts(_ context.Context, categoryID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	return s.activeProducts[categoryID], nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	if _, ok := s.categories[id]; !ok {
		return 0, nil
	}
	delete(s.categories, id)
	return 1, nil
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("nil transaction func")
	}
	s.mu.Lock()
	snapshot := make(map[bson.ObjectID]models.Category, len(s.categories))
	for k, v := range s.categories {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.categories = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyID(id *bson.ObjectID) *bson.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
