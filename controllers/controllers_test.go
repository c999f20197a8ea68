package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/config"
	"github.com/princinho/storefront/hierarchy"
	"github.com/princinho/storefront/hierarchy/hierarchytest"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/storage"
	"github.com/princinho/storefront/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const (
	testSecret        = "access-secret"
	testRefreshSecret = "refresh-secret"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type testEnv struct {
	router   *gin.Engine
	store    *hierarchytest.MemoryStore
	cats     *fakeCategories
	products *fakeProducts
	users    *fakeUsers
	images   *fakeImages
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        testSecret,
			JWTRefreshSecret: testRefreshSecret,
			AccessTTL:        time.Minute,
			RefreshTTL:       time.Hour,
		},
		Upload: config.UploadConfig{
			AllowedExtensions: []string{".png"},
			AllowedMimeTypes:  []string{"image/png"},
			MaxSizeMB:         1,
			MaxProductImages:  2,
		},
		Query: config.QueryConfig{DefaultLimit: 20, MaxLimit: 100},
	}

	store := hierarchytest.NewMemoryStore()
	env := &testEnv{
		store:    store,
		cats:     &fakeCategories{MemoryStore: store},
		products: newFakeProducts(),
		users:    newFakeUsers(),
		images:   &fakeImages{},
	}
	app := &App{
		Config:     cfg,
		Logger:     zap.NewNop(),
		Categories: env.cats,
		Hierarchy:  hierarchy.NewEngine(store, zap.NewNop()),
		Products:   env.products,
		Users:      env.users,
		Images:     env.images,
		Validator:  storage.NewFileValidator(cfg.Upload),
	}
	env.router = gin.New()
	RegisterRoutes(env.router, app)

	token, err := utils.GenerateAccessToken(testSecret, bson.NewObjectID().Hex(), "admin@shop.test", string(models.RoleAdmin), time.Minute)
	require.NoError(t, err)
	env.token = token
	return env
}

func (e *testEnv) category(name string, parent *bson.ObjectID) bson.ObjectID {
	return e.store.Put(models.Category{Name: name, Slug: utils.GenerateSlug(name), ParentId: parent, IsActive: true})
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.doAs(e.token, method, path, body, contentType, cookies...)
}

func (e *testEnv) doAs(token, method, path string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path string, payload any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	return e.do(method, path, bytes.NewReader(raw), "application/json")
}

type upload struct {
	field   string
	name    string
	content []byte
}

func multipartBody(t *testing.T, data any, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("data", string(raw)))
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == utils.RefreshCookieName {
			return ck
		}
	}
	return nil
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.doAs("", http.MethodPost, "/admin/categories", bytes.NewReader([]byte(`{"name":"Garden"}`)), "application/json")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.store.All())
}

func TestAddCategory_GeneratesSlug(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/admin/categories", gin.H{"name": "Garden Chairs"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "garden-chairs", body["slug"])
	assert.Equal(t, true, body["isActive"])
	assert.Nil(t, body["parentId"])
}

func TestAddCategory_DuplicateSlug(t *testing.T) {
	env := newTestEnv(t)
	env.category("Garden", nil)

	w := env.doJSON(http.MethodPost, "/admin/categories", gin.H{"name": "Garden"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slug", decode(t, w)["field"])
}

func TestAddCategory_UnknownParent(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/admin/categories", gin.H{"name": "Garden", "parentId": bson.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.store.All())
}

func TestAddCategory_WithImage(t *testing.T) {
	env := newTestEnv(t)
	parent := env.category("Outdoor", nil)

	body, ct := multipartBody(t, gin.H{"name": "Garden", "parentId": parent.Hex()},
		upload{field: "image", name: "garden.png", content: pngHeader})
	w := env.do(http.MethodPost, "/admin/categories", body, ct)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://cdn.test/categories/garden/0-garden.png", decode(t, w)["imageUrl"])
	assert.Len(t, env.images.uploaded, 1)
}

func TestAddCategory_RejectsNonImageUpload(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, gin.H{"name": "Garden"},
		upload{field: "image", name: "garden.png", content: []byte("not an image at all")})
	w := env.do(http.MethodPost, "/admin/categories", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.images.uploaded)
	assert.Empty(t, env.store.All())
}

func TestUpdateCategory_RejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.category("A", &root)
	b := env.category("B", &a)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+root.Hex(), gin.H{"parentId": b.Hex()})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "category_cycle", decode(t, w)["code"])
	got, _ := env.store.Get(root)
	assert.Nil(t, got.ParentId)
}

func TestUpdateCategory_RejectsSelfParent(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+root.Hex(), gin.H{"parentId": root.Hex()})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateCategory_MovesToRoot(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.category("A", &root)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+a.Hex(), gin.H{"parentId": "", "name": "Renamed"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, _ := env.store.Get(a)
	assert.Nil(t, got.ParentId)
	assert.Equal(t, "Renamed", got.Name)
}

func TestUpdateCategory_InvalidImageLeavesParent(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.category("A", &root)

	body, ct := multipartBody(t, gin.H{"parentId": "", "name": "Renamed"},
		upload{field: "image", name: "a.png", content: []byte("plain text, not a png")})
	w := env.do(http.MethodPatch, "/admin/categories/"+a.Hex(), body, ct)

	require.Equal(t, http.StatusBadRequest, w.Code)
	got, _ := env.store.Get(a)
	require.NotNil(t, got.ParentId)
	assert.Equal(t, root, *got.ParentId)
	assert.Equal(t, "A", got.Name)
	assert.Empty(t, env.images.uploaded)
}

func TestUpdateCategory_FailedWriteRollsBackMove(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.category("A", &root)
	env.cats.updateErr = errors.New("write conflict")

	body, ct := multipartBody(t, gin.H{"parentId": "", "name": "Renamed"},
		upload{field: "image", name: "a.png", content: pngHeader})
	w := env.do(http.MethodPatch, "/admin/categories/"+a.Hex(), body, ct)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	got, _ := env.store.Get(a)
	require.NotNil(t, got.ParentId)
	assert.Equal(t, root, *got.ParentId)
	assert.Equal(t, env.images.uploaded, env.images.deleted)
}

func TestUpdateCategory_MoveWithImage(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.store.Put(models.Category{Name: "A", Slug: "a", ParentId: &root, IsActive: true, ImageUrl: "https://cdn.test/categories/a/old.png"})

	body, ct := multipartBody(t, gin.H{"parentId": ""},
		upload{field: "image", name: "new.png", content: pngHeader})
	w := env.do(http.MethodPatch, "/admin/categories/"+a.Hex(), body, ct)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, _ := env.store.Get(a)
	assert.Nil(t, got.ParentId)
	assert.Equal(t, "https://cdn.test/categories/a/0-new.png", got.ImageUrl)
	assert.Equal(t, []string{"categories/a/old.png"}, env.images.deleted)
}

func TestUpdateCategory_RejectsSlugChange(t *testing.T) {
	env := newTestEnv(t)
	id := env.category("Garden", nil)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+id.Hex(), gin.H{"slug": "yard"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	got, _ := env.store.Get(id)
	assert.Equal(t, "garden", got.Slug)
}

func TestUpdateCategory_UnknownParent(t *testing.T) {
	env := newTestEnv(t)
	id := env.category("Garden", nil)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+id.Hex(), gin.H{"parentId": bson.NewObjectID().Hex()})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCategory_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPatch, "/admin/categories/"+bson.NewObjectID().Hex(), gin.H{"name": "Garden"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCategory_BlockedByActiveProducts(t *testing.T) {
	env := newTestEnv(t)
	id := env.category("Garden", nil)
	env.store.SetActiveProducts(id, 3)

	w := env.do(http.MethodDelete, "/admin/categories/"+id.Hex(), nil, "")

	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "category_has_products", body["code"])
	assert.EqualValues(t, 3, body["activeProducts"])
	assert.Contains(t, body["error"], "3 active products")
	_, exists := env.store.Get(id)
	assert.True(t, exists)
}

func TestDeleteCategory_SplicesChildren(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	mid := env.category("Mid", &root)
	c1 := env.category("C1", &mid)
	c2 := env.category("C2", &mid)

	w := env.do(http.MethodDelete, "/admin/categories/"+mid.Hex(), nil, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["childrenMoved"])
	for _, id := range []bson.ObjectID{c1, c2} {
		got, _ := env.store.Get(id)
		require.NotNil(t, got.ParentId)
		assert.Equal(t, root, *got.ParentId)
	}
	_, exists := env.store.Get(mid)
	assert.False(t, exists)
}

func TestDeleteCategory_RemovesImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Put(models.Category{Name: "Garden", Slug: "garden", ImageUrl: "https://cdn.test/categories/garden/1.png"})

	w := env.do(http.MethodDelete, "/admin/categories/"+id.Hex(), nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"categories/garden/1.png"}, env.images.deleted)
}

func TestDeleteCategory_Missing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodDelete, "/admin/categories/"+bson.NewObjectID().Hex(), nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCanDeleteCategory(t *testing.T) {
	env := newTestEnv(t)
	id := env.category("Garden", nil)
	env.store.SetActiveProducts(id, 1)

	w := env.do(http.MethodGet, "/admin/categories/"+id.Hex()+"/can-delete", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["canDelete"])
	assert.EqualValues(t, 1, body["activeProducts"])
	assert.Equal(t, "category has 1 active product; move or archive it first", body["reason"])
}

func TestGetCategoryPath(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Root", nil)
	a := env.category("A", &root)
	b := env.category("B", &a)

	w := env.do(http.MethodGet, "/categories/"+b.Hex()+"/path", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []models.Category `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	names := make([]string, 0, len(body.Items))
	for _, c := range body.Items {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Root", "A", "B"}, names)
}

func TestGetCategory_BySlugAndID(t *testing.T) {
	env := newTestEnv(t)
	id := env.category("Garden", nil)

	w := env.do(http.MethodGet, "/categories/slug/garden", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.Hex(), decode(t, w)["id"])

	w = env.do(http.MethodGet, "/categories/"+id.Hex(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "garden", decode(t, w)["slug"])

	w = env.do(http.MethodGet, "/categories/slug/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type treeJSON struct {
	Name         string     `json:"name"`
	ProductCount int64      `json:"productCount"`
	Depth        int        `json:"depth"`
	Children     []treeJSON `json:"children"`
}

func treeNames(nodes []treeJSON) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestGetCategoryTree_HidesInactiveSubtrees(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Furniture", nil)
	env.category("Zeta", &root)
	alpha := env.store.Put(models.Category{Name: "Alpha", Slug: "alpha", ParentId: &root})
	env.category("Leaf", &alpha)
	env.store.SetActiveProducts(root, 5)

	w := env.do(http.MethodGet, "/categories/tree", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var public struct {
		Items []treeJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	require.Len(t, public.Items, 1)
	assert.EqualValues(t, 5, public.Items[0].ProductCount)
	assert.Equal(t, []string{"Zeta"}, treeNames(public.Items[0].Children))

	w = env.do(http.MethodGet, "/admin/categories/tree", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var admin struct {
		Items []treeJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &admin))
	require.Len(t, admin.Items, 1)
	assert.Equal(t, []string{"Alpha", "Zeta"}, treeNames(admin.Items[0].Children))
	assert.Equal(t, []string{"Leaf"}, treeNames(admin.Items[0].Children[0].Children))
}

func TestGetCategoryTree_Flat(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Furniture", nil)
	chairs := env.category("Chairs", &root)
	env.category("Office", &chairs)
	env.category("Tables", &root)

	w := env.do(http.MethodGet, "/categories/tree?flat=true", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []treeJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Furniture", "Chairs", "Office", "Tables"}, treeNames(body.Items))
	depths := make([]int, 0, len(body.Items))
	for _, n := range body.Items {
		depths = append(depths, n.Depth)
	}
	assert.Equal(t, []int{0, 1, 2, 1}, depths)
}

func TestGetCategoryTree_FromRoot(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Furniture", nil)
	chairs := env.category("Chairs", &root)
	env.category("Office", &chairs)

	w := env.do(http.MethodGet, "/categories/tree?rootId="+root.Hex(), nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []treeJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Chairs"}, treeNames(body.Items))
}

func TestGetCategories_RootFilter(t *testing.T) {
	env := newTestEnv(t)
	root := env.category("Furniture", nil)
	env.category("Chairs", &root)

	w := env.do(http.MethodGet, "/categories?parentId=root", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = env.do(http.MethodGet, "/categories?parentId=nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProducts_IncludeDescendants(t *testing.T) {
	env := newTestEnv(t)
	furniture := env.category("Furniture", nil)
	chairs := env.category("Chairs", &furniture)
	office := env.category("Office", &chairs)

	w := env.do(http.MethodGet, "/products?category=furniture&includeDescendants=true", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []bson.ObjectID{furniture, chairs, office}, env.products.lastQuery.CategoryIDs)

	w = env.do(http.MethodGet, "/products?category=furniture&sort=price_asc&limit=500", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bson.ObjectID{furniture}, env.products.lastQuery.CategoryIDs)
	assert.Equal(t, "price_asc", env.products.lastQuery.Sort)
	assert.EqualValues(t, 100, env.products.lastQuery.Limit)
}

func TestGetProducts_UnknownCategoryIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/products?category=missing", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])
	assert.Nil(t, env.products.lastQuery.CategoryIDs)
}

func productData(categoryID bson.ObjectID) gin.H {
	return gin.H{
		"name":        "Oak Table",
		"price":       120.5,
		"quantity":    3,
		"categoryIds": []string{categoryID.Hex()},
	}
}

func TestAddProduct_UploadsImages(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category("Tables", nil)

	body, ct := multipartBody(t, productData(cat), upload{field: "images", name: "a.png", content: pngHeader})
	w := env.do(http.MethodPost, "/admin/products", body, ct)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "oak-table", p.Slug)
	assert.Equal(t, 3, p.Inventory.Quantity)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "image/png", p.Images[0].MimeType)
	assert.Equal(t, []string{"products/oak-table/0-a.png"}, env.images.uploaded)
}

func TestAddProduct_UnknownCategoryUploadsNothing(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, productData(bson.NewObjectID()), upload{field: "images", name: "a.png", content: pngHeader})
	w := env.do(http.MethodPost, "/admin/products", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.images.uploaded)
}

func TestAddProduct_TooManyImages(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category("Tables", nil)

	body, ct := multipartBody(t, productData(cat),
		upload{field: "images", name: "a.png", content: pngHeader},
		upload{field: "images", name: "b.png", content: pngHeader},
		upload{field: "images", name: "c.png", content: pngHeader},
	)
	w := env.do(http.MethodPost, "/admin/products", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Max 2 images")
}

func TestAddProduct_UploadFailureCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.images.failOn = 2
	cat := env.category("Tables", nil)

	body, ct := multipartBody(t, productData(cat),
		upload{field: "images", name: "a.png", content: pngHeader},
		upload{field: "images", name: "b.png", content: pngHeader},
	)
	w := env.do(http.MethodPost, "/admin/products", body, ct)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, env.images.uploaded, env.images.deleted)
}

func TestAddProduct_ValidatesData(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, gin.H{"name": "Oak Table", "price": 10}, upload{field: "images", name: "a.png", content: pngHeader})
	w := env.do(http.MethodPost, "/admin/products", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.images.uploaded)
}

func seedProduct(env *testEnv, cat bson.ObjectID) models.Product {
	p := models.Product{
		Name:        "Oak Table",
		Slug:        "oak-table",
		Price:       100,
		CategoryIds: []bson.ObjectID{cat},
		Images: []models.ProductImage{
			{Url: "https://cdn.test/products/oak-table/old0.png", ObjectName: "products/oak-table/old0.png", SortOrder: 0},
			{Url: "https://cdn.test/products/oak-table/old1.png", ObjectName: "products/oak-table/old1.png", SortOrder: 1},
		},
	}
	_ = env.products.Create(context.Background(), &p)
	return p
}

func TestUpdateProduct_ReplacesImages(t *testing.T) {
	env := newTestEnv(t)
	p := seedProduct(env, env.category("Tables", nil))

	body, ct := multipartBody(t,
		gin.H{"removedImagesUrls": []string{p.Images[0].Url, "https://cdn.test/not-mine.png"}},
		upload{field: "images", name: "new.png", content: pngHeader},
	)
	w := env.do(http.MethodPatch, "/admin/products/"+p.Id.Hex(), body, ct)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := env.products.get(p.Id)
	require.Len(t, got.Images, 2)
	assert.Equal(t, p.Images[1].Url, got.Images[0].Url)
	assert.Equal(t, 0, got.Images[0].SortOrder)
	assert.Equal(t, "https://cdn.test/products/oak-table/0-new.png", got.Images[1].Url)
	assert.Equal(t, 1, got.Images[1].SortOrder)
	assert.Equal(t, []string{"products/oak-table/old0.png"}, env.images.deleted)
}

func TestUpdateProduct_ImageLimit(t *testing.T) {
	env := newTestEnv(t)
	p := seedProduct(env, env.category("Tables", nil))

	body, ct := multipartBody(t, gin.H{}, upload{field: "images", name: "new.png", content: pngHeader})
	w := env.do(http.MethodPatch, "/admin/products/"+p.Id.Hex(), body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.images.uploaded)
}

func TestUpdateProduct_Fields(t *testing.T) {
	env := newTestEnv(t)
	p := seedProduct(env, env.category("Tables", nil))
	other := env.category("Desks", nil)

	w := env.doJSON(http.MethodPatch, "/admin/products/"+p.Id.Hex(), gin.H{"name": "Walnut Table", "categoryIds": []string{other.Hex()}})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := env.products.get(p.Id)
	assert.Equal(t, "Walnut Table", got.Name)
	assert.Equal(t, []bson.ObjectID{other}, got.CategoryIds)
	assert.Len(t, got.Images, 2)
}

func TestDeleteProduct_SoftDeletes(t *testing.T) {
	env := newTestEnv(t)
	p := seedProduct(env, env.category("Tables", nil))

	w := env.do(http.MethodDelete, "/admin/products/"+p.Id.Hex(), nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, env.products.get(p.Id).DeletedAt)
	assert.Empty(t, env.images.deleted)

	w = env.do(http.MethodGet, "/products/slug/oak-table", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, "/admin/products/"+p.Id.Hex(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func seedUser(t *testing.T, env *testEnv, email, password string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := models.User{Email: email, PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, env.users.Create(context.Background(), &u))
	return u
}

func TestAuth_LoginRefreshLogout(t *testing.T) {
	env := newTestEnv(t)
	u := seedUser(t, env, "admin@shop.test", "correct-horse")

	w := env.doAs("", http.MethodPost, "/auth/login",
		bytes.NewReader([]byte(`{"email":"Admin@Shop.test","password":"correct-horse"}`)), "application/json")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["accessToken"])
	first := refreshCookie(w)
	require.NotNil(t, first)
	assert.True(t, first.HttpOnly)
	assert.Equal(t, 1, env.users.activeTokens(u.ID))
	loggedIn, _ := env.users.FindByID(context.Background(), u.ID)
	assert.NotNil(t, loggedIn.LastLoginAt)

	w = env.doAs("", http.MethodPost, "/auth/refresh", nil, "", first)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := refreshCookie(w)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, 1, env.users.activeTokens(u.ID))

	w = env.doAs("", http.MethodPost, "/auth/refresh", nil, "", first)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doAs("", http.MethodPost, "/auth/logout", nil, "", second)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.users.activeTokens(u.ID))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env, "admin@shop.test", "correct-horse")

	w := env.doAs("", http.MethodPost, "/auth/login",
		bytes.NewReader([]byte(`{"email":"admin@shop.test","password":"wrong"}`)), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doAs("", http.MethodPost, "/auth/login",
		bytes.NewReader([]byte(`{"email":"nobody@shop.test","password":"wrong"}`)), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_RejectsAccountWithoutRole(t *testing.T) {
	env := newTestEnv(t)
	hash, err := utils.HashPassword("correct-horse")
	require.NoError(t, err)
	u := models.User{Email: "legacy@shop.test", PasswordHash: hash, Role: "CUSTOMER", IsActive: true}
	require.NoError(t, env.users.Create(context.Background(), &u))

	w := env.doAs("", http.MethodPost, "/auth/login",
		bytes.NewReader([]byte(`{"email":"legacy@shop.test","password":"correct-horse"}`)), "application/json")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, env.users.activeTokens(u.ID))
	got, _ := env.users.FindByID(context.Background(), u.ID)
	assert.Nil(t, got.LastLoginAt)
}

func TestRefresh_MissingCookie(t *testing.T) {
	env := newTestEnv(t)

	w := env.doAs("", http.MethodPost, "/auth/refresh", nil, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangeMyPassword_RevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	u := seedUser(t, env, "admin@shop.test", "old-password")
	require.NoError(t, env.users.InsertRefreshToken(context.Background(), &models.RefreshToken{
		UserID:    u.ID,
		TokenHash: "abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	token, err := utils.GenerateAccessToken(testSecret, u.ID.Hex(), u.Email, string(u.Role), time.Minute)
	require.NoError(t, err)

	raw, _ := json.Marshal(gin.H{"currentPassword": "old-password", "newPassword": "new-password-1"})
	w := env.doAs(token, http.MethodPost, "/admin/users/me/password", bytes.NewReader(raw), "application/json")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, env.users.activeTokens(u.ID))
	got, _ := env.users.FindByID(context.Background(), u.ID)
	assert.NoError(t, utils.CheckPassword(got.PasswordHash, "new-password-1"))
}

func TestChangeMyPassword_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	u := seedUser(t, env, "admin@shop.test", "old-password")
	token, err := utils.GenerateAccessToken(testSecret, u.ID.Hex(), u.Email, string(u.Role), time.Minute)
	require.NoError(t, err)

	raw, _ := json.Marshal(gin.H{"currentPassword": "guess", "newPassword": "new-password-1"})
	w := env.doAs(token, http.MethodPost, "/admin/users/me/password", bytes.NewReader(raw), "application/json")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/admin/users", gin.H{"email": "Staff@Shop.test", "password": "long-enough"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "staff@shop.test", body["email"])
	assert.NotContains(t, body, "passwordHash")

	w = env.doJSON(http.MethodPost, "/admin/users", gin.H{"email": "staff@shop.test", "password": "long-enough"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
