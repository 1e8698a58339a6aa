package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"products-api/internal/domain"
	"products-api/internal/repository"
	"products-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memoryProductRepository mimics the MongoDB repository semantics in memory
type memoryProductRepository struct {
	mu       sync.Mutex
	products []*domain.Product
	err      error
}

func (m *memoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	stored := *product
	m.products = append(m.products, &stored)
	return nil
}

func (m *memoryProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return m.ListFiltered(ctx, repository.ProductFilter{MinPrice: -1e308, MinRating: -1e308})
}

func (m *memoryProductRepository) ListFiltered(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.Price > filter.MinPrice && p.Rating > filter.MinRating {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memoryProductRepository) index(id string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return -1, repository.ErrInvalidID
	}
	for i, p := range m.products {
		if p.ID == oid {
			return i, nil
		}
	}
	return -1, repository.ErrProductNotFound
}

func (m *memoryProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return nil, err
	}
	c := *m.products[i]
	return &c, nil
}

func (m *memoryProductRepository) UpdateByID(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return nil, err
	}
	p := m.products[i]
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.Rating != nil {
		p.Rating = *update.Rating
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	c := *p
	return &c, nil
}

func (m *memoryProductRepository) DeleteByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return nil, err
	}
	p := m.products[i]
	m.products = append(m.products[:i], m.products[i+1:]...)
	return p, nil
}

func newTestRouter(repo repository.ProductRepository) http.Handler {
	r := chi.NewRouter()
	NewProductHandler(service.NewProductService(repo), zap.NewNop()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeProduct(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out["message"]
}

const phoneJSON = `{"title":"Phone1","price":15000,"rating":4,"description":"A decent budget phone"}`

func TestEndToEndScenario(t *testing.T) {
	h := newTestRouter(&memoryProductRepository{})

	// create
	w := do(t, h, "POST", "/products", phoneJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeProduct(t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	require.NotEmpty(t, created["createdAt"])

	// filtered list includes it
	w = do(t, h, "GET", "/products?price=10000&rating=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0]["id"])

	// partial update
	w = do(t, h, "PUT", "/products/"+id, `{"price":20000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeProduct(t, w)
	assert.Equal(t, 20000.0, updated["price"])
	assert.Equal(t, "Phone1", updated["title"])
	assert.Equal(t, 4.0, updated["rating"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])

	// delete returns the last known record
	w = do(t, h, "DELETE", "/products/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decodeProduct(t, w)
	assert.Equal(t, id, deleted["id"])
	assert.Equal(t, 20000.0, deleted["price"])

	// gone
	w = do(t, h, "GET", "/products/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"products not found"}`, w.Body.String())
}

func TestWelcome(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, WelcomeMessage, w.Body.String())
}

func TestCreate_ValidationErrorIsBadRequest(t *testing.T) {
	repo := &memoryProductRepository{}
	h := newTestRouter(repo)

	w := do(t, h, "POST", "/products", `{"title":"ab","price":15000,"rating":4,"description":"A decent budget phone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Products validation failed: title: minimum length of the product title should be three character", decodeMessage(t, w))
	assert.Empty(t, repo.products)
}

func TestCreate_LogsFailingFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	NewProductHandler(service.NewProductService(&memoryProductRepository{}), zap.New(core)).RegisterRoutes(r)

	w := do(t, r, "POST", "/products", `{"title":"ab","price":999,"rating":4,"description":"A decent budget phone"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	entries := logs.FilterMessage("Product validation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"title", "price"}, entries[0].ContextMap()["fields"])
}

func TestCreate_EmptyBodyReportsRequiredFields(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "POST", "/products", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t,
		"Products validation failed: title: product title is required, price: product price is required, "+
			"rating: Path `rating` is required., description: product description is required",
		decodeMessage(t, w))
}

func TestCreate_MalformedJSON(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "POST", "/products", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeMessage(t, w), "invalid request body")
}

func TestCreate_TrailingDataIsBadRequest(t *testing.T) {
	repo := &memoryProductRepository{}
	w := do(t, newTestRouter(repo), "POST", "/products", phoneJSON+" trailing-garbage")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeMessage(t, w), "invalid request body")
	assert.Empty(t, repo.products)
}

func TestCreate_BlankFormNumberIsRequired(t *testing.T) {
	form := url.Values{
		"title":       {"Phone2"},
		"price":       {""},
		"rating":      {"4"},
		"description": {"Form submitted phone"},
	}
	req := httptest.NewRequest("POST", "/products", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	repo := &memoryProductRepository{}
	newTestRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Products validation failed: price: product price is required", decodeMessage(t, w))
	assert.Empty(t, repo.products)
}

func TestCreate_FormBody(t *testing.T) {
	form := url.Values{
		"title":       {"  Phone2  "},
		"price":       {"12000"},
		"rating":      {"4.5"},
		"description": {"Form submitted phone"},
	}
	req := httptest.NewRequest("POST", "/products", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	newTestRouter(&memoryProductRepository{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decodeProduct(t, w)
	assert.Equal(t, "Phone2", p["title"])
	assert.Equal(t, 12000.0, p["price"])
	assert.Equal(t, 4.5, p["rating"])
}

func TestCreate_ClientSuppliedIDIsIgnored(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "POST", "/products",
		`{"id":"000000000000000000000001","createdAt":"2000-01-01T00:00:00Z","title":"Phone1","price":15000,"rating":4,"description":"A decent budget phone"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	p := decodeProduct(t, w)
	assert.NotEqual(t, "000000000000000000000001", p["id"])
	assert.NotEqual(t, "2000-01-01T00:00:00Z", p["createdAt"])
}

func TestCreate_StoreErrorIsInternal(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{err: errors.New("failed to create product: server selection timeout")}), "POST", "/products", phoneJSON)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to create product: server selection timeout", decodeMessage(t, w))
}

func TestList_EmptyIsOKWithArray(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "GET", "/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestList_FilterNeedsBothParams(t *testing.T) {
	repo := &memoryProductRepository{}
	h := newTestRouter(repo)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/products", phoneJSON).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/products", `{"title":"Cheap","price":2000,"rating":1,"description":"A cheap little phone"}`).Code)

	for _, path := range []string{"/products", "/products?price=10000", "/products?rating=3", "/products?price=&rating=3"} {
		w := do(t, h, "GET", path, "")
		require.Equal(t, http.StatusOK, w.Code)
		var listed []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		assert.Len(t, listed, 2, path)
	}

	w := do(t, h, "GET", "/products?price=2000&rating=0", "")
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Phone1", listed[0]["title"])
}

func TestList_NonNumericFilter(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "GET", "/products?price=cheap&rating=3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Cast to Number failed for value "cheap" at path "price"`, decodeMessage(t, w))
}

func TestGet_InvalidID(t *testing.T) {
	w := do(t, newTestRouter(&memoryProductRepository{}), "GET", "/products/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdate_NotFoundAndValidation(t *testing.T) {
	repo := &memoryProductRepository{}
	h := newTestRouter(repo)

	w := do(t, h, "PUT", "/products/"+primitive.NewObjectID().Hex(), `{"price":20000}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgProductNotUpdated, decodeMessage(t, w))

	created := decodeProduct(t, do(t, h, "POST", "/products", phoneJSON))
	w = do(t, h, "PUT", "/products/"+created["id"].(string), `{"price":50001}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Products validation failed: price: maximum require price should be 50000", decodeMessage(t, w))
}

func TestUpdate_OmittedAndNullFieldsAreUnchanged(t *testing.T) {
	h := newTestRouter(&memoryProductRepository{})
	created := decodeProduct(t, do(t, h, "POST", "/products", phoneJSON))
	id := created["id"].(string)

	w := do(t, h, "PUT", "/products/"+id, `{"title":"Phone2","rating":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeProduct(t, w)
	assert.Equal(t, "Phone2", updated["title"])
	assert.Equal(t, 4.0, updated["rating"])
	assert.Equal(t, created["description"], updated["description"])
	assert.Equal(t, created["id"], updated["id"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])

	w = do(t, h, "GET", "/products/"+id, "")
	assert.Equal(t, "Phone2", decodeProduct(t, w)["title"])
}

func TestDelete_SecondDeleteIsNotFound(t *testing.T) {
	h := newTestRouter(&memoryProductRepository{})
	id := decodeProduct(t, do(t, h, "POST", "/products", phoneJSON))["id"].(string)

	assert.Equal(t, http.StatusOK, do(t, h, "DELETE", "/products/"+id, "").Code)

	w := do(t, h, "DELETE", "/products/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgProductNotDeleted, decodeMessage(t, w))
}

// Any create violating the price bounds is rejected and nothing is persisted
func TestProperty_OutOfRangePriceIsNeverPersisted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid prices are rejected with 400", prop.ForAll(
		func(price float64) bool {
			repo := &memoryProductRepository{}
			h := newTestRouter(repo)

			body, _ := json.Marshal(map[string]interface{}{
				"title":       "Phone1",
				"price":       price,
				"rating":      4,
				"description": "A decent budget phone",
			})
			w := do(t, h, "POST", "/products", string(body))

			if price >= 1000 && price <= 50000 {
				return w.Code == http.StatusCreated && len(repo.products) == 1
			}
			return w.Code == http.StatusBadRequest && len(repo.products) == 0
		},
		gen.Float64Range(0, 60000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
