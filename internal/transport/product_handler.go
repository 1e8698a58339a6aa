package transport

import (
	"errors"
	"net/http"

	"products-api/internal/middleware"
	"products-api/internal/repository"
	"products-api/internal/schema"
	"products-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Not-found messages per operation
const (
	MsgProductNotFound   = "products not found"
	MsgProductNotUpdated = "products not updated this id"
	MsgProductNotDeleted = "products not deleted this id"
)

// WelcomeMessage is served at the root path
const WelcomeMessage = "welcome to home page"

// FilterError reports a list threshold that is not numeric
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return schema.CastMessage(schema.Number, e.Value, e.Param)
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the welcome route and all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Welcome)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Welcome handles GET /
func (h *ProductHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithText(w, http.StatusOK, WelcomeMessage)
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := middleware.DecodeDocument(w, r)
	if err != nil {
		h.respondWithError(w, r, err, "")
		return
	}

	product, err := h.productService.Create(r.Context(), doc)
	if err != nil {
		h.respondWithError(w, r, err, "")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// List handles GET /products, filtered when both price and rating are given
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.respondWithError(w, r, err, "")
		return
	}

	products, err := h.productService.List(r.Context(), filter)
	if err != nil {
		h.respondWithError(w, r, err, "")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, r, err, MsgProductNotFound)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles PUT /products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	doc, err := middleware.DecodeDocument(w, r)
	if err != nil {
		h.respondWithError(w, r, err, MsgProductNotUpdated)
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), doc)
	if err != nil {
		h.respondWithError(w, r, err, MsgProductNotUpdated)
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", product.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, r, err, MsgProductNotDeleted)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", product.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// respondWithError maps service errors to status codes. Client input errors are 400,
// a missing product is 404 with notFoundMessage, anything else is a store failure.
func (h *ProductHandler) respondWithError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	var (
		validationErr *schema.ValidationError
		filterErr     *FilterError
	)

	switch {
	case errors.As(err, &validationErr):
		h.logger.Debug("Product validation failed", zap.Strings("fields", validationErr.Fields()))
		middleware.RespondWithError(w, http.StatusBadRequest, validationErr.Error())

	case errors.Is(err, middleware.ErrInvalidBody),
		errors.Is(err, repository.ErrInvalidID),
		errors.As(err, &filterErr):
		h.logger.Debug("Invalid product request", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, notFoundMessage)

	default:
		h.logger.Error("Product store operation failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseFilter returns nil unless both thresholds are supplied
func parseFilter(r *http.Request) (*repository.ProductFilter, error) {
	query := r.URL.Query()
	price, rating := query.Get("price"), query.Get("rating")
	if price == "" || rating == "" {
		return nil, nil
	}

	minPrice, err := schema.ParseNumber(price)
	if err != nil {
		return nil, &FilterError{Param: "price", Value: price}
	}
	minRating, err := schema.ParseNumber(rating)
	if err != nil {
		return nil, &FilterError{Param: "rating", Value: rating}
	}

	return &repository.ProductFilter{MinPrice: minPrice, MinRating: minRating}, nil
}
