package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"products-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidID       = errors.New("invalid product id")
)

// ProductFilter selects products whose price and rating are strictly greater than the bounds
type ProductFilter struct {
	MinPrice  float64
	MinRating float64
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	List(ctx context.Context) ([]*domain.Product, error)
	ListFiltered(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateByID(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error)
	DeleteByID(ctx context.Context, id string) (*domain.Product, error)
}

type productRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(coll *mongo.Collection) ProductRepository {
	return &productRepository{
		coll: coll,
		now:  time.Now,
	}
}

// ProductIndexes are the indexes the product collection needs for its queries
func ProductIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "price", Value: 1}, {Key: "rating", Value: 1}},
			Options: options.Index().SetName("price_rating"),
		},
	}
}

// Create inserts a new product. The store assigns its ID and creation time.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = primitive.NilObjectID
	// BSON dates carry millisecond precision
	product.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	res, err := r.coll.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("failed to create product: unexpected id type %T", res.InsertedID)
	}
	product.ID = id

	return nil
}

// List returns every product in natural order
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.find(ctx, bson.D{})
}

// ListFiltered returns products with price > MinPrice and rating > MinRating
func (r *productRepository) ListFiltered(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "price", Value: bson.D{{Key: "$gt", Value: filter.MinPrice}}}},
		bson.D{{Key: "rating", Value: bson.D{{Key: "$gt", Value: filter.MinRating}}}},
	}}}
	return r.find(ctx, query)
}

func (r *productRepository) find(ctx context.Context, query bson.D) ([]*domain.Product, error) {
	cursor, err := r.coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := []*domain.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

// FindByID retrieves a product by its hex ObjectID
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{}
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// UpdateByID sets the supplied fields and returns the updated product
func (r *productRepository) UpdateByID(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.D{}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *update.Price})
	}
	if update.Rating != nil {
		set = append(set, bson.E{Key: "rating", Value: *update.Rating})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	product := &domain.Product{}
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteByID removes a product and returns it as it was before deletion
func (r *productRepository) DeleteByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{}
	err = r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return product, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}
