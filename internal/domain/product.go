package domain

import (
	"time"

	"products-api/internal/schema"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a product in the catalog
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Price       float64            `json:"price" bson:"price"`
	Rating      float64            `json:"rating" bson:"rating"`
	Description string             `json:"description" bson:"description"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// ProductUpdate holds the mutable fields of a product. Nil fields are left unchanged.
type ProductUpdate struct {
	Title       *string
	Price       *float64
	Rating      *float64
	Description *string
}

// IsEmpty reports whether the update changes nothing
func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Price == nil && u.Rating == nil && u.Description == nil
}

// ProductSchema declares the constraints every stored product satisfies
var ProductSchema = schema.Schema{
	Name: "Products",
	Fields: []schema.Field{
		{
			Name:            "title",
			Type:            schema.String,
			Required:        true,
			RequiredMessage: "product title is required",
			Trim:            true,
			MinLength:       &schema.Bound{Limit: 3, Message: "minimum length of the product title should be three character"},
			MaxLength:       &schema.Bound{Limit: 10, Message: "maximum length of the product title should be ten character"},
		},
		{
			Name:            "price",
			Type:            schema.Number,
			Required:        true,
			RequiredMessage: "product price is required",
			Min:             &schema.Bound{Limit: 1000, Message: "minimum require price should be 1000"},
			Max:             &schema.Bound{Limit: 50000, Message: "maximum require price should be 50000"},
		},
		{
			Name:     "rating",
			Type:     schema.Number,
			Required: true,
		},
		{
			Name:            "description",
			Type:            schema.String,
			Required:        true,
			RequiredMessage: "product description is required",
			MinLength:       &schema.Bound{Limit: 10, Message: "minimum length of the product description should be 10 character"},
			MaxLength:       &schema.Bound{Limit: 50, Message: "maximum length of the product description should be 50 character"},
		},
	},
}

// NewProduct builds a product from a document validated against ProductSchema
func NewProduct(doc schema.Document) *Product {
	p := &Product{}
	p.Title, _ = doc["title"].(string)
	p.Price, _ = doc["price"].(float64)
	p.Rating, _ = doc["rating"].(float64)
	p.Description, _ = doc["description"].(string)
	return p
}

// NewProductUpdate builds an update from a document validated in partial mode
func NewProductUpdate(doc schema.Document) ProductUpdate {
	var u ProductUpdate
	if v, ok := doc["title"].(string); ok {
		u.Title = &v
	}
	if v, ok := doc["price"].(float64); ok {
		u.Price = &v
	}
	if v, ok := doc["rating"].(float64); ok {
		u.Rating = &v
	}
	if v, ok := doc["description"].(string); ok {
		u.Description = &v
	}
	return u
}
