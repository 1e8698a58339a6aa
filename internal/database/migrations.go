package database

import (
	"context"
	"fmt"

	"products-api/internal/schema"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TimestampField is the creation timestamp stored next to the schema fields
const TimestampField = "createdAt"

// EnsureCollection creates the collection with a validator derived from s,
// or updates the validator when the collection already exists, and creates
// the indexes.
func EnsureCollection(ctx context.Context, db *mongo.Database, name string, s schema.Schema, indexes []mongo.IndexModel, logger *zap.Logger) error {
	validator := bson.M{"$jsonSchema": JSONSchema(s)}

	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(names) == 0 {
		logger.Info("Creating collection", zap.String("collection", name))
		opts := options.CreateCollection().
			SetValidator(validator).
			SetValidationLevel("strict").
			SetValidationAction("error")
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	} else {
		logger.Info("Updating collection validator", zap.String("collection", name))
		cmd := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
			{Key: "validationLevel", Value: "strict"},
			{Key: "validationAction", Value: "error"},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update validator of %s: %w", name, err)
		}
	}

	if len(indexes) > 0 {
		created, err := db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		logger.Info("Indexes ensured", zap.String("collection", name), zap.Strings("indexes", created))
	}

	return nil
}

// JSONSchema translates s into a MongoDB $jsonSchema document
func JSONSchema(s schema.Schema) bson.M {
	properties := bson.M{
		TimestampField: bson.M{"bsonType": "date"},
	}
	required := bson.A{}

	for _, f := range s.Fields {
		prop := bson.M{}
		switch f.Type {
		case schema.String:
			prop["bsonType"] = "string"
			if f.MinLength != nil {
				prop["minLength"] = int64(f.MinLength.Limit)
			}
			if f.MaxLength != nil {
				prop["maxLength"] = int64(f.MaxLength.Limit)
			}
		case schema.Number:
			prop["bsonType"] = bson.A{"double", "int", "long", "decimal"}
			if f.Min != nil {
				prop["minimum"] = f.Min.Limit
			}
			if f.Max != nil {
				prop["maximum"] = f.Max.Limit
			}
		}
		properties[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}
	required = append(required, TimestampField)

	return bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": properties,
	}
}
