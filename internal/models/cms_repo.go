package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// CMSRepo reads and writes sections of the singleton CMS document by
// dotted path, e.g. "pages.home" or "footer".
type CMSRepo interface {
	GetSection(ctx context.Context, path string, out interface{}) (bool, error)
	SetSection(ctx context.Context, path string, value interface{}) error
	MergeFields(ctx context.Context, fields map[string]interface{}) error
}

func (mdb *MongodbRepo) GetSection(ctx context.Context, path string, out interface{}) (bool, error) {
	col, err := mdb.GetCollection(ctx, CMSColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.FindOne().SetProjection(bson.M{path: 1})
	var doc bson.Raw
	err = col.FindOne(ctx, bson.M{"_id": CMSDocID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error finding cms section %s: %w", path, err)
	}

	val, err := doc.LookupErr(strings.Split(path, ".")...)
	if errors.Is(err, bsoncore.ErrElementNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading cms section %s: %w", path, err)
	}
	if val.Type == bson.TypeNull || val.Type == bson.TypeUndefined {
		return false, nil
	}

	if val.Type != bson.TypeEmbeddedDocument {
		if err := val.Unmarshal(out); err != nil {
			return false, fmt.Errorf("error decoding cms section %s: %w", path, err)
		}
		return true, nil
	}

	// open-ended content must come back as plain maps, not bson.D
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(val.Value))
	if err != nil {
		return false, fmt.Errorf("error decoding cms section %s: %w", path, err)
	}
	dec.DefaultDocumentM()
	if err := dec.Decode(out); err != nil {
		return false, fmt.Errorf("error decoding cms section %s: %w", path, err)
	}
	return true, nil
}

func (mdb *MongodbRepo) SetSection(ctx context.Context, path string, value interface{}) error {
	return mdb.MergeFields(ctx, map[string]interface{}{path: value})
}

// MergeFields $sets each dotted path on the CMS document, creating the
// document when it does not exist yet.
func (mdb *MongodbRepo) MergeFields(ctx context.Context, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}
	col, err := mdb.GetCollection(ctx, CMSColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	_, err = col.UpdateOne(ctx,
		bson.M{"_id": CMSDocID},
		bson.M{"$set": bson.M(fields)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("error updating cms document: %w", err)
	}
	return nil
}
