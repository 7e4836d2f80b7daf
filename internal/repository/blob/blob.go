// Package blob stores opaque encrypted file bodies outside the message
// collection. The server never inspects blob contents; they are ciphertext
// end to end.
package blob

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by Get for an unknown blob id. Delete never
// returns it: deleting a missing blob is not an error.
var ErrNotFound = errors.New("blob not found")

type (
	BlobRepo struct {
		collection *mongo.Collection
	}

	blobDoc struct {
		ID        string    `bson:"_id"`
		Data      []byte    `bson:"data"`
		CreatedAt time.Time `bson:"createdAt"`
	}
)

func NewBlobRepo(db *mongo.Database) *BlobRepo {
	return &BlobRepo{collection: db.Collection("blobs")}
}

func (r *BlobRepo) Put(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return errors.New("blob: empty id")
	}
	_, err := r.collection.InsertOne(ctx, blobDoc{
		ID:        id,
		Data:      data,
		CreatedAt: time.Now(),
	})
	return err
}

func (r *BlobRepo) Get(ctx context.Context, id string) ([]byte, error) {
	var doc blobDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (r *BlobRepo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete is idempotent: removing a blob that is already gone succeeds.
func (r *BlobRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
