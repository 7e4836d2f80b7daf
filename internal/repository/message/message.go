package message

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Teachmetech/ChatSeal/internal/model"
)

type (
	MessageRepo struct {
		collection *mongo.Collection
	}
)

func NewMessageRepo(ctx context.Context, db *mongo.Database) (*MessageRepo, error) {
	coll := db.Collection("messages")

	// Equality lookups by owning room, in insertion order.
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "sentAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}

	return &MessageRepo{collection: coll}, nil
}

func (r *MessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

// ListByRoom returns the room's messages ordered by insertion time
// ascending. An unknown room yields an empty slice, not an error.
func (r *MessageRepo) ListByRoom(ctx context.Context, roomID string) ([]*model.Message, error) {
	filter := bson.M{
		"roomId": roomID,
	}

	sort := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.collection.Find(ctx, filter, sort)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []*model.Message
	for cur.Next(ctx) {
		var msg model.Message
		if err := cur.Decode(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, cur.Err()
}

// Delete removes one message record. Deleting a missing message is a no-op.
func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
