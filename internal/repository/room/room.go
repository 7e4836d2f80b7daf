package room

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Teachmetech/ChatSeal/internal/model"
)

type (
	RoomRepo struct {
		collection *mongo.Collection
	}
)

func NewRoomRepo(ctx context.Context, db *mongo.Database) (*RoomRepo, error) {
	coll := db.Collection("rooms")

	// Range scans by expiry drive the reaper sweep.
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}

	return &RoomRepo{collection: coll}, nil
}

func (r *RoomRepo) Insert(ctx context.Context, room *model.Room) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

// Get returns (nil, nil) when the room does not exist. Expiry is not checked
// here; that is the service's job.
func (r *RoomRepo) Get(ctx context.Context, id string) (*model.Room, error) {
	filter := bson.M{
		"_id": id,
	}

	var room model.Room
	err := r.collection.FindOne(ctx, filter).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &room, nil
}

// Delete removes the room record. Deleting a missing room is a no-op.
func (r *RoomRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListExpired returns rooms with expiresAt before cutoff, oldest first.
func (r *RoomRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Room, error) {
	filter := bson.M{
		"expiresAt": bson.M{"$lt": cutoff},
	}

	cur, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "expiresAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rooms []*model.Room
	for cur.Next(ctx) {
		var room model.Room
		if err := cur.Decode(&room); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, cur.Err()
}
