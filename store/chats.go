package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yapper/database"
	"yapper/models"
)

// Chats persists ephemeral chat messages. Expiry is enforced by the TTL
// index on createdAt, not by application code.
type Chats struct {
	coll *mongo.Collection
}

func NewChats(db *mongo.Database) *Chats {
	return &Chats{coll: db.Collection(database.ChatMessagesCollection)}
}

func (s *Chats) Create(ctx context.Context, m *models.ChatMessage) error {
	_, err := s.coll.InsertOne(ctx, m)
	return translate(err)
}

func (s *Chats) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatMessage, error) {
	var m models.ChatMessage
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ListRecent returns up to limit messages for a community, oldest first.
func (s *Chats) ListRecent(ctx context.Context, communityID primitive.ObjectID, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.coll.Find(ctx, bson.M{"community": communityID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []models.ChatMessage
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	// Newest-first from the store; chronological for the client.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Chats) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
