package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"yapper/database"
)

// FileDeletion is a durable "deletion due" record for an uploaded file
// whose chat message will have expired by DueAt. Persisting the schedule
// survives process restarts, unlike an in-process timer.
type FileDeletion struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	PublicID string             `bson:"publicId"`
	DueAt    time.Time          `bson:"dueAt"`
}

// Deletions persists the deletion queue swept by cleanup.Sweeper.
type Deletions struct {
	coll *mongo.Collection
}

func NewDeletions(db *mongo.Database) *Deletions {
	return &Deletions{coll: db.Collection(database.FileDeletionsCollection)}
}

// Schedule enqueues a file for deletion at dueAt.
func (s *Deletions) Schedule(ctx context.Context, publicID string, dueAt time.Time) error {
	_, err := s.coll.InsertOne(ctx, FileDeletion{
		ID:       primitive.NewObjectID(),
		PublicID: publicID,
		DueAt:    dueAt,
	})
	return translate(err)
}

// Due returns every record whose deadline has passed.
func (s *Deletions) Due(ctx context.Context, now time.Time) ([]FileDeletion, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"dueAt": bson.M{"$lte": now}})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []FileDeletion
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Remove drops a processed record.
func (s *Deletions) Remove(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return translate(err)
}
