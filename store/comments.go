package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"yapper/database"
	"yapper/models"
)

// Comments persists post comments.
type Comments struct {
	coll *mongo.Collection
}

func NewComments(db *mongo.Database) *Comments {
	return &Comments{coll: db.Collection(database.CommentsCollection)}
}

func (s *Comments) Create(ctx context.Context, c *models.Comment) error {
	_, err := s.coll.InsertOne(ctx, c)
	return translate(err)
}

func (s *Comments) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindByPost returns a post's comments in creation order.
func (s *Comments) FindByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"post": postID})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []models.Comment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Comments) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
