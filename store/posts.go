package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"yapper/database"
	"yapper/models"
)

// Posts persists post aggregates.
type Posts struct {
	coll *mongo.Collection
}

func NewPosts(db *mongo.Database) *Posts {
	return &Posts{coll: db.Collection(database.PostsCollection)}
}

func (s *Posts) Create(ctx context.Context, p *models.Post) error {
	_, err := s.coll.InsertOne(ctx, p)
	return translate(err)
}

func (s *Posts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindByIDs returns the posts whose ids are listed, reordered to match
// the id sequence (the community's post ordering).
func (s *Posts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var found []models.Post
	if err := cursor.All(ctx, &found); err != nil {
		return nil, translate(err)
	}

	byID := make(map[primitive.ObjectID]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateContent replaces the title and body of a post.
func (s *Posts) UpdateContent(ctx context.Context, id primitive.ObjectID, title, content string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"title":     title,
			"content":   content,
			"updatedAt": time.Now().Unix(),
		}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReactions writes both reaction sets in one document update so the
// mutual-exclusion invariant cannot be observed half-applied.
func (s *Posts) SetReactions(ctx context.Context, id primitive.ObjectID, liked, disliked []primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"likedBy":    liked,
			"dislikedBy": disliked,
		}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Posts) AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": commentID}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Posts) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"comments": commentID}},
	)
	return translate(err)
}

func (s *Posts) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
