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

// Communities persists community aggregates.
type Communities struct {
	coll *mongo.Collection
}

func NewCommunities(db *mongo.Database) *Communities {
	return &Communities{coll: db.Collection(database.CommunitiesCollection)}
}

func (s *Communities) Create(ctx context.Context, c *models.Community) error {
	_, err := s.coll.InsertOne(ctx, c)
	return translate(err)
}

func (s *Communities) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	var c models.Community
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Communities) FindByInviteCode(ctx context.Context, code string) (*models.Community, error) {
	var c models.Community
	if err := s.coll.FindOne(ctx, bson.M{"inviteCode": code}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// List returns every community, trimmed to its directory fields.
func (s *Communities) List(ctx context.Context) ([]models.Community, error) {
	opts := options.Find().SetProjection(bson.M{
		"name": 1, "description": 1, "profileImage": 1, "isPrivate": 1,
	})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []models.Community
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// ListByMember returns the communities userID belongs to.
func (s *Communities) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Community, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []models.Community
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Communities) AddMember(ctx context.Context, communityID, userID primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": communityID},
		bson.M{"$addToSet": bson.M{"members": userID}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendPost links a new post into the community's ordered post sequence.
func (s *Communities) AppendPost(ctx context.Context, communityID, postID primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": communityID},
		bson.M{"$push": bson.M{"posts": postID}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemovePost detaches a deleted post from the community.
func (s *Communities) RemovePost(ctx context.Context, communityID, postID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": communityID},
		bson.M{"$pull": bson.M{"posts": postID}},
	)
	return translate(err)
}

func (s *Communities) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Communities) inviteCodeTaken(ctx context.Context, code string) (bool, error) {
	err := s.coll.FindOne(ctx, bson.M{"inviteCode": code},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (s *Communities) setInviteCode(ctx context.Context, id primitive.ObjectID, code string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "inviteCode": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"inviteCode": code}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		// Either the community is gone or another request already set a
		// code; the caller re-reads to find out which.
		return ErrDuplicate
	}
	return nil
}
