package store

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"yapper/database"
	"yapper/models"
)

// Users persists user accounts.
type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(database.UsersCollection)}
}

func (s *Users) Create(ctx context.Context, u *models.User) error {
	_, err := s.coll.InsertOne(ctx, u)
	return translate(err)
}

func (s *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByEmailOrUsername supports login with either identifier.
func (s *Users) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}}
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByIDs returns the users whose ids are listed, in store order.
func (s *Users) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *Users) AddCommunity(ctx context.Context, userID, communityID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"communities": communityID}},
	)
	return translate(err)
}

func (s *Users) SetPushSubscription(ctx context.Context, userID primitive.ObjectID, sub *webpush.Subscription) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"pushSubscription": sub}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearPushSubscription removes a permanently invalidated endpoint so
// future fan-outs skip this user.
func (s *Users) ClearPushSubscription(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$unset": bson.M{"pushSubscription": ""}},
	)
	return translate(err)
}

// LinkGoogle records the Google identity on an existing account.
func (s *Users) LinkGoogle(ctx context.Context, userID primitive.ObjectID, googleID, picture string) error {
	set := bson.M{"authProvider": "google", "googleId": googleID}
	if picture != "" {
		set["profilePicture"] = picture
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	return translate(err)
}
