package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Comment is attached to a post. Deletable by its author or by the admin
// of the owning community.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Post      primitive.ObjectID `bson:"post" json:"post"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
