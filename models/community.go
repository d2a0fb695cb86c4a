package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Community groups members around a shared feed of posts. The creator is
// also the admin and the first member. InviteCode is generated lazily and
// is unique across all communities.
type Community struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Description  string               `bson:"description" json:"description"`
	ProfileImage string               `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	BannerImage  string               `bson:"bannerImage,omitempty" json:"bannerImage,omitempty"`
	Creator      primitive.ObjectID   `bson:"creator" json:"creator"`
	Admin        primitive.ObjectID   `bson:"admin" json:"admin"`
	Members      []primitive.ObjectID `bson:"members" json:"members"`
	Posts        []primitive.ObjectID `bson:"posts" json:"posts"`
	IsPrivate    bool                 `bson:"isPrivate" json:"isPrivate"`
	InviteCode   string               `bson:"inviteCode,omitempty" json:"inviteCode,omitempty"`
	CreatedAt    int64                `bson:"createdAt" json:"createdAt"`
	UpdatedAt    int64                `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports whether userID is in the member set.
func (cm *Community) HasMember(userID primitive.ObjectID) bool {
	for _, m := range cm.Members {
		if m == userID {
			return true
		}
	}
	return false
}
