package models

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a platform account. PasswordHash is nil for Google-authenticated
// accounts, which must carry a GoogleID instead.
type User struct {
	ID               primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	Username         string                `bson:"username" json:"username"`
	Email            string                `bson:"email" json:"email"`
	PasswordHash     *string               `bson:"passwordHash,omitempty" json:"-"`
	AuthProvider     string                `bson:"authProvider" json:"authProvider"`
	GoogleID         *string               `bson:"googleId,omitempty" json:"-"`
	ProfilePicture   string                `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	PushSubscription *webpush.Subscription `bson:"pushSubscription,omitempty" json:"-"`
	Communities      []primitive.ObjectID  `bson:"communities" json:"communities"`
	CreatedAt        int64                 `bson:"createdAt" json:"createdAt"`
}

// HasPushEndpoint reports whether the user can receive push notifications.
func (u *User) HasPushEndpoint() bool {
	return u.PushSubscription != nil && u.PushSubscription.Endpoint != ""
}
