package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessageTTL is how long a chat message (and its attachment) lives.
// The store enforces it with a TTL index on createdAt.
const ChatMessageTTL = 48 * time.Hour

// Chat attachment kinds.
const (
	FileKindImage    = "image"
	FileKindVideo    = "video"
	FileKindDocument = "document"
)

// ChatFile describes an uploaded attachment on a chat message. PublicID is
// the object-store handle used when the file is deleted at expiry.
type ChatFile struct {
	URL      string `bson:"url" json:"url"`
	Type     string `bson:"type" json:"type"`
	PublicID string `bson:"publicId" json:"-"`
}

// ChatMessage is an ephemeral message in a community chat room. Author is
// nil when posted anonymously. CreatedAt drives the 48h TTL index.
type ChatMessage struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Community   primitive.ObjectID  `bson:"community" json:"community"`
	Author      *primitive.ObjectID `bson:"author,omitempty" json:"author,omitempty"`
	Content     string              `bson:"content" json:"content"`
	IsAnonymous bool                `bson:"isAnonymous" json:"isAnonymous"`
	ReplyTo     *primitive.ObjectID `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	File        *ChatFile           `bson:"file,omitempty" json:"file,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}
