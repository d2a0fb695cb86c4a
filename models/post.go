package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Post shape selectors.
const (
	PostTypeText  = "text"
	PostTypeMedia = "media"
)

// Media attachment kinds.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// Media is a single uploaded attachment on a post.
type Media struct {
	Type string `bson:"type" json:"type"`
	URL  string `bson:"url" json:"url"`
}

// Post belongs to a community. Author is nil when the post was created
// anonymously; anonymity is enforced by omitting the author link, not by
// the flag alone. Content is required exactly when no media is attached.
type Post struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Community   primitive.ObjectID   `bson:"community" json:"community"`
	Author      *primitive.ObjectID  `bson:"author,omitempty" json:"author,omitempty"`
	Title       string               `bson:"title" json:"title"`
	Content     string               `bson:"content,omitempty" json:"content,omitempty"`
	Media       []Media              `bson:"media,omitempty" json:"media,omitempty"`
	IsAnonymous bool                 `bson:"isAnonymous" json:"isAnonymous"`
	LikedBy     []primitive.ObjectID `bson:"likedBy" json:"likedBy"`
	DislikedBy  []primitive.ObjectID `bson:"dislikedBy" json:"dislikedBy"`
	Comments    []primitive.ObjectID `bson:"comments" json:"comments"`
	IsPinned    bool                 `bson:"isPinned" json:"isPinned"`
	CreatedAt   int64                `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64                `bson:"updatedAt" json:"updatedAt"`
}

// Reaction kinds for ToggleReaction.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// ToggleReaction computes the new likedBy/dislikedBy membership after user
// invokes the given reaction. Invoking a reaction the user already holds
// removes it; invoking the opposite one moves the user across. A user is
// never present in both sets.
func ToggleReaction(likedBy, dislikedBy []primitive.ObjectID, user primitive.ObjectID, kind string) (liked, disliked []primitive.ObjectID) {
	liked = withoutID(likedBy, user)
	disliked = withoutID(dislikedBy, user)

	switch kind {
	case ReactionLike:
		if len(liked) == len(likedBy) {
			liked = append(liked, user)
		}
	case ReactionDislike:
		if len(disliked) == len(dislikedBy) {
			disliked = append(disliked, user)
		}
	}
	return liked, disliked
}

func withoutID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
