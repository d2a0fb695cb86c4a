package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToggleReactionAddsLike(t *testing.T) {
	user := primitive.NewObjectID()

	liked, disliked := ToggleReaction(nil, nil, user, ReactionLike)

	assert.Equal(t, []primitive.ObjectID{user}, liked)
	assert.Empty(t, disliked)
}

func TestToggleReactionRemovesExistingLike(t *testing.T) {
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()

	liked, disliked := ToggleReaction([]primitive.ObjectID{other, user}, nil, user, ReactionLike)

	assert.Equal(t, []primitive.ObjectID{other}, liked)
	assert.Empty(t, disliked)
}

func TestToggleReactionMovesAcrossSets(t *testing.T) {
	user := primitive.NewObjectID()

	liked, disliked := ToggleReaction([]primitive.ObjectID{user}, nil, user, ReactionDislike)

	assert.Empty(t, liked)
	assert.Equal(t, []primitive.ObjectID{user}, disliked)

	liked, disliked = ToggleReaction(liked, disliked, user, ReactionLike)

	assert.Equal(t, []primitive.ObjectID{user}, liked)
	assert.Empty(t, disliked)
}

func TestToggleReactionNeverInBothSets(t *testing.T) {
	user := primitive.NewObjectID()
	liked := []primitive.ObjectID{user}
	disliked := []primitive.ObjectID{}

	for _, kind := range []string{ReactionDislike, ReactionDislike, ReactionLike, ReactionDislike} {
		liked, disliked = ToggleReaction(liked, disliked, user, kind)

		inLiked := contains(liked, user)
		inDisliked := contains(disliked, user)
		assert.False(t, inLiked && inDisliked)
	}
}

func TestToggleReactionPairIsIdentity(t *testing.T) {
	user := primitive.NewObjectID()
	bystander := primitive.NewObjectID()
	startLiked := []primitive.ObjectID{bystander}

	liked, disliked := ToggleReaction(startLiked, nil, user, ReactionLike)
	liked, disliked = ToggleReaction(liked, disliked, user, ReactionLike)

	assert.Equal(t, startLiked, liked)
	assert.Empty(t, disliked)
}

func TestToggleReactionUnknownKindOnlyRemoves(t *testing.T) {
	user := primitive.NewObjectID()

	liked, disliked := ToggleReaction([]primitive.ObjectID{user}, nil, user, "boost")

	assert.Empty(t, liked)
	assert.Empty(t, disliked)
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
