package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/models"
)

func seedPost(e *env, community *models.Community, author primitive.ObjectID) *models.Post {
	return e.posts.add(models.Post{
		ID:        primitive.NewObjectID(),
		Community: community.ID,
		Author:    &author,
		Title:     "discussion",
		Comments:  []primitive.ObjectID{},
	})
}

func TestCreateCommentLinksToPost(t *testing.T) {
	e := newEnv(Config{})
	author := seedUser(e, "author01")
	community := seedCommunity(e, author.ID)
	post := seedPost(e, community, author.ID)

	req := jsonRequest(http.MethodPost, "/api/posts/x/comments", gin.H{"content": "nice one"})
	params := gin.Params{{Key: "id", Value: post.ID.Hex()}}
	w := testRequest(author.ID, req, params, e.handler.CreateComment)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, e.comments.comments, 1)

	stored, err := e.posts.FindByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 1)

	body := decodeBody(t, w)
	authorView := body["author"].(map[string]interface{})
	assert.Equal(t, "author01", authorView["username"])
}

func TestCreateCommentRequiresContent(t *testing.T) {
	e := newEnv(Config{})
	author := seedUser(e, "author01")
	community := seedCommunity(e, author.ID)
	post := seedPost(e, community, author.ID)

	req := jsonRequest(http.MethodPost, "/api/posts/x/comments", gin.H{})
	params := gin.Params{{Key: "id", Value: post.ID.Hex()}}
	w := testRequest(author.ID, req, params, e.handler.CreateComment)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCommentUnknownPost(t *testing.T) {
	e := newEnv(Config{})
	author := seedUser(e, "author01")

	req := jsonRequest(http.MethodPost, "/api/posts/x/comments", gin.H{"content": "hello"})
	params := gin.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}}
	w := testRequest(author.ID, req, params, e.handler.CreateComment)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCommentByAuthor(t *testing.T) {
	e := newEnv(Config{})
	author := seedUser(e, "author01")
	community := seedCommunity(e, author.ID)
	post := seedPost(e, community, author.ID)
	comment := e.comments.add(models.Comment{
		ID:      primitive.NewObjectID(),
		Post:    post.ID,
		Author:  author.ID,
		Content: "mine",
	})
	require.NoError(t, e.posts.AppendComment(context.Background(), post.ID, comment.ID))

	params := gin.Params{{Key: "id", Value: comment.ID.Hex()}}
	w := testRequest(author.ID, httptest.NewRequest(http.MethodDelete, "/api/comments/x", nil), params, e.handler.DeleteComment)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.comments.comments)
	stored, _ := e.posts.FindByID(context.Background(), post.ID)
	assert.Empty(t, stored.Comments)
}

func TestDeleteCommentByCommunityAdmin(t *testing.T) {
	e := newEnv(Config{})
	admin := seedUser(e, "admin0001")
	commenter := seedUser(e, "commenter1")
	community := seedCommunity(e, admin.ID, commenter.ID)
	post := seedPost(e, community, commenter.ID)
	comment := e.comments.add(models.Comment{
		ID:      primitive.NewObjectID(),
		Post:    post.ID,
		Author:  commenter.ID,
		Content: "off topic",
	})

	params := gin.Params{{Key: "id", Value: comment.ID.Hex()}}
	w := testRequest(admin.ID, httptest.NewRequest(http.MethodDelete, "/api/comments/x", nil), params, e.handler.DeleteComment)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.comments.comments)
}

func TestDeleteCommentForbiddenForStranger(t *testing.T) {
	e := newEnv(Config{})
	admin := seedUser(e, "admin0001")
	commenter := seedUser(e, "commenter1")
	stranger := seedUser(e, "stranger01")
	community := seedCommunity(e, admin.ID, commenter.ID, stranger.ID)
	post := seedPost(e, community, commenter.ID)
	comment := e.comments.add(models.Comment{
		ID:      primitive.NewObjectID(),
		Post:    post.ID,
		Author:  commenter.ID,
		Content: "stays",
	})

	params := gin.Params{{Key: "id", Value: comment.ID.Hex()}}
	w := testRequest(stranger.ID, httptest.NewRequest(http.MethodDelete, "/api/comments/x", nil), params, e.handler.DeleteComment)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, e.comments.comments, 1)
}
