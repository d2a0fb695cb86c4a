package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/apperr"
	"yapper/models"
	"yapper/store"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateComment adds a comment to a post and links it from the post
// document.
func (h *Handler) CreateComment(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	postID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Content is required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.findPost(ctx, postID); err != nil {
		h.respondError(c, err)
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Post:      postID,
		Author:    userID,
		Content:   req.Content,
		CreatedAt: time.Now().Unix(),
	}
	if err := h.comments.Create(ctx, &comment); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating comment", err))
		return
	}
	if err := h.posts.AppendComment(ctx, postID, comment.ID); err != nil {
		h.logger.Error().Err(err).
			Str("comment", comment.ID.Hex()).
			Str("post", postID.Hex()).
			Msg("comment persisted but not linked to post")
	}

	author, err := h.users.FindByID(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Msg("resolve comment author")
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        comment.ID.Hex(),
		"post":      comment.Post.Hex(),
		"content":   comment.Content,
		"createdAt": comment.CreatedAt,
		"author":    refFor(author),
	})
}

// DeleteComment removes a comment. Allowed for the comment's author and
// for the admin of the community the post belongs to.
func (h *Handler) DeleteComment(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	commentID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "Comment not found"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching comment", err))
		return
	}

	if comment.Author != userID {
		post, err := h.findPost(ctx, comment.Post)
		if err != nil {
			h.respondError(c, err)
			return
		}
		community, err := h.findCommunity(ctx, post.Community)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if community.Admin != userID {
			h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this comment"))
			return
		}
	}

	if err := h.comments.Delete(ctx, commentID); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting comment", err))
		return
	}
	if err := h.posts.RemoveComment(ctx, comment.Post, commentID); err != nil {
		h.logger.Warn().Err(err).Str("comment", commentID.Hex()).Msg("detach comment from post")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
