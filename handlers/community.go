package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/apperr"
	"yapper/models"
	"yapper/realtime"
	"yapper/store"
)

type CreateCommunityRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	ProfileImage string `json:"profileImage"`
	BannerImage  string `json:"bannerImage"`
	IsPrivate    bool   `json:"isPrivate"`
}

// CreateCommunity creates a community with the requester as creator,
// admin and first member, and returns it with its unique invite code.
func (h *Handler) CreateCommunity(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Missing required fields"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	now := time.Now().Unix()
	community := models.Community{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Description:  req.Description,
		ProfileImage: req.ProfileImage,
		BannerImage:  req.BannerImage,
		Creator:      userID,
		Admin:        userID,
		Members:      []primitive.ObjectID{userID},
		Posts:        []primitive.ObjectID{},
		IsPrivate:    req.IsPrivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.communities.Create(ctx, &community); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating community", err))
		return
	}
	if err := h.users.AddCommunity(ctx, userID, community.ID); err != nil {
		h.logger.Warn().Err(err).Str("community", community.ID.Hex()).Msg("link community to creator")
	}

	code, err := h.communities.EnsureInviteCode(ctx, community.ID)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error generating invite code", err))
		return
	}
	community.InviteCode = code

	c.JSON(http.StatusCreated, community)
}

func (h *Handler) ListCommunities(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	communities, err := h.communities.List(ctx)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching communities", err))
		return
	}
	c.JSON(http.StatusOK, communities)
}

func (h *Handler) ListMyCommunities(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	communities, err := h.communities.ListByMember(ctx, userID)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching user communities", err))
		return
	}
	c.JSON(http.StatusOK, communities)
}

// GetCommunity returns a community with its posts resolved in feed order.
func (h *Handler) GetCommunity(c *gin.Context) {
	communityID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	posts, err := h.posts.FindByIDs(ctx, community.Posts)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching community", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           community.ID.Hex(),
		"name":         community.Name,
		"description":  community.Description,
		"profileImage": community.ProfileImage,
		"bannerImage":  community.BannerImage,
		"creator":      community.Creator.Hex(),
		"admin":        community.Admin.Hex(),
		"members":      community.Members,
		"isPrivate":    community.IsPrivate,
		"posts":        posts,
	})
}

// JoinCommunity adds the requester to a public community by id.
func (h *Handler) JoinCommunity(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	communityID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if community.IsPrivate {
		h.respondError(c, apperr.New(apperr.Authorization, "This community requires an invite code"))
		return
	}

	h.join(c, ctx, community, userID)
}

// JoinByInviteCode adds the requester to the community owning the code.
func (h *Handler) JoinByInviteCode(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.communities.FindByInviteCode(ctx, c.Param("inviteCode"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "Invalid invite code"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error joining community", err))
		return
	}

	h.join(c, ctx, community, userID)
}

func (h *Handler) join(c *gin.Context, ctx context.Context, community *models.Community, userID primitive.ObjectID) {
	if !community.HasMember(userID) {
		if err := h.communities.AddMember(ctx, community.ID, userID); err != nil {
			h.respondError(c, apperr.Wrap(apperr.Upstream, "Error joining community", err))
			return
		}
	}
	if err := h.users.AddCommunity(ctx, userID, community.ID); err != nil {
		h.logger.Warn().Err(err).Str("community", community.ID.Hex()).Msg("link community to member")
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Joined community successfully",
		"communityId": community.ID.Hex(),
	})
}

// DeleteCommunity removes a community. Admin only.
func (h *Handler) DeleteCommunity(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	communityID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if community.Admin != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this community"))
		return
	}

	if err := h.communities.Delete(ctx, communityID); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting community", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Community deleted successfully"})
}

// AdminDeletePost lets the community admin remove any post in it.
func (h *Handler) AdminDeletePost(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	communityID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	postID, err := objectIDParam(c, "postId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if community.Admin != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this post"))
		return
	}

	if err := h.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "Post not found"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting post", err))
		return
	}
	if err := h.communities.RemovePost(ctx, communityID, postID); err != nil {
		h.logger.Warn().Err(err).Str("post", postID.Hex()).Msg("detach post from community")
	}
	h.hub.Broadcast(communityID.Hex(), realtime.EventPostDeleted, gin.H{"id": postID.Hex()})

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// AdminDeleteComment lets the community admin remove any comment on its
// posts.
func (h *Handler) AdminDeleteComment(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	communityID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	commentID, err := objectIDParam(c, "commentId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if community.Admin != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this comment"))
		return
	}

	comment, err := h.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "Comment not found"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting comment", err))
		return
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

func (h *Handler) findCommunity(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	community, err := h.communities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Community not found")
		}
		return nil, apperr.Wrap(apperr.Upstream, "Error fetching community", err)
	}
	return community, nil
}
