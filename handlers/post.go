package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/apperr"
	"yapper/models"
	"yapper/push"
	"yapper/realtime"
	"yapper/store"
)

// CreatePostRequest is the JSON body for text posts. Media posts arrive
// as multipart form data with the same field names plus a media file.
type CreatePostRequest struct {
	Title       string `json:"title" form:"title"`
	Content     string `json:"content" form:"content"`
	IsAnonymous bool   `json:"isAnonymous" form:"isAnonymous"`
	PostType    string `json:"postType" form:"postType"`
}

// postResponse is a post with its author resolved to a display name.
// Author stays nil for anonymous posts.
type postResponse struct {
	*models.Post
	AuthorRef *userRef `json:"authorRef,omitempty"`
}

// CreatePost runs the post-creation pipeline: validate the shape, upload
// media when present, persist the post, link it into the community feed,
// then broadcast the realtime event and fan out push notifications
// concurrently. The fan-out is awaited before the response is written.
func (h *Handler) CreatePost(c *gin.Context) {
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

	req, mediaFile, err := bindCreatePost(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := validatePostShape(req, mediaFile != nil); err != nil {
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
	if h.cfg.RequireMembershipToPost && !community.HasMember(userID) {
		h.respondError(c, apperr.New(apperr.Authorization, "You are not a member of this community"))
		return
	}

	// Upload before any persistence: an upload failure must not leave a
	// partial post behind.
	var media []models.Media
	if req.PostType == models.PostTypeMedia {
		attachment, err := h.uploadPostMedia(ctx, mediaFile)
		if err != nil {
			h.respondError(c, err)
			return
		}
		media = []models.Media{*attachment}
	}

	now := time.Now().Unix()
	post := models.Post{
		ID:          primitive.NewObjectID(),
		Community:   communityID,
		Title:       req.Title,
		Content:     req.Content,
		Media:       media,
		IsAnonymous: req.IsAnonymous,
		LikedBy:     []primitive.ObjectID{},
		DislikedBy:  []primitive.ObjectID{},
		Comments:    []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !req.IsAnonymous {
		post.Author = &userID
	}
	if post.Media != nil {
		post.Content = ""
	}

	if err := h.posts.Create(ctx, &post); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating post", err))
		return
	}

	if err := h.communities.AppendPost(ctx, communityID, post.ID); err != nil {
		// The post exists but is not linked from the community. Known
		// consistency gap: logged, not rolled back.
		h.logger.Error().Err(err).
			Str("post", post.ID.Hex()).
			Str("community", communityID.Hex()).
			Msg("post persisted but not linked to community")
	}

	resp := postResponse{Post: &post}
	if !post.IsAnonymous {
		if author, err := h.users.FindByID(ctx, userID); err == nil {
			resp.AuthorRef = refFor(author)
		}
	}

	// Broadcast and fan-out are independent of each other; both follow
	// persist+link in program order.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.hub.Broadcast(communityID.Hex(), realtime.EventPostCreated, resp)
	}()
	go func() {
		defer wg.Done()
		h.notifyCommunity(ctx, community, &post)
	}()
	wg.Wait()

	c.JSON(http.StatusCreated, resp)
}

func bindCreatePost(c *gin.Context) (CreatePostRequest, *multipart.FileHeader, error) {
	var req CreatePostRequest

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			return req, nil, apperr.New(apperr.Validation, "Invalid post payload")
		}
		file, err := c.FormFile("media")
		if err != nil {
			return req, nil, nil
		}
		return req, file, nil
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		return req, nil, apperr.New(apperr.Validation, "Invalid post payload")
	}
	return req, nil, nil
}

// validatePostShape enforces the shape invariants: title always required,
// text posts need content, media posts need exactly one file and no body.
func validatePostShape(req CreatePostRequest, hasFile bool) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.New(apperr.Validation, "Title is required")
	}
	switch req.PostType {
	case models.PostTypeText:
		if strings.TrimSpace(req.Content) == "" {
			return apperr.New(apperr.Validation, "Content is required for text posts")
		}
	case models.PostTypeMedia:
		if !hasFile {
			return apperr.New(apperr.Validation, "A media file is required for media posts")
		}
	default:
		return apperr.New(apperr.Validation, "Unknown post type")
	}
	return nil
}

func (h *Handler) uploadPostMedia(ctx context.Context, file *multipart.FileHeader) (*models.Media, error) {
	if h.uploader == nil {
		return nil, apperr.New(apperr.Upstream, "Media storage is not configured")
	}
	reader, err := file.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Error reading media file", err)
	}
	defer reader.Close()

	result, err := h.uploader.Upload(ctx, reader, "posts")
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "Error uploading media", err)
	}

	kind := models.MediaKindImage
	if result.ResourceType == "video" {
		kind = models.MediaKindVideo
	}
	return &models.Media{Type: kind, URL: result.URL}, nil
}

// notifyCommunity fans out the new-post notification to every member
// with a registered push endpoint, awaiting all deliveries.
func (h *Handler) notifyCommunity(ctx context.Context, community *models.Community, post *models.Post) {
	members, err := h.users.FindByIDs(ctx, community.Members)
	if err != nil {
		h.logger.Error().Err(err).Str("community", community.ID.Hex()).Msg("load members for fan-out")
		return
	}
	h.push.FanOut(ctx, members, push.NewPostNotification(community, post))
}

// GetPost returns a post with its author and comments resolved.
func (h *Handler) GetPost(c *gin.Context) {
	postID, err := objectIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.findPost(ctx, postID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	comments, err := h.comments.FindByPost(ctx, postID)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching post", err))
		return
	}

	authorIDs := make([]primitive.ObjectID, 0, len(comments)+1)
	if post.Author != nil {
		authorIDs = append(authorIDs, *post.Author)
	}
	for _, comment := range comments {
		authorIDs = append(authorIDs, comment.Author)
	}
	authors := h.resolveUsers(ctx, authorIDs)

	commentViews := make([]gin.H, len(comments))
	for i, comment := range comments {
		commentViews[i] = gin.H{
			"id":        comment.ID.Hex(),
			"content":   comment.Content,
			"createdAt": comment.CreatedAt,
			"author":    refFor(authors[comment.Author]),
		}
	}

	resp := postResponse{Post: post}
	if post.Author != nil {
		resp.AuthorRef = refFor(authors[*post.Author])
	}

	c.JSON(http.StatusOK, gin.H{
		"post":     resp,
		"comments": commentViews,
	})
}

type UpdatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// UpdatePost replaces a post's title and content. Author only; anonymous
// posts have no author and cannot be updated.
func (h *Handler) UpdatePost(c *gin.Context) {
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

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Title and content are required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.findPost(ctx, postID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if post.Author == nil || *post.Author != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to update this post"))
		return
	}

	if err := h.posts.UpdateContent(ctx, postID, req.Title, req.Content); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error updating post", err))
		return
	}
	post.Title = req.Title
	post.Content = req.Content
	post.UpdatedAt = time.Now().Unix()

	h.hub.Broadcast(post.Community.Hex(), realtime.EventPostUpdated, post)
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a post and detaches it from its community. Author
// only.
func (h *Handler) DeletePost(c *gin.Context) {
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

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.findPost(ctx, postID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if post.Author == nil || *post.Author != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this post"))
		return
	}

	if err := h.posts.Delete(ctx, postID); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting post", err))
		return
	}
	if err := h.communities.RemovePost(ctx, post.Community, postID); err != nil {
		h.logger.Warn().Err(err).Str("post", postID.Hex()).Msg("detach post from community")
	}

	h.hub.Broadcast(post.Community.Hex(), realtime.EventPostDeleted, gin.H{"id": postID.Hex()})
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// LikePost toggles the requester's like on a post.
func (h *Handler) LikePost(c *gin.Context) {
	h.toggleReaction(c, models.ReactionLike)
}

// DislikePost toggles the requester's dislike on a post.
func (h *Handler) DislikePost(c *gin.Context) {
	h.toggleReaction(c, models.ReactionDislike)
}

func (h *Handler) toggleReaction(c *gin.Context, kind string) {
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

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.findPost(ctx, postID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	liked, disliked := models.ToggleReaction(post.LikedBy, post.DislikedBy, userID, kind)
	if err := h.posts.SetReactions(ctx, postID, liked, disliked); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error updating reaction", err))
		return
	}
	post.LikedBy = liked
	post.DislikedBy = disliked

	c.JSON(http.StatusOK, post)
}

func (h *Handler) findPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, err := h.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Post not found")
		}
		return nil, apperr.Wrap(apperr.Upstream, "Error fetching post", err)
	}
	return post, nil
}

// resolveUsers loads the given users and indexes them by id. Lookup
// failures degrade to missing entries rather than failing the request.
func (h *Handler) resolveUsers(ctx context.Context, ids []primitive.ObjectID) map[primitive.ObjectID]*models.User {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	users, err := h.users.FindByIDs(ctx, ids)
	if err != nil {
		h.logger.Warn().Err(err).Msg("resolve users")
		return out
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out
}
