package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/apperr"
	"yapper/models"
	"yapper/realtime"
	"yapper/store"
)

const chatHistoryLimit = 50

// chatMessageResponse is a chat message with its author resolved. Author
// stays nil for anonymous messages.
type chatMessageResponse struct {
	*models.ChatMessage
	AuthorRef *userRef `json:"authorRef,omitempty"`
}

// GetChatMessages returns the most recent messages for a community chat
// room in chronological order. Members only.
func (h *Handler) GetChatMessages(c *gin.Context) {
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
	if !community.HasMember(userID) {
		h.respondError(c, apperr.New(apperr.Authorization, "You are not a member of this community"))
		return
	}

	messages, err := h.chats.ListRecent(ctx, communityID, chatHistoryLimit)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching chat messages", err))
		return
	}

	authorIDs := make([]primitive.ObjectID, 0, len(messages))
	for i := range messages {
		if messages[i].Author != nil {
			authorIDs = append(authorIDs, *messages[i].Author)
		}
	}
	authors := h.resolveUsers(ctx, authorIDs)

	out := make([]chatMessageResponse, len(messages))
	for i := range messages {
		out[i] = chatMessageResponse{ChatMessage: &messages[i]}
		if messages[i].Author != nil {
			out[i].AuthorRef = refFor(authors[*messages[i].Author])
		}
	}
	c.JSON(http.StatusOK, out)
}

type createChatMessageForm struct {
	Content     string `json:"content" form:"content"`
	IsAnonymous bool   `json:"isAnonymous" form:"isAnonymous"`
	ReplyTo     string `json:"replyTo" form:"replyTo"`
}

// CreateChatMessage posts a message to a community chat room, optionally
// with one file attachment. The attachment's deletion is scheduled for
// when the message's TTL expires. Members only.
func (h *Handler) CreateChatMessage(c *gin.Context) {
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

	form, fileHeader, err := bindChatMessage(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if strings.TrimSpace(form.Content) == "" && fileHeader == nil {
		h.respondError(c, apperr.New(apperr.Validation, "Message content or a file is required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	community, err := h.findCommunity(ctx, communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !community.HasMember(userID) {
		h.respondError(c, apperr.New(apperr.Authorization, "You are not a member of this community"))
		return
	}

	msg := models.ChatMessage{
		ID:          primitive.NewObjectID(),
		Community:   communityID,
		Content:     form.Content,
		IsAnonymous: form.IsAnonymous,
		CreatedAt:   time.Now().UTC(),
	}
	if !form.IsAnonymous {
		msg.Author = &userID
	}
	if form.ReplyTo != "" {
		replyTo, err := primitive.ObjectIDFromHex(form.ReplyTo)
		if err != nil {
			h.respondError(c, apperr.New(apperr.Validation, "Invalid replyTo"))
			return
		}
		msg.ReplyTo = &replyTo
	}

	if fileHeader != nil {
		file, err := h.uploadChatFile(ctx, fileHeader)
		if err != nil {
			h.respondError(c, err)
			return
		}
		msg.File = file
	}

	if err := h.chats.Create(ctx, &msg); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error sending message", err))
		return
	}

	if msg.File != nil {
		dueAt := msg.CreatedAt.Add(models.ChatMessageTTL)
		if err := h.deletions.Schedule(ctx, msg.File.PublicID, dueAt); err != nil {
			h.logger.Error().Err(err).
				Str("publicId", msg.File.PublicID).
				Msg("schedule chat file deletion")
		}
	}

	resp := chatMessageResponse{ChatMessage: &msg}
	if msg.Author != nil {
		if author, err := h.users.FindByID(ctx, userID); err == nil {
			resp.AuthorRef = refFor(author)
		}
	}

	h.hub.Broadcast(communityID.Hex(), realtime.EventChatMessage, resp)
	c.JSON(http.StatusCreated, resp)
}

// DeleteChatMessage removes a chat message ahead of its TTL. Author only;
// anonymous messages keep no author link and cannot be deleted by hand.
func (h *Handler) DeleteChatMessage(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	messageID, err := objectIDParam(c, "messageId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.chats.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "Message not found"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error fetching message", err))
		return
	}
	if msg.Author == nil || *msg.Author != userID {
		h.respondError(c, apperr.New(apperr.Authorization, "Not authorized to delete this message"))
		return
	}

	if err := h.chats.Delete(ctx, messageID); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error deleting message", err))
		return
	}
	if msg.File != nil {
		if err := h.deletions.Schedule(ctx, msg.File.PublicID, time.Now().UTC()); err != nil {
			h.logger.Error().Err(err).
				Str("publicId", msg.File.PublicID).
				Msg("schedule chat file deletion")
		}
	}

	h.hub.Broadcast(msg.Community.Hex(), realtime.EventChatMessageDeleted, gin.H{"id": messageID.Hex()})
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

func bindChatMessage(c *gin.Context) (createChatMessageForm, *multipart.FileHeader, error) {
	var form createChatMessageForm

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&form); err != nil {
			return form, nil, apperr.New(apperr.Validation, "Invalid message payload")
		}
		file, err := c.FormFile("file")
		if err != nil {
			return form, nil, nil
		}
		return form, file, nil
	}

	if err := c.ShouldBindJSON(&form); err != nil {
		return form, nil, apperr.New(apperr.Validation, "Invalid message payload")
	}
	return form, nil, nil
}

// uploadChatFile sniffs the attachment's type and uploads it to the chat
// folder. Anything that is not an image or video is kept as a document.
func (h *Handler) uploadChatFile(ctx context.Context, header *multipart.FileHeader) (*models.ChatFile, error) {
	if h.uploader == nil {
		return nil, apperr.New(apperr.Upstream, "Media storage is not configured")
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Error reading file", err)
	}
	defer file.Close()

	head := make([]byte, 3072)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(apperr.Validation, "Error reading file", err)
	}
	head = head[:n]
	kind := chatFileKind(mimetype.Detect(head))

	result, err := h.uploader.Upload(ctx, io.MultiReader(bytes.NewReader(head), file), "chat")
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "Error uploading file", err)
	}

	return &models.ChatFile{
		URL:      result.URL,
		Type:     kind,
		PublicID: result.PublicID,
	}, nil
}

func chatFileKind(mt *mimetype.MIME) string {
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		return models.FileKindImage
	case strings.HasPrefix(mt.String(), "video/"):
		return models.FileKindVideo
	default:
		return models.FileKindDocument
	}
}
