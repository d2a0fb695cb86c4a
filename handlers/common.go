// Package handlers implements the HTTP surface of the platform. Handlers
// depend on narrow store and transport interfaces so the request logic is
// testable without MongoDB or live transports.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/apperr"
	"yapper/middleware"
	"yapper/models"
	"yapper/push"
	"yapper/storage"
)

const requestTimeout = 10 * time.Second

// UserStore is the identity store surface the handlers use.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AddCommunity(ctx context.Context, userID, communityID primitive.ObjectID) error
	SetPushSubscription(ctx context.Context, userID primitive.ObjectID, sub *webpush.Subscription) error
	ClearPushSubscription(ctx context.Context, userID primitive.ObjectID) error
	LinkGoogle(ctx context.Context, userID primitive.ObjectID, googleID, picture string) error
}

// CommunityStore is the community aggregate surface.
type CommunityStore interface {
	Create(ctx context.Context, c *models.Community) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Community, error)
	List(ctx context.Context) ([]models.Community, error)
	ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Community, error)
	AddMember(ctx context.Context, communityID, userID primitive.ObjectID) error
	AppendPost(ctx context.Context, communityID, postID primitive.ObjectID) error
	RemovePost(ctx context.Context, communityID, postID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureInviteCode(ctx context.Context, id primitive.ObjectID) (string, error)
}

// PostStore is the post aggregate surface.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, title, content string) error
	SetReactions(ctx context.Context, id primitive.ObjectID, liked, disliked []primitive.ObjectID) error
	AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CommentStore is the comment surface.
type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	FindByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ChatStore is the ephemeral chat surface.
type ChatStore interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatMessage, error)
	ListRecent(ctx context.Context, communityID primitive.ObjectID, limit int64) ([]models.ChatMessage, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// DeletionStore schedules deferred object-store deletions.
type DeletionStore interface {
	Schedule(ctx context.Context, publicID string, dueAt time.Time) error
}

// Broadcaster publishes realtime events to community channels.
type Broadcaster interface {
	Broadcast(community string, eventType string, payload interface{})
}

// Notifier fans a push notification out to recipients.
type Notifier interface {
	FanOut(ctx context.Context, recipients []models.User, n push.Notification)
}

// Config is the slice of runtime configuration the handlers need.
type Config struct {
	JWTSecret               string
	TokenTTL                time.Duration
	VAPIDPublicKey          string
	GoogleClientID          string
	GoogleClientSecret      string
	GoogleRedirectURL       string
	RequireMembershipToPost bool
}

// Deps wires a Handler.
type Deps struct {
	Users       UserStore
	Communities CommunityStore
	Posts       PostStore
	Comments    CommentStore
	Chats       ChatStore
	Deletions   DeletionStore
	Uploader    storage.Uploader
	Hub         Broadcaster
	Push        Notifier
	Logger      zerolog.Logger
}

// Handler carries the dependencies shared by every route.
type Handler struct {
	cfg         Config
	users       UserStore
	communities CommunityStore
	posts       PostStore
	comments    CommentStore
	chats       ChatStore
	deletions   DeletionStore
	uploader    storage.Uploader
	hub         Broadcaster
	push        Notifier
	logger      zerolog.Logger
}

func New(cfg Config, deps Deps) *Handler {
	return &Handler{
		cfg:         cfg,
		users:       deps.Users,
		communities: deps.Communities,
		posts:       deps.Posts,
		comments:    deps.Comments,
		chats:       deps.Chats,
		deletions:   deps.Deletions,
		uploader:    deps.Uploader,
		hub:         deps.Hub,
		push:        deps.Push,
		logger:      deps.Logger.With().Str("component", "handlers").Logger(),
	}
}

// respondError writes the taxonomy-mapped status and user-safe message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"message": apperr.UserMessage(err)})
}

// currentUserID returns the authenticated user's id from the request
// context.
func currentUserID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.ContextUserID))
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.Authentication, "Invalid user identity")
	}
	return id, nil
}

// objectIDParam parses a path parameter as an ObjectID.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.Validation, "Invalid "+name)
	}
	return id, nil
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// userRef is the author shape embedded in responses.
type userRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func refFor(u *models.User) *userRef {
	if u == nil {
		return nil
	}
	return &userRef{ID: u.ID.Hex(), Username: u.Username}
}
