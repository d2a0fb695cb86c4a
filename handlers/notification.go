package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"yapper/apperr"
)

type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// SubscribePush stores the browser's push subscription on the user.
// Subscribing again replaces the previous endpoint.
func (h *Handler) SubscribePush(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req SubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "A push subscription with endpoint and keys is required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sub := &webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys: webpush.Keys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	}
	if err := h.users.SetPushSubscription(ctx, userID, sub); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error saving subscription", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed successfully"})
}

// UnsubscribePush drops the user's stored push subscription.
func (h *Handler) UnsubscribePush(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.users.ClearPushSubscription(ctx, userID); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error removing subscription", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed successfully"})
}

// VapidPublicKey serves the application server key the client needs to
// subscribe.
func (h *Handler) VapidPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.cfg.VAPIDPublicKey})
}
