// Package push delivers web-push notifications to community members.
// Deliveries are fanned out concurrently and are independent: one failed
// endpoint never blocks or fails the others.
package push

import (
	"context"
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yapper/models"
)

// Sender is the transport surface. Send returns the transport's HTTP
// status code when a response was received.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription) (int, error)
}

// EndpointStore clears subscriptions the transport reports as permanently
// invalid.
type EndpointStore interface {
	ClearPushSubscription(ctx context.Context, userID primitive.ObjectID) error
}

// Notification is the short message delivered on new posts.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Data  struct {
		URL string `json:"url"`
	} `json:"data"`
}

// NewPostNotification composes the fan-out message for a post: community
// name, post title and a deep link into the community feed.
func NewPostNotification(community *models.Community, post *models.Post) Notification {
	n := Notification{
		Title: community.Name,
		Body:  post.Title,
	}
	n.Data.URL = fmt.Sprintf("/community/%s/post/%s", community.ID.Hex(), post.ID.Hex())
	return n
}

// WebPush sends through the webpush protocol with VAPID keys.
type WebPush struct {
	subscriber string
	publicKey  string
	privateKey string
}

func NewWebPush(subscriber, publicKey, privateKey string) *WebPush {
	return &WebPush{subscriber: subscriber, publicKey: publicKey, privateKey: privateKey}
}

func (w *WebPush) Send(ctx context.Context, payload []byte, sub *webpush.Subscription) (int, error) {
	resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
		Subscriber:      w.subscriber,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             30,
	})
	if resp == nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, err
}
