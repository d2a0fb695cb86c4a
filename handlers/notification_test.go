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
)

func TestSubscribePushStoresEndpoint(t *testing.T) {
	e := newEnv(Config{})
	user := seedUser(e, "browser01")

	req := jsonRequest(http.MethodPost, "/api/notifications/subscribe", gin.H{
		"endpoint": "https://push.example/ep",
		"keys":     gin.H{"p256dh": "pkey", "auth": "akey"},
	})
	w := testRequest(user.ID, req, nil, e.handler.SubscribePush)

	require.Equal(t, http.StatusCreated, w.Code)
	stored, err := e.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, stored.HasPushEndpoint())
	assert.Equal(t, "https://push.example/ep", stored.PushSubscription.Endpoint)
}

func TestSubscribePushReplacesEndpoint(t *testing.T) {
	e := newEnv(Config{})
	user := seedUser(e, "browser01")

	for _, endpoint := range []string{"https://push.example/old", "https://push.example/new"} {
		req := jsonRequest(http.MethodPost, "/api/notifications/subscribe", gin.H{
			"endpoint": endpoint,
			"keys":     gin.H{"p256dh": "pkey", "auth": "akey"},
		})
		w := testRequest(user.ID, req, nil, e.handler.SubscribePush)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	stored, _ := e.users.FindByID(context.Background(), user.ID)
	assert.Equal(t, "https://push.example/new", stored.PushSubscription.Endpoint)
}

func TestSubscribePushRequiresKeys(t *testing.T) {
	e := newEnv(Config{})
	user := seedUser(e, "browser01")

	req := jsonRequest(http.MethodPost, "/api/notifications/subscribe", gin.H{
		"endpoint": "https://push.example/ep",
	})
	w := testRequest(user.ID, req, nil, e.handler.SubscribePush)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnsubscribePushClearsEndpoint(t *testing.T) {
	e := newEnv(Config{})
	user := seedUser(e, "browser01")
	req := jsonRequest(http.MethodPost, "/api/notifications/subscribe", gin.H{
		"endpoint": "https://push.example/ep",
		"keys":     gin.H{"p256dh": "pkey", "auth": "akey"},
	})
	testRequest(user.ID, req, nil, e.handler.SubscribePush)

	w := testRequest(user.ID, httptest.NewRequest(http.MethodDelete, "/api/notifications/subscribe", nil), nil, e.handler.UnsubscribePush)

	require.Equal(t, http.StatusOK, w.Code)
	stored, _ := e.users.FindByID(context.Background(), user.ID)
	assert.False(t, stored.HasPushEndpoint())
}

func TestVapidPublicKey(t *testing.T) {
	e := newEnv(Config{VAPIDPublicKey: "public-key"})

	w := testRequest(primitive.NilObjectID, httptest.NewRequest(http.MethodGet, "/api/notifications/vapid-public-key", nil), nil, e.handler.VapidPublicKey)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public-key", decodeBody(t, w)["publicKey"])
}
