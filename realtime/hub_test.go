package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yapper/middleware"
)

const testSecret = "test-secret"

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(Handler(hub, testSecret))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func joinCommunity(t *testing.T, conn *websocket.Conn, communityID string) {
	t.Helper()
	msg, err := json.Marshal(clientMessage{Type: "joinCommunity", CommunityID: communityID})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	// The join travels client -> readPump -> hub channel; give it time to
	// land before broadcasting.
	time.Sleep(100 * time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	_, server := startHub(t)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerRejectsBadToken(t *testing.T) {
	_, server := startHub(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubscriberReceivesBroadcast(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "user-1")
	joinCommunity(t, conn, "community-a")

	hub.Broadcast("community-a", EventPostCreated, map[string]string{"id": "p1"})
	ev := readEvent(t, conn)

	assert.Equal(t, EventPostCreated, ev.Type)
	assert.Equal(t, "community-a", ev.Community)
}

func TestRoomsAreIsolated(t *testing.T) {
	hub, server := startHub(t)
	subscriberA := dial(t, server, "user-a")
	subscriberB := dial(t, server, "user-b")
	joinCommunity(t, subscriberA, "community-a")
	joinCommunity(t, subscriberB, "community-b")

	hub.Broadcast("community-a", EventPostCreated, map[string]string{"id": "p1"})
	ev := readEvent(t, subscriberA)
	assert.Equal(t, "community-a", ev.Community)

	// B joined a different channel and must see nothing.
	require.NoError(t, subscriberB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := subscriberB.ReadMessage()
	assert.Error(t, err)
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "user-1")
	joinCommunity(t, conn, "community-a")

	hub.Broadcast("community-a", EventPostCreated, map[string]string{"id": "p1"})
	readEvent(t, conn)

	msg, err := json.Marshal(clientMessage{Type: "leaveCommunity", CommunityID: "community-a"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("community-a", EventPostCreated, map[string]string{"id": "p2"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
