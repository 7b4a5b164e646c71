package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulcircle/internal/adapter/repository/memory"
	"soulcircle/internal/domain/entity"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/internal/usecase"
)

type testEnv struct {
	manager  *Manager
	services Services
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	limiter := ratelimit.NewRateLimiter()
	groupRepo := memory.NewGroupRepository(store)
	messageRepo := memory.NewMessageRepository(store)

	services := Services{
		Groups:   usecase.NewGroupUseCase(groupRepo, limiter),
		Messages: usecase.NewMessageUseCase(messageRepo, groupRepo, limiter, 50),
		DMs:      usecase.NewDMUseCase(memory.NewConversationRepository(store), messageRepo, memory.NewUserRepository(store), limiter, 50),
		Presence: usecase.NewPresenceUseCase(memory.NewPresenceRepository(store)),
		Typing:   usecase.NewTypingUseCase(memory.NewTypingRepository(store), groupRepo, limiter, time.Minute),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	manager := NewManager(services)
	manager.Start(ctx)
	services.Presence.SetDisconnectHooks(manager)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uid := r.URL.Query().Get("uid")
		manager.Serve(conn, uid, strings.ToUpper(uid))
	}))
	t.Cleanup(server.Close)

	return &testEnv{manager: manager, services: services, server: server}
}

func (e *testEnv) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return e.manager.Connections(uid) > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

type frame struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestPingPong(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "alice")

	send(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, MessageTypePong, read(t, conn).Type)
}

func TestUnknownTopicAndType(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "alice")

	send(t, conn, map[string]string{"type": "subscribe", "topic": "weather"})
	f := read(t, conn)
	assert.Equal(t, MessageTypeError, f.Type)
	assert.Equal(t, "weather", f.Topic)

	send(t, conn, map[string]string{"type": "dance"})
	assert.Equal(t, MessageTypeError, read(t, conn).Type)
}

func TestSubscribeMessagesStreamsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := usecase.Actor{ID: "alice", Name: "Alice"}

	g, err := env.services.Groups.Create(ctx, alice, usecase.CreateGroupInput{Kind: entity.GroupKindRoom, Name: "Night Owls"})
	require.NoError(t, err)

	conn := env.dial(t, "alice")
	topic := TopicMessages + ":" + g.ID
	send(t, conn, map[string]string{"type": "subscribe", "topic": topic})

	first := read(t, conn)
	assert.Equal(t, MessageTypeSnapshot, first.Type)
	assert.Equal(t, topic, first.Topic)

	_, err = env.services.Messages.Send(ctx, g.ID, alice, "hello")
	require.NoError(t, err)

	second := read(t, conn)
	var msgs []*entity.Message
	require.NoError(t, json.Unmarshal(second.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestSubscribeRejectsNonMember(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.services.Groups.Create(context.Background(), usecase.Actor{ID: "alice"}, usecase.CreateGroupInput{Kind: entity.GroupKindRoom, Name: "Private"})
	require.NoError(t, err)

	conn := env.dial(t, "bob")
	send(t, conn, map[string]string{"type": "subscribe", "topic": TopicMessages + ":" + g.ID})

	f := read(t, conn)
	assert.Equal(t, MessageTypeError, f.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, "NOT_MEMBER", data.Code)
}

func TestPresenceGoesOfflineWhenLastConnectionCloses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.dial(t, "alice")
	second := env.dial(t, "alice")
	require.Eventually(t, func() bool { return env.manager.Connections("alice") == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, first, map[string]interface{}{"type": "presence", "data": map[string]interface{}{"online": true}})
	require.Eventually(t, func() bool {
		p, err := env.services.Presence.Get(ctx, "alice")
		return err == nil && p.Online
	}, 2*time.Second, 10*time.Millisecond)

	p, err := env.services.Presence.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "ALICE", p.DisplayName)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return env.manager.Connections("alice") == 1 }, 2*time.Second, 10*time.Millisecond)
	p, err = env.services.Presence.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.Online)

	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool {
		p, err := env.services.Presence.Get(ctx, "alice")
		return err == nil && !p.Online
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeUnknownTopic(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "alice")

	send(t, conn, map[string]string{"type": "unsubscribe", "topic": TopicPresence})
	assert.Equal(t, MessageTypeError, read(t, conn).Type)

	send(t, conn, map[string]string{"type": "subscribe", "topic": TopicPresence})
	assert.Equal(t, MessageTypeSnapshot, read(t, conn).Type)
	send(t, conn, map[string]string{"type": "unsubscribe", "topic": TopicPresence})
	send(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, MessageTypePong, read(t, conn).Type)
}
