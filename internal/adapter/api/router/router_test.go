package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulcircle/internal/adapter/api"
	"soulcircle/internal/adapter/api/handler"
	"soulcircle/internal/adapter/api/middleware"
	"soulcircle/internal/adapter/repository/memory"
	"soulcircle/internal/infrastructure/firebase"
	"soulcircle/internal/infrastructure/ratelimit"
	ws "soulcircle/internal/infrastructure/websocket"
	"soulcircle/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type listData struct {
	Items json.RawMessage `json:"items"`
	Count int             `json:"count"`
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.NewStore()
	limiter := ratelimit.NewRateLimiter()

	groupRepo := memory.NewGroupRepository(store)
	messageRepo := memory.NewMessageRepository(store)
	userRepo := memory.NewUserRepository(store)

	groups := usecase.NewGroupUseCase(groupRepo, limiter)
	messages := usecase.NewMessageUseCase(messageRepo, groupRepo, limiter, 50)
	dms := usecase.NewDMUseCase(memory.NewConversationRepository(store), messageRepo, userRepo, limiter, 50)
	presence := usecase.NewPresenceUseCase(memory.NewPresenceRepository(store))
	typing := usecase.NewTypingUseCase(memory.NewTypingRepository(store), groupRepo, limiter, 3*time.Second)
	users := usecase.NewUserUseCase(userRepo, nil)
	notes := usecase.NewFeelNoteUseCase(memory.NewFeelNoteRepository(store), userRepo)
	moods := usecase.NewMoodUseCase(memory.NewMoodRepository(store))

	manager := ws.NewManager(ws.Services{Groups: groups, Messages: messages, DMs: dms, Presence: presence, Typing: typing})

	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, Handlers{
		Group:     handler.NewGroupHandler(groups),
		Message:   handler.NewMessageHandler(messages),
		Presence:  handler.NewPresenceHandler(presence, typing),
		DM:        handler.NewDMHandler(dms),
		User:      handler.NewUserHandler(users),
		Journal:   handler.NewJournalHandler(notes, moods),
		Health:    handler.NewHealthHandler("memory"),
		WebSocket: handler.NewWebSocketHandler(manager, "*"),
	}, middleware.NewAuthMiddleware(firebase.DevTokenVerifier{}, users))
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, uid, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+firebase.DevToken(uid, strings.ToUpper(uid[:1])+uid[1:]))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestAuthRequired(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodGet, "/v1/groups", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/groups", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	e := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGroupCapacityOverHTTP(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodPost, "/v1/groups", "alice", `{"kind":"circle","name":"Small Circle","max_members":2}`)
	require.Equal(t, http.StatusCreated, code)
	var group struct {
		ID          string `json:"id"`
		MemberCount int    `json:"member_count"`
		InviteCode  string `json:"invite_code"`
	}
	decode(t, env.Data, &group)
	assert.Equal(t, 1, group.MemberCount)

	code, _ = do(t, e, http.MethodPost, "/v1/groups/join-by-code", "bob", `{"invite_code":"`+group.InviteCode+`"}`)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/join", "carol", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CAPACITY_EXCEEDED", env.Error.Code)

	code, env = do(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/join", "bob", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_MEMBER", env.Error.Code)

	code, env = do(t, e, http.MethodDelete, "/v1/groups/"+group.ID, "bob", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "NOT_AUTHORIZED", env.Error.Code)
}

func TestValidationErrors(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodPost, "/v1/groups", "alice", `{"kind":"party","name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = do(t, e, http.MethodPost, "/v1/moods", "alice", `{"mood":"calm","score":42}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestMessagesOverHTTP(t *testing.T) {
	e := newServer(t)

	_, env := do(t, e, http.MethodPost, "/v1/groups", "alice", `{"kind":"room","name":"Evening Room"}`)
	var group struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &group)
	do(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/join", "bob", "")

	code, _ := do(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/messages", "alice", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/messages", "bob", `{"text":"hi"}`)
	require.Equal(t, http.StatusCreated, code)

	code, env = do(t, e, http.MethodGet, "/v1/groups/"+group.ID+"/messages", "alice", "")
	require.Equal(t, http.StatusOK, code)
	var list listData
	decode(t, env.Data, &list)
	var msgs []struct {
		Text       string `json:"text"`
		SenderName string `json:"sender_name"`
	}
	decode(t, list.Items, &msgs)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "Alice", msgs[0].SenderName)
	assert.Equal(t, "hi", msgs[1].Text)

	code, env = do(t, e, http.MethodGet, "/v1/groups/"+group.ID+"/messages", "carol", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_MEMBER", env.Error.Code)
}

func TestDirectMessagesOverHTTP(t *testing.T) {
	e := newServer(t)

	// bob needs a profile before alice can open a conversation with him
	do(t, e, http.MethodGet, "/v1/users/me", "bob", "")

	code, env := do(t, e, http.MethodPost, "/v1/dms", "alice", `{"user_id":"bob"}`)
	require.Equal(t, http.StatusOK, code)
	var conv struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &conv)
	assert.Equal(t, "alice_bob", conv.ID)

	code, _ = do(t, e, http.MethodPost, "/v1/dms/"+conv.ID+"/messages", "alice", `{"text":"are you ok?"}`)
	require.Equal(t, http.StatusCreated, code)

	_, env = do(t, e, http.MethodGet, "/v1/dms", "bob", "")
	var list listData
	decode(t, env.Data, &list)
	var convs []struct {
		UnreadCount map[string]int `json:"unread_count"`
	}
	decode(t, list.Items, &convs)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount["bob"])

	code, _ = do(t, e, http.MethodPut, "/v1/dms/"+conv.ID+"/read", "bob", "")
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, e, http.MethodGet, "/v1/dms/"+conv.ID+"/messages", "carol", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestJournalOverHTTP(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodGet, "/v1/moods/today", "alice", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, []string{"", "null"}, string(env.Data))

	code, _ = do(t, e, http.MethodPost, "/v1/moods", "alice", `{"mood":"hopeful","score":7}`)
	require.Equal(t, http.StatusCreated, code)

	code, env = do(t, e, http.MethodPost, "/v1/feelnotes", "alice", `{"content":"small wins count"}`)
	require.Equal(t, http.StatusCreated, code)
	var note struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &note)

	code, env = do(t, e, http.MethodPost, "/v1/feelnotes/"+note.ID+"/like", "bob", "")
	require.Equal(t, http.StatusOK, code)
	var liked map[string]int
	decode(t, env.Data, &liked)
	assert.Equal(t, 1, liked["likes"])

	_, env = do(t, e, http.MethodGet, "/v1/feelnotes", "bob", "")
	var list listData
	decode(t, env.Data, &list)
	assert.Equal(t, 1, list.Count)
	assert.NotContains(t, string(list.Items), "alice")
}

func TestProfileIsCreatedLazily(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodGet, "/v1/users/me", "dana", "")
	require.Equal(t, http.StatusOK, code)
	var user struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	decode(t, env.Data, &user)
	assert.Equal(t, "dana", user.ID)
	assert.Equal(t, "Dana", user.DisplayName)

	code, env = do(t, e, http.MethodPut, "/v1/users/me", "dana", `{"bio":"hello there"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "hello there")

	code, _ = do(t, e, http.MethodPost, "/v1/users/me/avatar", "dana", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
