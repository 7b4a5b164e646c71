package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

// Client frame types
const (
	MessageTypePing        = "ping"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeTyping      = "typing"
	MessageTypePresence    = "presence"
)

// Server frame types
const (
	MessageTypePong     = "pong"
	MessageTypeSnapshot = "snapshot"
	MessageTypeError    = "error"
)

// Topics. Parameterised topics carry the id after the colon.
const (
	TopicGroups     = "groups"
	TopicMyGroups   = "my_groups"
	TopicMessages   = "messages"
	TopicDMMessages = "dm_messages"
	TopicDMs        = "dms"
	TopicPresence   = "presence"
	TopicTyping     = "typing"
)

// WSMessage is the frame format in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type serverMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type TypingData struct {
	GroupID string `json:"group_id"`
	Typing  bool   `json:"typing"`
}

type PresenceData struct {
	Online      bool   `json:"online"`
	CurrentRoom string `json:"current_room"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// splitTopic returns the topic kind and its id, if any.
func splitTopic(topic string) (kind, id string) {
	kind, id, _ = strings.Cut(topic, ":")
	return kind, id
}

// HandleClientMessage dispatches one frame from client.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		logger.Debug("WebSocket: invalid frame from %s: %v", client.UserID, err)
		m.sendError(client, "", errors.BadRequest("Invalid message format", err))
		return
	}
	metrics.IncWSEvent(msg.Type)

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, serverMessage{Type: MessageTypePong})

	case MessageTypeSubscribe:
		m.handleSubscribe(client, msg.Topic)

	case MessageTypeUnsubscribe:
		if !client.unsubscribe(msg.Topic) {
			m.sendError(client, msg.Topic, errors.BadRequest("Not subscribed to "+msg.Topic, nil))
		}

	case MessageTypeTyping:
		m.handleTyping(client, msg.Data)

	case MessageTypePresence:
		m.handlePresence(client, msg.Data)

	default:
		logger.Debug("WebSocket: unknown message type '%s' from %s", msg.Type, client.UserID)
		m.sendError(client, "", errors.BadRequest("Unknown message type", nil))
	}
}

func (m *Manager) handleSubscribe(client *Client, topic string) {
	kind, id := splitTopic(topic)
	ctx := client.ctx
	s := m.services

	var (
		stop func()
		err  error
	)
	switch {
	case kind == TopicGroups && id == "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Group], error) {
			return s.Groups.Subscribe(ctx, entity.GroupFilter{})
		})
	case kind == TopicMyGroups && id == "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Group], error) {
			return s.Groups.Subscribe(ctx, entity.GroupFilter{MemberID: client.UserID})
		})
	case kind == TopicMessages && id != "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Message], error) {
			return s.Messages.Subscribe(ctx, id, client.UserID)
		})
	case kind == TopicDMMessages && id != "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Message], error) {
			return s.DMs.SubscribeMessages(ctx, id, client.UserID)
		})
	case kind == TopicDMs && id == "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Conversation], error) {
			return s.DMs.Subscribe(ctx, client.UserID)
		})
	case kind == TopicPresence && id == "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]*entity.Presence], error) {
			return s.Presence.SubscribeOnline(ctx)
		})
	case kind == TopicTyping && id != "":
		stop, err = forward(m, client, topic, kind, func() (*repository.Subscription[[]string], error) {
			return s.Typing.Subscribe(ctx, id, client.UserID)
		})
	default:
		err = errors.BadRequest("Unknown topic: "+topic, nil)
	}
	if err != nil {
		m.sendError(client, topic, err)
		return
	}

	client.subscribe(topic, stop)
}

// forward opens a subscription and relays each snapshot to client as a
// snapshot frame. The returned func stops it.
func forward[T any](m *Manager, client *Client, topic, kind string, open func() (*repository.Subscription[T], error)) (func(), error) {
	sub, err := open()
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptions(kind)

	go func() {
		defer metrics.DecSubscriptions(kind)
		for v := range sub.C() {
			m.sendToClient(client, serverMessage{Type: MessageTypeSnapshot, Topic: topic, Data: v})
		}
		if err := sub.Err(); err != nil {
			logger.Error("Subscription %s for %s failed: %v", topic, client.UserID, err)
			m.sendError(client, topic, err)
		}
	}()

	return sub.Close, nil
}

func (m *Manager) handleTyping(client *Client, raw json.RawMessage) {
	var data TypingData
	if err := json.Unmarshal(raw, &data); err != nil || data.GroupID == "" {
		m.sendError(client, "", errors.BadRequest("Invalid typing data", err))
		return
	}

	ctx, cancel := context.WithTimeout(client.ctx, writeWait)
	defer cancel()
	if err := m.services.Typing.SetTyping(ctx, data.GroupID, client.UserID, data.Typing); err != nil {
		m.sendError(client, TopicTyping+":"+data.GroupID, err)
	}
}

func (m *Manager) handlePresence(client *Client, raw json.RawMessage) {
	var data PresenceData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.sendError(client, "", errors.BadRequest("Invalid presence data", err))
		return
	}

	ctx, cancel := context.WithTimeout(client.ctx, writeWait)
	defer cancel()

	var err error
	if data.Online {
		name := data.DisplayName
		if name == "" {
			name = client.UserName
		}
		meta := entity.PresenceMeta{DisplayName: name, PhotoURL: data.PhotoURL}
		err = m.services.Presence.SetOnline(ctx, client.UserID, meta, data.CurrentRoom)
	} else {
		err = m.services.Presence.SetOffline(ctx, client.UserID)
	}
	if err != nil {
		m.sendError(client, TopicPresence, err)
	}
}

// subscribe records stop under topic, replacing any earlier subscription.
func (c *Client) subscribe(topic string, stop func()) {
	c.mu.Lock()
	previous := c.subs[topic]
	c.subs[topic] = stop
	c.mu.Unlock()

	if previous != nil {
		previous()
	}
}

func (c *Client) unsubscribe(topic string) bool {
	c.mu.Lock()
	stop, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()

	if ok {
		stop()
	}
	return ok
}

func (m *Manager) sendToClient(client *Client, message serverMessage) {
	message.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	messageBytes, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal frame for %s: %v", client.UserID, err)
		return
	}

	select {
	case client.Send <- messageBytes:
	case <-client.ctx.Done():
	}
}

func (m *Manager) sendError(client *Client, topic string, err error) {
	data := ErrorData{Code: errors.CodeOf(err), Message: err.Error()}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		data.Message = appErr.Message
	}
	m.sendToClient(client, serverMessage{Type: MessageTypeError, Topic: topic, Data: data})
}

var _ usecase.DisconnectHooks = (*Manager)(nil)
