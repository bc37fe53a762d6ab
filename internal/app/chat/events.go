/*
Package chat implements the real-time presence-and-message relay: a
registry of live connections keyed by connection id, single-session
arbitration per logical user, and fan-out of chat messages, typing
signals, and join/leave notifications.

This file defines the wire-level event vocabulary. Every frame is a JSON
envelope {"event": name, "data": payload}.
*/
package chat

import (
	"encoding/json"

	"relaychat/internal/app/user"
)

// Client-to-relay event names.
const (
	EventAuth    = "auth"
	EventMessage = "message"
	EventTyping  = "typing"
)

// Relay-to-client event names.
const (
	EventUsersList  = "users-list"
	EventUserJoined = "user-joined"
	EventUserTyping = "user-typing"
	EventUserLeft   = "user-left"
)

// MaxContentBytes caps the content of a relayed message.
const MaxContentBytes = 5000

// Envelope is the frame wrapper for every relay event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeEvent marshals an outbound event into wire bytes.
func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Event: event, Data: raw})
}

// MessageType classifies a relayed message.
type MessageType string

const (
	TypeText   MessageType = "TEXT"
	TypeImage  MessageType = "IMAGE"
	TypeFile   MessageType = "FILE"
	TypeSystem MessageType = "SYSTEM"
)

// ValidInbound reports whether clients may send this message type.
// SYSTEM is reserved for server-generated messages.
func (t MessageType) ValidInbound() bool {
	return t == TypeText || t == TypeImage || t == TypeFile
}

// AuthPayload is the identity a client asserts when joining the relay.
// Token is optional and only checked when an identity verifier is
// configured.
type AuthPayload struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	Avatar   string    `json:"avatar,omitempty"`
	Token    string    `json:"token,omitempty"`
}

// MessagePayload is an inbound chat message event.
type MessagePayload struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
	UserID  string      `json:"userId"`
	File    *Attachment `json:"file,omitempty"`
}

// TypingPayload is an inbound typing signal.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// UsersListPayload is the snapshot sent to a newly authenticated
// connection.
type UsersListPayload struct {
	Users []user.User `json:"users"`
}

// UserEventPayload carries the subject of a join or leave notification.
type UserEventPayload struct {
	User user.User `json:"user"`
}

// TypingEventPayload is the typing notification fanned out to everyone
// except the sender.
type TypingEventPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// Attachment is the metadata of an uploaded file referenced by a
// message. The relay forwards it without fetching the file.
type Attachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
}

// ChatMessage is one relayed message. It is built by the relay on
// acceptance, broadcast immediately, and not retained.
type ChatMessage struct {
	ID       string      `json:"id"`
	Content  string      `json:"content"`
	Type     MessageType `json:"type"`
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Avatar   string      `json:"avatar,omitempty"`
	File     *Attachment `json:"file,omitempty"`

	// Timestamp is the server acceptance time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}
