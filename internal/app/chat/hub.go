package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

// AuthVerifier is the pluggable identity check the hub runs before
// accepting an auth event. The relay itself never verifies the asserted
// identity; deployments that need verification supply a hook. A nil
// verifier trusts the upstream login flow.
type AuthVerifier func(p AuthPayload) error

// Hub coordinates the relay: session arbitration, message and typing
// fan-out, and join/leave notifications. The Registry is its only
// mutable state; everything else is a stateless transformation over
// events plus registry reads.
type Hub struct {
	registry *Registry
	verify   AuthVerifier

	// mu makes the evict-then-register sequence atomic with respect to
	// concurrent authentications for the same user id.
	mu sync.Mutex

	logger zerolog.Logger
}

// NewHub constructs a Hub. verify may be nil.
func NewHub(verify AuthVerifier) *Hub {
	return &Hub{
		registry: NewRegistry(),
		verify:   verify,
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Registry exposes the connection registry for read-side consumers such
// as the online-users endpoint.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// OnlineUsers returns the current presence snapshot.
func (h *Hub) OnlineUsers() []user.User {
	return h.registry.ListAll()
}

// Authenticate handles an auth event on connection c: it runs the
// verifier, evicts any older connection of the same logical user, binds
// c in the registry, answers c with the users snapshot, and announces
// the join to everyone else.
func (h *Hub) Authenticate(c *Client, p AuthPayload) {
	if p.UserID == "" || p.Username == "" || !p.Role.IsValid() {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Str("user_id", p.UserID).
			Msg("Rejecting auth event with incomplete identity")
		return
	}

	if h.verify != nil {
		if err := h.verify(p); err != nil {
			h.logger.Warn().
				Str("conn_id", c.connID).
				Str("user_id", p.UserID).
				Err(err).
				Msg("Identity verification failed, closing connection")
			c.ClosePolicyViolation("identity verification failed")
			return
		}
	}

	u := user.User{
		UserID:   p.UserID,
		Username: p.Username,
		Role:     p.Role,
		Avatar:   p.Avatar,
	}

	h.mu.Lock()

	var evicted *ConnectedUser
	if old, ok := h.registry.FindByUserID(p.UserID); ok && old.ConnID != c.connID {
		// Last login wins: the stale connection goes first so the
		// single-session invariant holds before c is bound. Only the
		// path that actually removed the entry announces the
		// departure; if a natural disconnect got there first, its
		// cleanup already did.
		if _, removed := h.registry.Unregister(old.ConnID); removed {
			evicted = old
		}
	}

	// Leave notification targets are captured before c is registered:
	// at the moment of the eviction c is not yet a connected party.
	leaveTargets := h.registry.Snapshot()

	h.registry.Register(&ConnectedUser{ConnID: c.connID, User: u, client: c})

	users := h.registry.ListAll()
	joinTargets := h.registry.Snapshot()

	h.mu.Unlock()

	if evicted != nil {
		evicted.client.Kick(errs.NewError(errs.ErrSessionReplaced).Message)
		h.fanOut(EventUserLeft, UserEventPayload{User: leaveIdentity(evicted.User)}, leaveTargets, "")

		h.logger.Info().
			Str("user_id", u.UserID).
			Str("old_conn_id", evicted.ConnID).
			Str("new_conn_id", c.connID).
			Msg("Evicted stale session for re-authenticating user")
	}

	if err := c.sendEvent(EventUsersList, UsersListPayload{Users: users}); err != nil {
		h.logger.Warn().Str("conn_id", c.connID).Err(err).Msg("Failed to queue users-list snapshot")
	}

	h.fanOut(EventUserJoined, UserEventPayload{User: u}, joinTargets, c.connID)

	h.logger.Info().
		Str("user_id", u.UserID).
		Str("username", u.Username).
		Int("online", len(users)).
		Msg("User joined the relay")
}

// HandleMessage validates the sender's identity and fans the message out
// to every connection, the sender included. Invalid events are dropped
// silently so a spoofing client learns nothing about registry state.
func (h *Hub) HandleMessage(c *Client, p MessagePayload) {
	rec, ok := h.registry.Get(c.connID)
	if !ok || rec.User.UserID != p.UserID {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Str("claimed_user_id", p.UserID).
			Msg("Dropping message event with mismatched identity")
		return
	}

	if !p.Type.ValidInbound() {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Str("msg_type", string(p.Type)).
			Msg("Dropping message event with invalid type")
		return
	}

	if len(p.Content) > MaxContentBytes {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Int("content_bytes", len(p.Content)).
			Msg("Dropping oversized message event")
		return
	}

	// Identity fields come from the registry record, never from the
	// event payload.
	msg := ChatMessage{
		ID:        randx.MessageID(),
		Content:   p.Content,
		Type:      p.Type,
		UserID:    rec.User.UserID,
		Username:  rec.User.Username,
		Avatar:    rec.User.Avatar,
		File:      p.File,
		Timestamp: time.Now().UnixMilli(),
	}

	h.fanOut(EventMessage, msg, h.registry.Snapshot(), "")
}

// HandleTyping validates the sender's identity and forwards the typing
// signal to every connection except the sender. No state is retained and
// no coalescing is performed.
func (h *Hub) HandleTyping(c *Client, p TypingPayload) {
	rec, ok := h.registry.Get(c.connID)
	if !ok || rec.User.UserID != p.UserID {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Str("claimed_user_id", p.UserID).
			Msg("Dropping typing event with mismatched identity")
		return
	}

	notification := TypingEventPayload{
		UserID:   rec.User.UserID,
		Username: rec.User.Username,
		IsTyping: p.IsTyping,
	}

	h.fanOut(EventUserTyping, notification, h.registry.Snapshot(), c.connID)
}

// Disconnect runs the cleanup path for connection c. It is idempotent:
// a second call (eviction racing a natural disconnect) finds the
// registry entry gone and does nothing, so at most one user-left event
// is produced per connection. Disconnects before authentication produce
// no event at all.
func (h *Hub) Disconnect(c *Client) {
	rec, ok := h.registry.Unregister(c.connID)

	c.closeSend()

	if !ok {
		return
	}

	h.fanOut(EventUserLeft, UserEventPayload{User: leaveIdentity(rec.User)}, h.registry.Snapshot(), "")

	h.logger.Info().
		Str("user_id", rec.User.UserID).
		Int("online", h.registry.Len()).
		Msg("User left the relay")
}

// Shutdown closes every connected client. No leave events are emitted;
// the process is going away with everyone on board.
func (h *Hub) Shutdown() {
	for _, rec := range h.registry.Snapshot() {
		h.registry.Unregister(rec.ConnID)
		rec.client.CloseGoingAway()
	}

	h.logger.Info().Msg("Hub shutdown complete")
}

// fanOut delivers one event to every target except the connection named
// by exceptConnID. The target set is a registry snapshot copied out
// beforehand, so no lock is held for the duration of the delivery loop.
// Per-sender ordering is preserved because each inbound connection is
// read by a single goroutine.
func (h *Hub) fanOut(event string, data any, targets []*ConnectedUser, exceptConnID string) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error().Str("event", event).Err(err).Msg("Failed to encode broadcast event")
		return
	}

	for _, rec := range targets {
		if rec.ConnID == exceptConnID {
			continue
		}

		if err := rec.client.enqueue(frame); err != nil {
			h.logger.Warn().
				Str("conn_id", rec.ConnID).
				Str("user_id", rec.User.UserID).
				Str("event", event).
				Err(err).
				Msg("Send queue unavailable, disconnecting client")

			h.Disconnect(rec.client)
		}
	}
}

// leaveIdentity strips the avatar from a user record; leave events carry
// only userId, username, and role.
func leaveIdentity(u user.User) user.User {
	return user.User{
		UserID:   u.UserID,
		Username: u.Username,
		Role:     u.Role,
	}
}
