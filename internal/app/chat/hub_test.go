package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

const testReadTimeout = 2 * time.Second

// silenceTimeout is how long a connection must stay quiet before a test
// concludes no event was delivered to it.
const silenceTimeout = 300 * time.Millisecond

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newRelayServer starts an httptest server that upgrades every request
// into a relay client of hub.
func newRelayServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn)
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame, err := encodeEvent(event, data)
	if err != nil {
		t.Fatalf("encoding %s event: %v", event, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("writing %s event: %v", event, err)
	}
}

// readEnvelope reads the next frame, failing the test on timeout.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(testReadTimeout)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}

	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		t.Fatalf("decoding frame %q: %v", frame, err)
	}

	return envelope
}

// expectEvent reads the next frame and decodes its data, failing the test
// if the event name differs.
func expectEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	envelope := readEnvelope(t, conn)
	if envelope.Event != event {
		t.Fatalf("got event %q, want %q", envelope.Event, event)
	}

	if data != nil {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decoding %s data: %v", event, err)
		}
	}
}

// expectSilence asserts that no frame arrives on conn for a short window.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(silenceTimeout)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}

	_, frame, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no frame, got %q", frame)
	}

	var netErr interface{ Timeout() bool }
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
}

// authenticate joins the relay as the given identity and returns the
// users-list snapshot the relay answers with.
func authenticate(t *testing.T, conn *websocket.Conn, u user.User) []user.User {
	t.Helper()

	sendEvent(t, conn, EventAuth, AuthPayload{
		UserID:   u.UserID,
		Username: u.Username,
		Role:     u.Role,
		Avatar:   u.Avatar,
	})

	var snapshot UsersListPayload
	expectEvent(t, conn, EventUsersList, &snapshot)
	return snapshot.Users
}

func TestAuthenticateAnswersWithUsersList(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	conn := dial(t, srv)
	users := authenticate(t, conn, testUser("u1", "alice"))

	if len(users) != 1 || users[0].UserID != "u1" {
		t.Fatalf("got snapshot %+v, want exactly u1", users)
	}
}

func TestJoinNotificationSkipsTheJoiner(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	first := dial(t, srv)
	authenticate(t, first, testUser("u1", "alice"))

	second := dial(t, srv)
	users := authenticate(t, second, testUser("u2", "bob"))

	if len(users) != 2 {
		t.Fatalf("second join got snapshot of %d users, want 2", len(users))
	}

	var joined UserEventPayload
	expectEvent(t, first, EventUserJoined, &joined)
	if joined.User.UserID != "u2" {
		t.Fatalf("first connection saw join of %q, want u2", joined.User.UserID)
	}

	// The joiner must not receive its own join notification.
	expectSilence(t, second)
}

func TestIncompleteAuthIsIgnored(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	conn := dial(t, srv)
	sendEvent(t, conn, EventAuth, AuthPayload{UserID: "u1"})

	expectSilence(t, conn)

	if hub.Registry().Len() != 0 {
		t.Fatalf("got %d registered connections, want 0", hub.Registry().Len())
	}
}

func TestSecondLoginEvictsFirstConnection(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	observer := dial(t, srv)
	authenticate(t, observer, testUser("watcher", "watcher"))

	stale := dial(t, srv)
	authenticate(t, stale, testUser("u1", "alice"))
	expectEvent(t, observer, EventUserJoined, nil)

	fresh := dial(t, srv)
	users := authenticate(t, fresh, testUser("u1", "alice"))

	// The replacement does not double-count the user.
	if len(users) != 2 {
		t.Fatalf("got snapshot of %d users after re-login, want 2", len(users))
	}

	// The stale connection is closed with the session-replaced code and
	// the mapped client-facing reason.
	stale.SetReadDeadline(time.Now().Add(testReadTimeout))
	for {
		_, _, err := stale.ReadMessage()
		if err == nil {
			continue
		}

		var closeErr *websocket.CloseError
		if !errors.As(err, &closeErr) || closeErr.Code != CloseCodeSessionReplaced {
			t.Fatalf("stale connection closed with %v, want close code %d", err, CloseCodeSessionReplaced)
		}
		if want := errs.NewError(errs.ErrSessionReplaced).Message; closeErr.Text != want {
			t.Fatalf("close reason %q, want %q", closeErr.Text, want)
		}
		break
	}

	// Bystanders see the stale session leave and the fresh one join.
	var left UserEventPayload
	expectEvent(t, observer, EventUserLeft, &left)
	if left.User.UserID != "u1" {
		t.Fatalf("observer saw leave of %q, want u1", left.User.UserID)
	}

	var joined UserEventPayload
	expectEvent(t, observer, EventUserJoined, &joined)
	if joined.User.UserID != "u1" {
		t.Fatalf("observer saw join of %q, want u1", joined.User.UserID)
	}

	if rec, ok := hub.Registry().FindByUserID("u1"); !ok || rec.User.Username != "alice" {
		t.Fatalf("registry record after eviction: (%v, %v), want alice bound", rec, ok)
	}
}

// registerQueued binds a pump-free client to the hub's registry so a
// test can inspect its send queue directly.
func registerQueued(h *Hub, u user.User) *Client {
	c := NewClient(h, nil)
	h.registry.Register(&ConnectedUser{ConnID: c.connID, User: u, client: c})
	return c
}

// drainQueued decodes every frame currently buffered on c's send queue.
func drainQueued(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var envelopes []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return envelopes
			}
			var envelope Envelope
			if err := json.Unmarshal(frame, &envelope); err != nil {
				t.Fatalf("decoding queued frame %q: %v", frame, err)
			}
			envelopes = append(envelopes, envelope)
		default:
			return envelopes
		}
	}
}

func TestRepeatedCleanupEmitsSingleUserLeft(t *testing.T) {
	hub := NewHub(nil)

	alice := registerQueued(hub, testUser("u1", "alice"))
	bob := registerQueued(hub, testUser("u2", "bob"))

	// An eviction racing a natural disconnect runs cleanup for the same
	// connection twice; only the first removal may announce it.
	hub.Disconnect(alice)
	hub.Disconnect(alice)

	events := drainQueued(t, bob)
	if len(events) != 1 || events[0].Event != EventUserLeft {
		t.Fatalf("bob queued %+v, want exactly one %s", events, EventUserLeft)
	}

	if hub.Registry().Len() != 1 {
		t.Fatalf("got %d registered connections, want only bob", hub.Registry().Len())
	}
}

func TestReauthAfterNaturalDisconnectAnnouncesNoExtraLeave(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	observer := dial(t, srv)
	authenticate(t, observer, testUser("watcher", "watcher"))

	stale := dial(t, srv)
	authenticate(t, stale, testUser("u1", "alice"))
	expectEvent(t, observer, EventUserJoined, nil)

	// The stale connection goes away on its own before the user returns.
	stale.Close()
	expectEvent(t, observer, EventUserLeft, nil)

	fresh := dial(t, srv)
	authenticate(t, fresh, testUser("u1", "alice"))

	// The departure was already announced; the return is join only.
	var joined UserEventPayload
	expectEvent(t, observer, EventUserJoined, &joined)
	if joined.User.UserID != "u1" {
		t.Fatalf("observer saw join of %q, want u1", joined.User.UserID)
	}

	expectSilence(t, observer)
}

func TestMessageFanOutReachesEveryoneIncludingSender(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, user.User{UserID: "u1", Username: "alice", Role: user.RoleUser, Avatar: "a.png"})

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))
	expectEvent(t, alice, EventUserJoined, nil)

	sendEvent(t, alice, EventMessage, MessagePayload{
		Content: "hello there",
		Type:    TypeText,
		UserID:  "u1",
	})

	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg ChatMessage
		expectEvent(t, conn, EventMessage, &msg)

		if msg.Content != "hello there" || msg.Type != TypeText {
			t.Fatalf("got message %+v, want hello there/TEXT", msg)
		}
		if msg.UserID != "u1" || msg.Username != "alice" || msg.Avatar != "a.png" {
			t.Fatalf("message identity %+v, want alice's registry record", msg)
		}
		if msg.ID == "" || msg.Timestamp == 0 {
			t.Fatalf("message %+v missing server-assigned id or timestamp", msg)
		}
	}
}

func TestSpoofedMessageIsDropped(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, testUser("u1", "alice"))

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))
	expectEvent(t, alice, EventUserJoined, nil)

	// Alice claims to be bob; nobody must see the message.
	sendEvent(t, alice, EventMessage, MessagePayload{
		Content: "impersonated",
		Type:    TypeText,
		UserID:  "u2",
	})

	expectSilence(t, alice)
	expectSilence(t, bob)
}

func TestOversizedMessageIsDropped(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, testUser("u1", "alice"))

	sendEvent(t, alice, EventMessage, MessagePayload{
		Content: strings.Repeat("x", MaxContentBytes+1),
		Type:    TypeText,
		UserID:  "u1",
	})

	expectSilence(t, alice)
}

func TestTypingSignalSkipsTheSender(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, testUser("u1", "alice"))

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))
	expectEvent(t, alice, EventUserJoined, nil)

	sendEvent(t, alice, EventTyping, TypingPayload{UserID: "u1", IsTyping: true})

	var typing TypingEventPayload
	expectEvent(t, bob, EventUserTyping, &typing)
	if typing.UserID != "u1" || typing.Username != "alice" || !typing.IsTyping {
		t.Fatalf("got typing notification %+v, want alice typing", typing)
	}

	expectSilence(t, alice)
}

func TestDisconnectBroadcastsUserLeftWithoutAvatar(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, user.User{UserID: "u1", Username: "alice", Role: user.RoleUser, Avatar: "a.png"})

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))
	expectEvent(t, alice, EventUserJoined, nil)

	alice.Close()

	var left UserEventPayload
	expectEvent(t, bob, EventUserLeft, &left)
	if left.User.UserID != "u1" || left.User.Username != "alice" {
		t.Fatalf("got leave for %+v, want alice", left.User)
	}
	if left.User.Avatar != "" {
		t.Fatalf("leave event carries avatar %q, want none", left.User.Avatar)
	}
}

func TestDisconnectBeforeAuthIsSilent(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))

	anonymous := dial(t, srv)
	anonymous.Close()

	expectSilence(t, bob)
}

func TestMalformedFrameDisconnects(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	bob := dial(t, srv)
	authenticate(t, bob, testUser("u2", "bob"))

	alice := dial(t, srv)
	authenticate(t, alice, testUser("u1", "alice"))
	expectEvent(t, bob, EventUserJoined, nil)

	if err := alice.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("writing malformed frame: %v", err)
	}

	var left UserEventPayload
	expectEvent(t, bob, EventUserLeft, &left)
	if left.User.UserID != "u1" {
		t.Fatalf("got leave for %q, want u1", left.User.UserID)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	hub := NewHub(nil)
	srv := newRelayServer(t, hub)

	alice := dial(t, srv)
	authenticate(t, alice, testUser("u1", "alice"))

	sendEvent(t, alice, "no-such-event", map[string]string{"x": "y"})
	expectSilence(t, alice)

	if hub.Registry().Len() != 1 {
		t.Fatalf("got %d registered connections, want connection to survive", hub.Registry().Len())
	}
}

func TestVerifierRejectionClosesConnection(t *testing.T) {
	hub := NewHub(func(p AuthPayload) error {
		return errors.New("bad identity")
	})
	srv := newRelayServer(t, hub)

	conn := dial(t, srv)
	sendEvent(t, conn, EventAuth, AuthPayload{
		UserID:   "u1",
		Username: "alice",
		Role:     user.RoleUser,
	})

	conn.SetReadDeadline(time.Now().Add(testReadTimeout))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("got %v, want policy violation close", err)
		}
		break
	}

	if hub.Registry().Len() != 0 {
		t.Fatalf("got %d registered connections, want 0 after rejection", hub.Registry().Len())
	}
}

func TestVerifierAcceptancePassesIdentityThrough(t *testing.T) {
	var seen AuthPayload
	hub := NewHub(func(p AuthPayload) error {
		seen = p
		return nil
	})
	srv := newRelayServer(t, hub)

	conn := dial(t, srv)
	sendEvent(t, conn, EventAuth, AuthPayload{
		UserID:   "u1",
		Username: "alice",
		Role:     user.RoleUser,
		Token:    "opaque-token",
	})

	var snapshot UsersListPayload
	expectEvent(t, conn, EventUsersList, &snapshot)

	if seen.Token != "opaque-token" {
		t.Fatalf("verifier saw payload %+v, want the asserted token", seen)
	}
}
