package chat

import (
	"sort"
	"sync"

	"relaychat/internal/app/user"
)

// ConnectedUser binds one live transport connection to a logical
// identity. Records are owned exclusively by the Registry; other
// components hold only connection or user ids.
type ConnectedUser struct {
	// ConnID is the opaque identifier of the transport connection,
	// unique per live socket.
	ConnID string

	// User is the logical identity asserted at authentication time.
	User user.User

	// client delivers outbound frames to this connection.
	client *Client
}

// Registry is the authoritative, mutex-guarded mapping from connection
// id to ConnectedUser. It is the only shared mutable state of the relay;
// all mutations are in-memory with no I/O.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*ConnectedUser
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*ConnectedUser),
	}
}

// Register inserts the record, replacing any existing record for the
// same connection id. Replacement is re-authentication, not an error.
func (r *Registry) Register(rec *ConnectedUser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[rec.ConnID] = rec
}

// Unregister removes the record for connID and returns it. Removing an
// absent entry is a no-op, which keeps the eviction/disconnect race
// harmless.
func (r *Registry) Unregister(connID string) (*ConnectedUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	delete(r.conns, connID)
	return rec, true
}

// Get returns the record bound to connID.
func (r *Registry) Get(connID string) (*ConnectedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.conns[connID]
	return rec, ok
}

// FindByUserID returns the record currently bound to the logical user,
// if any. The single-session invariant guarantees at most one match.
func (r *Registry) FindByUserID(userID string) (*ConnectedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.conns {
		if rec.User.UserID == userID {
			return rec, true
		}
	}

	return nil, false
}

// ListAll returns a snapshot of the connected users, sorted by user id.
func (r *Registry) ListAll() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]user.User, 0, len(r.conns))
	for _, rec := range r.conns {
		users = append(users, rec.User)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})

	return users
}

// Snapshot returns a copy of the current records for lock-free fan-out.
func (r *Registry) Snapshot() []*ConnectedUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*ConnectedUser, 0, len(r.conns))
	for _, rec := range r.conns {
		recs = append(recs, rec)
	}

	return recs
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
