package chat

import (
	"testing"

	"relaychat/internal/app/user"
)

func testUser(id, name string) user.User {
	return user.User{UserID: id, Username: name, Role: user.RoleUser}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u1", "alice")})

	rec, ok := r.Get("conn-1")
	if !ok {
		t.Fatal("expected conn-1 to be registered")
	}
	if rec.User.UserID != "u1" {
		t.Fatalf("got user id %q, want u1", rec.User.UserID)
	}
	if r.Len() != 1 {
		t.Fatalf("got %d connections, want 1", r.Len())
	}
}

func TestRegistryRegisterReplacesSameConnID(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u1", "alice")})
	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u2", "bob")})

	if r.Len() != 1 {
		t.Fatalf("got %d connections, want 1 after re-registration", r.Len())
	}

	rec, _ := r.Get("conn-1")
	if rec.User.UserID != "u2" {
		t.Fatalf("got user id %q, want u2 after re-registration", rec.User.UserID)
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u1", "alice")})

	rec, ok := r.Unregister("conn-1")
	if !ok || rec.User.UserID != "u1" {
		t.Fatalf("first unregister: got (%v, %v), want record for u1", rec, ok)
	}

	if _, ok := r.Unregister("conn-1"); ok {
		t.Fatal("second unregister of the same connection must report absence")
	}

	if _, ok := r.Unregister("never-registered"); ok {
		t.Fatal("unregister of unknown connection must report absence")
	}
}

func TestRegistryFindByUserID(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u1", "alice")})
	r.Register(&ConnectedUser{ConnID: "conn-2", User: testUser("u2", "bob")})

	rec, ok := r.FindByUserID("u2")
	if !ok || rec.ConnID != "conn-2" {
		t.Fatalf("got (%v, %v), want conn-2 for u2", rec, ok)
	}

	if _, ok := r.FindByUserID("u3"); ok {
		t.Fatal("expected no record for unknown user id")
	}
}

func TestRegistryListAllSortedByUserID(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u3", "carol")})
	r.Register(&ConnectedUser{ConnID: "conn-2", User: testUser("u1", "alice")})
	r.Register(&ConnectedUser{ConnID: "conn-3", User: testUser("u2", "bob")})

	users := r.ListAll()
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}

	for i, want := range []string{"u1", "u2", "u3"} {
		if users[i].UserID != want {
			t.Fatalf("position %d: got %q, want %q", i, users[i].UserID, want)
		}
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()

	r.Register(&ConnectedUser{ConnID: "conn-1", User: testUser("u1", "alice")})

	snapshot := r.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("got snapshot of %d, want 1", len(snapshot))
	}

	r.Unregister("conn-1")

	if len(snapshot) != 1 {
		t.Fatal("snapshot must not track later registry mutations")
	}
}
