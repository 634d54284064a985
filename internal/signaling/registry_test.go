package signaling

import "testing"

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	r.Register("c1")
	if !r.Registered("c1") {
		t.Fatal("c1 should be registered")
	}
	if _, ok := r.RoomOf("c1"); ok {
		t.Error("fresh connection should not be in a room")
	}

	r.Bind("c1", "room-1")
	if roomID, ok := r.RoomOf("c1"); !ok || roomID != "room-1" {
		t.Errorf("RoomOf = %q, %v", roomID, ok)
	}

	r.Bind("c1", "")
	if _, ok := r.RoomOf("c1"); ok {
		t.Error("binding should be cleared")
	}

	r.Deregister("c1")
	if r.Registered("c1") {
		t.Error("c1 should be gone")
	}
}

func TestRegistryBindUnregistered(t *testing.T) {
	r := NewRegistry()

	r.Bind("ghost", "room-1")
	if r.Registered("ghost") {
		t.Error("binding must not resurrect an unregistered connection")
	}

	// Deregistering twice is harmless.
	r.Deregister("ghost")
}
