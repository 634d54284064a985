package signaling

import (
	"errors"
	"reflect"
	"testing"
)

func TestRoomStoreCreate(t *testing.T) {
	s := NewRoomStore()

	snap, err := s.Create("r1", "host")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if snap.Host != "host" || !reflect.DeepEqual(snap.Members, []string{"host"}) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := s.Create("r1", "other"); !errors.Is(err, ErrDuplicateRoom) {
		t.Errorf("expected ErrDuplicateRoom, got %v", err)
	}
}

func TestRoomStoreMembershipOrder(t *testing.T) {
	s := NewRoomStore()
	s.Create("r1", "a")

	s.AddMember("r1", "b")
	snap, err := s.AddMember("r1", "c")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if !reflect.DeepEqual(snap.Members, []string{"a", "b", "c"}) {
		t.Errorf("members out of join order: %v", snap.Members)
	}

	// Adding an existing member must not duplicate it.
	snap, _ = s.AddMember("r1", "b")
	if !reflect.DeepEqual(snap.Members, []string{"a", "b", "c"}) {
		t.Errorf("duplicate add changed membership: %v", snap.Members)
	}

	if _, err := s.AddMember("nope", "x"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomStoreHostSuccession(t *testing.T) {
	s := NewRoomStore()
	s.Create("r1", "a")
	s.AddMember("r1", "b")
	s.AddMember("r1", "c")

	// Removing a non-host member leaves the host alone.
	res, err := s.RemoveMember("r1", "b")
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if res.HostChanged || res.Room.Host != "a" {
		t.Errorf("host should be unchanged: %+v", res)
	}

	// Removing the host elects the earliest-joined remaining member.
	res, _ = s.RemoveMember("r1", "a")
	if !res.HostChanged || res.Room.Host != "c" {
		t.Errorf("expected c as new host: %+v", res)
	}

	// Last member out deletes the room.
	res, _ = s.RemoveMember("r1", "c")
	if !res.Deleted {
		t.Errorf("expected room deletion: %+v", res)
	}
	if _, ok := s.Get("r1"); ok {
		t.Error("deleted room still resolvable")
	}
}

func TestRoomStoreRemoveNonMember(t *testing.T) {
	s := NewRoomStore()
	s.Create("r1", "a")

	res, err := s.RemoveMember("r1", "ghost")
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if res.Deleted || res.HostChanged {
		t.Errorf("non-member removal must be a no-op: %+v", res)
	}
	if !reflect.DeepEqual(res.Room.Members, []string{"a"}) {
		t.Errorf("membership changed: %v", res.Room.Members)
	}
}

func TestRoomStoreSnapshotIsolation(t *testing.T) {
	s := NewRoomStore()
	snap, _ := s.Create("r1", "a")
	snap.Members[0] = "mutated"

	got, _ := s.Get("r1")
	if got.Members[0] != "a" {
		t.Error("snapshot mutation leaked into the store")
	}
}
