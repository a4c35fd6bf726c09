package strata

import (
	"errors"
	"testing"
	"time"
)

func recvEvent(t *testing.T, sub *Subscription) StoreEvent {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return StoreEvent{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SubscribeAndPublish(t *testing.T) {
	hub := NewChangeHub(DefaultStreamConfig())
	sub := hub.Subscribe(NewEntityPath("world"))
	defer hub.Unsubscribe(sub.ID)

	if hub.Count() != 1 {
		t.Fatalf("Count = %d, want 1", hub.Count())
	}
	if ids := hub.List(); len(ids) != 1 || ids[0] != sub.ID {
		t.Errorf("List = %v", ids)
	}

	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(1), Entity: NewEntityPath("world/robot")})

	ev := recvEvent(t, sub)
	if ev.Kind != EventAddition || ev.ChunkID != cid(1) {
		t.Errorf("event = %+v", ev)
	}
}

func TestHub_PrefixFiltering(t *testing.T) {
	hub := NewChangeHub(DefaultStreamConfig())
	robot := hub.Subscribe(NewEntityPath("world/robot"))
	root := hub.Subscribe(NewEntityPath(""))

	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(1), Entity: NewEntityPath("world/other")})

	// The root subscription matches everything; the robot one must not.
	recvEvent(t, root)
	assertNoEvent(t, robot)

	// The exact entity and its descendants both match.
	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(2), Entity: NewEntityPath("world/robot")})
	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(3), Entity: NewEntityPath("world/robot/cam")})
	if recvEvent(t, robot).ChunkID != cid(2) {
		t.Error("exact match should deliver first")
	}
	if recvEvent(t, robot).ChunkID != cid(3) {
		t.Error("descendant match should deliver second")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewChangeHub(DefaultStreamConfig())
	sub := hub.Subscribe(NewEntityPath(""))

	hub.Unsubscribe(sub.ID)
	if hub.Count() != 0 {
		t.Errorf("Count = %d, want 0", hub.Count())
	}

	// The channel is closed; publishing afterwards delivers nothing.
	if _, ok := <-sub.C(); ok {
		t.Error("closed subscription channel should be drained")
	}

	// Double unsubscribe and double close are safe.
	hub.Unsubscribe(sub.ID)
	sub.Close()
}

func TestHub_PublishAfterSubscriberClose(t *testing.T) {
	hub := NewChangeHub(DefaultStreamConfig())
	sub := hub.Subscribe(NewEntityPath(""))

	sub.Close()
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}

	// A consumer may close its subscription at any time; the next publish
	// must neither panic nor deliver to it.
	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(1), Entity: NewEntityPath("e")})
	assertNoEvent(t, sub)

	hub.Unsubscribe(sub.ID)
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed once unsubscribed")
	}
}

func TestHub_DropsOnFullBuffer(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.BufferSize = 1
	hub := NewChangeHub(cfg)
	sub := hub.Subscribe(NewEntityPath(""))
	defer hub.Unsubscribe(sub.ID)

	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(1), Entity: NewEntityPath("e")})
	hub.Publish(StoreEvent{Kind: EventAddition, ChunkID: cid(2), Entity: NewEntityPath("e")})

	if recvEvent(t, sub).ChunkID != cid(1) {
		t.Error("first event should be buffered")
	}
	assertNoEvent(t, sub)
}

func TestStore_PublishesThroughHub(t *testing.T) {
	s := NewStore(DefaultConfig())
	hub := NewChangeHub(DefaultStreamConfig())
	s.AttachHub(hub)
	if s.Hub() != hub {
		t.Fatal("hub should be attached")
	}

	sub, err := s.Subscribe(NewEntityPath("world"))
	if err != nil {
		t.Fatal(err)
	}
	defer hub.Unsubscribe(sub.ID)

	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}}))
	ev := recvEvent(t, sub)
	if ev.Kind != EventAddition || ev.ChunkID != cid(1) {
		t.Errorf("insert event = %+v", ev)
	}

	s.Remove(cid(1))
	ev = recvEvent(t, sub)
	if ev.Kind != EventDeletion || ev.ChunkID != cid(1) {
		t.Errorf("remove event = %+v", ev)
	}
	if ev.Chunk == nil || ev.Chunk.NumRows() != 1 {
		t.Error("deletion should carry the last chunk reference")
	}
}

func TestStore_StreamEnabledByConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stream.Enabled = true
	s := NewStore(cfg)

	if s.Hub() == nil {
		t.Fatal("enabling stream config should attach a hub")
	}
	sub, err := s.Subscribe(NewEntityPath("world"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Hub().Unsubscribe(sub.ID)

	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}}))
	if ev := recvEvent(t, sub); ev.ChunkID != cid(1) {
		t.Errorf("event = %+v", ev)
	}
}

func TestStore_SubscribeWithoutHub(t *testing.T) {
	s := NewStore(DefaultConfig())
	if _, err := s.Subscribe(NewEntityPath("")); !errors.Is(err, ErrStreamingDisabled) {
		t.Errorf("expected ErrStreamingDisabled, got %v", err)
	}
}

func TestToStreamEvent(t *testing.T) {
	chunk := tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}, {2, 20}})
	ev := toStreamEvent(StoreEvent{
		Kind:    EventDeletion,
		ChunkID: chunk.ID(),
		Entity:  chunk.Entity(),
		Chunk:   chunk,
	})

	if ev.Kind != "deletion" {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.Entity != "world/robot" || ev.NumRows != 2 {
		t.Errorf("event = %+v", ev)
	}
	if ev.ChunkID != chunk.ID().String() {
		t.Errorf("ChunkID = %q", ev.ChunkID)
	}
}
