package relay

import (
	"encoding/json"
	"testing"
	"time"
)

func itemUpdateMsg(deviceID, name string, value any) *Message {
	result, _ := json.Marshal(map[string]any{
		"deviceId": deviceID,
		"_id":      "item-1",
		"name":     name,
		"value":    value,
	})
	return &Message{ID: BroadcastID, MsgSubclass: subclassItemUpdated, Result: result}
}

func TestBroadcastRouter_DispatchToObserver(t *testing.T) {
	r := newBroadcastRouter()
	got := make(chan ItemUpdate, 1)
	r.register("dev-1", func(u ItemUpdate) { got <- u })

	r.dispatch(itemUpdateMsg("dev-1", "dimmer", 42))

	select {
	case update := <-got:
		if update.DeviceID != "dev-1" || update.Name != "dimmer" {
			t.Errorf("update = %+v", update)
		}
		if update.Value != float64(42) {
			t.Errorf("Value = %v, want 42", update.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("observer never invoked")
	}
}

func TestBroadcastRouter_NoObserverDropsQuietly(t *testing.T) {
	r := newBroadcastRouter()
	// Devices may broadcast before an observer is attached
	r.dispatch(itemUpdateMsg("dev-unknown", "dimmer", 1))
}

func TestBroadcastRouter_LastRegistrationWins(t *testing.T) {
	r := newBroadcastRouter()
	first := make(chan ItemUpdate, 1)
	second := make(chan ItemUpdate, 1)
	r.register("dev-1", func(u ItemUpdate) { first <- u })
	r.register("dev-1", func(u ItemUpdate) { second <- u })

	r.dispatch(itemUpdateMsg("dev-1", "dimmer", 1))

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("replacement observer never invoked")
	}
	select {
	case <-first:
		t.Error("replaced observer was invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastRouter_ObserverPanicContained(t *testing.T) {
	r := newBroadcastRouter()
	invoked := make(chan struct{}, 2)
	r.register("dev-bad", func(u ItemUpdate) {
		invoked <- struct{}{}
		panic("observer bug")
	})

	r.dispatch(itemUpdateMsg("dev-bad", "dimmer", 1))
	select {
	case <-invoked:
	case <-time.After(time.Second):
		t.Fatal("observer never invoked")
	}

	// A panicking observer must not poison later dispatches
	r.dispatch(itemUpdateMsg("dev-bad", "dimmer", 2))
	select {
	case <-invoked:
	case <-time.After(time.Second):
		t.Fatal("observer not invoked after earlier panic")
	}
}

func TestBroadcastRouter_OtherSubclassIgnored(t *testing.T) {
	r := newBroadcastRouter()
	got := make(chan ItemUpdate, 1)
	r.register("dev-1", func(u ItemUpdate) { got <- u })

	result, _ := json.Marshal(map[string]any{"deviceId": "dev-1"})
	r.dispatch(&Message{ID: BroadcastID, MsgSubclass: "hub.network.changed", Result: result})

	select {
	case <-got:
		t.Error("observer invoked for a non-item subclass")
	case <-time.After(50 * time.Millisecond):
	}
}
