package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, p model.Participant) *Client {
	return &Client{
		hub:         hub,
		conn:        nil,
		participant: p,
		send:        make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, model.P1)
	c2 := mockClient(hub, model.P2)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, model.P1)
	c2 := mockClient(hub, model.P2)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage("occurrence", "toggled", 42, model.P1, map[string]any{"completed": true}))

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "occurrence_toggled" {
			t.Errorf("type = %s, want occurrence_toggled", got.Type)
		}
		if got.ID != 42 {
			t.Errorf("id = %d, want 42", got.ID)
		}
		if got.Actor != model.P1 {
			t.Errorf("actor = %s, want p1", got.Actor)
		}
		if got.Extra["completed"] != true {
			t.Errorf("extra = %v", got.Extra)
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestSendToParticipant(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, model.P1)
	c2a := mockClient(hub, model.P2)
	c2b := mockClient(hub, model.P2)
	for _, c := range []*Client{c1, c2a, c2b} {
		hub.Register(c)
	}

	hub.SendTo(model.P2, NewMessage("participant", "celebrate", 0, model.P2, nil))

	for _, c := range []*Client{c2a, c2b} {
		if got := receive(t, c); got.Type != "participant_celebrate" {
			t.Errorf("type = %s, want participant_celebrate", got.Type)
		}
	}
	select {
	case <-c1.send:
		t.Error("p1 should not receive p2's message")
	default:
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, model.P1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), "", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, "", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("tally", "incremented", 5, model.P2, nil)
	if msg.Type != "tally_incremented" {
		t.Errorf("expected type tally_incremented, got %s", msg.Type)
	}
	if msg.Entity != "tally" || msg.Action != "incremented" {
		t.Errorf("entity/action = %s/%s", msg.Entity, msg.Action)
	}
	if msg.ID != 5 || msg.Actor != model.P2 {
		t.Errorf("id/actor = %d/%s", msg.ID, msg.Actor)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := model.Participants[i%2]
			c := mockClient(hub, p)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, p, nil))
			hub.SendTo(p, NewMessage("test", "targeted", 0, p, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
