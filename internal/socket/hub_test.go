package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// waitFor reads from the client's buffer until a message of the given type
// shows up.
func waitFor(t *testing.T, c *Client, msgType MessageType) Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data, ok := <-c.Send:
			require.True(t, ok, "send channel closed while waiting for %s", msgType)
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s message for %s", msgType, c.UserID)
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestHubRoomBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	hub.SetRoomAuthorizer(func(userID, room string) bool {
		id, ok := RoomPlenumID(room)
		return ok && id == "p1" && userID == "alice"
	})

	alice := NewClient(hub, "alice", nil)
	bob := NewClient(hub, "bob", nil)
	hub.Register(alice)
	hub.Register(bob)
	waitFor(t, alice, MessageUserOnline)

	require.NoError(t, hub.JoinRoom(alice, PlenumRoom("p1")))
	assert.Error(t, hub.JoinRoom(bob, PlenumRoom("p1")))
	assert.Equal(t, 1, hub.GetRoomClients(PlenumRoom("p1")))
	assert.True(t, alice.InRoom(UserRoom("alice")))

	NewBroadcaster(hub).BroadcastMotionUpdated("p1", 0, "m1", "bob")
	msg := waitFor(t, alice, MessageMotionUpdated)
	assert.Equal(t, "m1", msg.Payload["motionId"])

	drain(bob)
	hub.SendToUser("bob", MessageSignal, map[string]interface{}{"sdp": "x"})
	msg = waitFor(t, bob, MessageSignal)
	assert.Equal(t, "x", msg.Payload["sdp"])

	hub.Stop()
	for range alice.Send {
	}
	assert.Equal(t, 0, hub.GetConnectedClientsCount())
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()
	hub.SetRoomAuthorizer(func(string, string) bool { return true })

	c := NewClient(hub, "alice", nil)
	hub.Register(c)
	require.NoError(t, hub.JoinRoom(c, PlenumRoom("p1")))
	assert.True(t, hub.IsUserOnline("alice"))

	hub.Unregister(c)
	for range c.Send {
	}
	assert.False(t, hub.IsUserOnline("alice"))
	assert.Equal(t, 0, hub.GetRoomClients(PlenumRoom("p1")))
	assert.Error(t, hub.JoinRoom(c, PlenumRoom("p1")))
}

func TestClientActions(t *testing.T) {
	hub := startHub(t)
	hub.SetRoomAuthorizer(func(string, string) bool { return false })

	var got ClientMessage
	hub.Handle("signal", func(c *Client, msg ClientMessage) error {
		got = msg
		return nil
	})
	hub.Handle("fails", func(c *Client, msg ClientMessage) error {
		return errors.New("peer not found")
	})

	c := NewClient(hub, "alice", nil)
	hub.Register(c)

	c.HandleMessage([]byte(`{"action":"signal","payload":{"to":"bob"}}`))
	assert.Equal(t, "bob", got.Payload["to"])

	c.HandleMessage([]byte(`{"action":"fails"}`))
	msg := waitFor(t, c, MessageError)
	assert.Equal(t, "peer not found", msg.Payload["error"])

	c.HandleMessage([]byte(`{"action":"join","room":"plenum:p9"}`))
	msg = waitFor(t, c, MessageError)
	assert.Equal(t, "join", msg.Payload["action"])

	c.HandleMessage([]byte(`{"action":"ping"}`))
	waitFor(t, c, MessagePong)

	c.HandleMessage([]byte(`{"action":"dance"}`))
	msg = waitFor(t, c, MessageError)
	assert.Equal(t, "unknown action", msg.Payload["error"])

	c.HandleMessage([]byte(`not json`))
	waitFor(t, c, MessageError)
}

type fakeStream struct {
	mu        sync.Mutex
	published []map[string]interface{}
	batches   [][]map[string]interface{}
}

func (s *fakeStream) PublishMotionUpdate(_ context.Context, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, fields)
	return nil
}

func (s *fakeStream) ReadMotionUpdates(ctx context.Context, lastID string, _ time.Duration) ([]map[string]interface{}, string, error) {
	s.mu.Lock()
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, "1-0", nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, lastID, ctx.Err()
}

func TestRelaySkipsOwnEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	stream := &fakeStream{batches: [][]map[string]interface{}{{
		{"instance": "a", "plenum": "p1", "group": "0", "motion": "own", "user": "u"},
		{"instance": "b", "plenum": "p1", "group": "3", "motion": "remote", "user": "u"},
		{"instance": "b", "plenum": "p1", "group": "x", "motion": "bad"},
	}}}

	received := make(chan hook.AfterMotionUpdated, 4)
	target := hook.NewDispatcher()
	target.OnAfterMotionUpdated("test", func(_ context.Context, e hook.AfterMotionUpdated) error {
		received <- e
		return nil
	})

	relay := NewRelay(stream, "a", target)
	require.NoError(t, relay.Publish(context.Background(), hook.AfterMotionUpdated{PlenumID: "p1", GroupID: 2, MotionID: "m1"}))
	assert.Equal(t, "a", stream.published[0]["instance"])
	assert.Equal(t, "2", stream.published[0]["group"])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	select {
	case e := <-received:
		assert.Equal(t, hook.AfterMotionUpdated{PlenumID: "p1", GroupID: 3, MotionID: "remote", UserID: "u"}, e)
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}
	cancel()
	<-done
	assert.Empty(t, received)
}
