package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/ghostchat/internal/app"
	"github.com/dkeye/ghostchat/internal/app/orch"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var errBadToken = errors.New("bad token")

// tokenAuth treats the token as "<id>:<username>".
type tokenAuth struct{}

func (tokenAuth) Verify(token string) (domain.User, error) {
	id, name, ok := strings.Cut(token, ":")
	if !ok || id == "" || name == "" {
		return domain.User{}, errBadToken
	}
	return domain.User{ID: domain.UserID(id), Username: name}, nil
}

func startTestServer(t *testing.T) (*orch.Orchestrator, string) {
	t.Helper()

	reg := app.NewRegistry()
	o := orch.New(reg, app.NewRoomDirectory(), app.NewDispatcher(reg, nil))
	ctl := NewSignalWSController(o, tokenAuth{}, Options{SendBuffer: 16})

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c, c.Query("token"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connectClient(t *testing.T, wsURL, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, protocol.TypeOnlineUsers)
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(protocol.Envelope{Type: kind, Data: raw}); err != nil {
		t.Fatalf("write json: %v", err)
	}
}

// readUntil skips frames until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", kind, err)
		}
		if env.Type == kind {
			return env
		}
	}
}

// assertNextType reads exactly one frame.
func assertNextType(t *testing.T, conn *websocket.Conn, kind string) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("waiting for %s: %v", kind, err)
	}
	if env.Type != kind {
		t.Fatalf("got %s (%s), want %s", env.Type, env.Data, kind)
	}
	return env
}

// roundTrip round-trips a ping so every earlier intent of conn has been applied.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	writeMsg(t, conn, protocol.TypePing, map[string]int64{"ts": 1})
	readUntil(t, conn, protocol.TypePong)
}

func TestUnauthenticatedRejectedBeforeUpgrade(t *testing.T) {
	o, wsURL := startTestServer(t)

	for _, token := range []string{"", "garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		if err == nil {
			t.Fatalf("token %q: dial succeeded", token)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: response = %v, want 401", token, resp)
		}
	}
	if o.Registry.Count() != 0 {
		t.Fatalf("registry has %d users after rejected dials", o.Registry.Count())
	}
}

func TestMalformedIntentKeepsConnection(t *testing.T) {
	_, wsURL := startTestServer(t)
	alice := connectClient(t, wsURL, "a:alice")

	writeMsg(t, alice, "drop_tables", map[string]any{})
	env := assertNextType(t, alice, protocol.TypeError)
	var e protocol.Error
	if err := json.Unmarshal(env.Data, &e); err != nil || !strings.Contains(e.Error, "unknown intent") {
		t.Fatalf("error event = %s", env.Data)
	}

	writeMsg(t, alice, protocol.TypeJoinRoom, map[string]any{"roomName": "x"})
	assertNextType(t, alice, protocol.TypeError)

	writeMsg(t, alice, protocol.TypePing, map[string]int64{"ts": 42})
	env = assertNextType(t, alice, protocol.TypePong)
	var p protocol.Pong
	if err := json.Unmarshal(env.Data, &p); err != nil || p.TS != 42 {
		t.Fatalf("pong = %s", env.Data)
	}
}

func TestRoomChatOverWebsocket(t *testing.T) {
	_, wsURL := startTestServer(t)
	alice := connectClient(t, wsURL, "a:alice")
	bob := connectClient(t, wsURL, "b:bob")

	writeMsg(t, alice, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	readUntil(t, alice, protocol.TypeRoomJoined)
	writeMsg(t, bob, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	readUntil(t, bob, protocol.TypeRoomJoined)
	readUntil(t, alice, protocol.TypeUserJoinedRoom)

	writeMsg(t, bob, protocol.TypeSendMessage, map[string]any{"roomName": "lobby", "message": "hello"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readUntil(t, conn, protocol.TypeNewMessage)
		var got protocol.NewMessage
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatal(err)
		}
		if got.Message.Message != "hello" || got.Message.SenderUsername != "bob" || got.Message.MessageType != domain.MediaText {
			t.Fatalf("new_message = %+v", got)
		}
	}

	writeMsg(t, alice, protocol.TypeWhoAmI, nil)
	env := readUntil(t, alice, protocol.TypeWhoAmI)
	var id protocol.Identity
	if err := json.Unmarshal(env.Data, &id); err != nil {
		t.Fatal(err)
	}
	if id.UserID != "a" || len(id.Rooms) != 1 || id.Rooms[0] != "lobby" {
		t.Fatalf("whoami = %+v", id)
	}
}

func TestSignalRelayRequiresSharedRoom(t *testing.T) {
	_, wsURL := startTestServer(t)
	alice := connectClient(t, wsURL, "a:alice")
	bob := connectClient(t, wsURL, "b:bob")
	carol := connectClient(t, wsURL, "c:carol")

	writeMsg(t, alice, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	writeMsg(t, bob, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	roundTrip(t, alice)
	roundTrip(t, bob)

	offer := map[string]any{"type": "offer", "sdp": "v=0"}
	writeMsg(t, carol, protocol.TypeWebRTCOffer, map[string]any{"roomName": "lobby", "targetUserId": "b", "payload": offer})
	roundTrip(t, carol)
	writeMsg(t, alice, protocol.TypeWebRTCOffer, map[string]any{"roomName": "lobby", "targetUserId": "b", "payload": offer})

	env := readUntil(t, bob, protocol.TypeWebRTCOffer)
	var got struct {
		From     domain.UserID  `json:"from"`
		RoomName string         `json:"roomName"`
		Payload  map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.From != "a" || got.RoomName != "lobby" || got.Payload["sdp"] != "v=0" {
		t.Fatalf("offer = %+v", got)
	}
}

func TestCloseDisconnectsUser(t *testing.T) {
	o, wsURL := startTestServer(t)
	alice := connectClient(t, wsURL, "a:alice")
	bob := connectClient(t, wsURL, "b:bob")

	writeMsg(t, alice, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	roundTrip(t, alice)
	writeMsg(t, bob, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	roundTrip(t, bob)

	alice.Close()
	env := readUntil(t, bob, protocol.TypeRoomModerationUpdated)
	var mod protocol.ModerationUpdated
	if err := json.Unmarshal(env.Data, &mod); err != nil {
		t.Fatal(err)
	}
	if mod.OwnerID != "b" {
		t.Fatalf("owner after disconnect = %s", mod.OwnerID)
	}
	readUntil(t, bob, protocol.TypeUserLeftRoom)
	readUntil(t, bob, protocol.TypeOnlineUsers)
	if _, ok := o.Registry.Lookup("a"); ok {
		t.Fatalf("alice still registered")
	}
}

func TestReconnectReplacesPreviousSocket(t *testing.T) {
	o, wsURL := startTestServer(t)
	first := connectClient(t, wsURL, "a:alice")
	writeMsg(t, first, protocol.TypeJoinRoom, map[string]any{"roomName": "lobby"})
	roundTrip(t, first)

	second := connectClient(t, wsURL, "a:alice")

	_ = first.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	roundTrip(t, second)
	if _, ok := o.Rooms.GetRoom("lobby"); ok {
		t.Fatalf("room of replaced connection survived")
	}
	if o.Registry.Count() != 1 {
		t.Fatalf("registered = %d, want 1", o.Registry.Count())
	}
	writeMsg(t, second, protocol.TypeWhoAmI, nil)
	env := readUntil(t, second, protocol.TypeWhoAmI)
	var id protocol.Identity
	if err := json.Unmarshal(env.Data, &id); err != nil {
		t.Fatal(err)
	}
	if id.UserID != "a" || len(id.Rooms) != 0 {
		t.Fatalf("whoami = %+v", id)
	}
}
