package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/ghostchat/internal/adapters/origin"
	"github.com/dkeye/ghostchat/internal/adapters/rtc"
	"github.com/dkeye/ghostchat/internal/adapters/signal"
	"github.com/dkeye/ghostchat/internal/app"
	"github.com/dkeye/ghostchat/internal/app/orch"
	"github.com/dkeye/ghostchat/internal/auth"
	"github.com/dkeye/ghostchat/internal/config"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func startTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()

	cfg := &config.Config{
		Mode:           "release",
		Secret:         "session-secret",
		JWTSecret:      "jwt-secret",
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	reg := app.NewRegistry()
	o := orch.New(reg, app.NewRoomDirectory(), app.NewDispatcher(reg, nil))
	ice, err := rtc.NewConfiguration([]string{"stun:stun.example.org:3478"})
	if err != nil {
		t.Fatal(err)
	}
	origins := origin.NewPolicy(cfg.AllowedOrigins)
	deps := Deps{
		Orch:    o,
		Signal:  signal.NewSignalWSController(o, auth.NewVerifier(cfg.JWTSecret), signal.Options{CheckOrigin: origins.CheckOrigin}),
		Names:   auth.NewNames(),
		Issuer:  auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		ICE:     rtc.ClientConfigFrom(ice),
		Origins: origins,
	}
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, deps))
	t.Cleanup(srv.Close)
	return srv, o
}

type registerResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Error string `json:"error"`
}

func register(t *testing.T, client *http.Client, baseURL, username string) (int, registerResponse) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username})
	resp, err := client.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return resp.StatusCode, out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

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

func TestRegister(t *testing.T) {
	srv, _ := startTestServer(t)

	code, out := register(t, srv.Client(), srv.URL, "alice")
	if code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", code, out.Error)
	}
	if out.Token == "" || out.User.ID == "" || out.User.Username != "alice" || out.Message == "" {
		t.Fatalf("response = %+v", out)
	}

	cases := map[string]string{
		"duplicate": "alice",
		"short":     "al",
		"long":      strings.Repeat("a", 21),
		"charset":   "al ice",
		"empty":     "",
	}
	for name, username := range cases {
		code, out := register(t, srv.Client(), srv.URL, username)
		if code != http.StatusBadRequest || out.Error == "" {
			t.Fatalf("%s: status = %d error = %q", name, code, out.Error)
		}
	}
}

func TestRTCConfigAndHealth(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/rtc/config")
	if err != nil {
		t.Fatal(err)
	}
	var ice rtc.ClientConfig
	if err := json.NewDecoder(resp.Body).Decode(&ice); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(ice.ICEServers) != 1 || ice.ICEServers[0].URLs[0] != "stun:stun.example.org:3478" {
		t.Fatalf("ice = %+v", ice)
	}

	resp, err = srv.Client().Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	var health struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
		Rooms   int    `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if health.Status != "ok" || health.Clients != 0 || health.Rooms != 0 {
		t.Fatalf("health = %+v", health)
	}
}

func TestWebsocketCredentialSources(t *testing.T) {
	srv, o := startTestServer(t)

	_, alice := register(t, srv.Client(), srv.URL, "alice")
	byQuery, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+alice.Token, nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	defer byQuery.Close()
	readUntil(t, byQuery, protocol.TypeOnlineUsers)

	_, bob := register(t, srv.Client(), srv.URL, "bob")
	header := http.Header{"Authorization": []string{"Bearer " + bob.Token}}
	byHeader, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial with bearer token: %v", err)
	}
	defer byHeader.Close()
	readUntil(t, byHeader, protocol.TypeOnlineUsers)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}
	if code, _ := register(t, client, srv.URL, "carol"); code != http.StatusCreated {
		t.Fatalf("register carol: %d", code)
	}
	dialer := websocket.Dialer{Jar: jar, HandshakeTimeout: 3 * time.Second}
	byCookie, _, err := dialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial with session cookie: %v", err)
	}
	defer byCookie.Close()
	env := readUntil(t, byCookie, protocol.TypeOnlineUsers)
	var users protocol.OnlineUsers
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 3 {
		t.Fatalf("online users = %+v", users)
	}
	if o.Registry.Count() != 3 {
		t.Fatalf("registered = %d", o.Registry.Count())
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=forged", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged token: err = %v resp = %v", err, resp)
	}
}

func TestRoomsListing(t *testing.T) {
	srv, _ := startTestServer(t)
	_, alice := register(t, srv.Client(), srv.URL, "alice")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+alice.Token, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	data, _ := json.Marshal(map[string]string{"roomName": "lobby"})
	if err := conn.WriteJSON(protocol.Envelope{Type: protocol.TypeJoinRoom, Data: data}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, protocol.TypeRoomJoined)

	resp, err := srv.Client().Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rooms []struct {
		Name        string `json:"name"`
		MemberCount int    `json:"memberCount"`
		OwnerID     string `json:"ownerId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0].Name != "lobby" || rooms[0].MemberCount != 1 || rooms[0].OwnerID != alice.User.ID {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := startTestServer(t)

	preflight := func(from string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/auth/register", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Origin", from)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp
	}

	resp := preflight("http://localhost:3000")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("allowed preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin = %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost) {
		t.Fatalf("allow-methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}

	resp = preflight("http://evil.example")
	if resp.StatusCode != http.StatusForbidden || resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed preflight status = %d allow-origin = %q",
			resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}

	body, _ := json.Marshal(map[string]string{"username": "alice"})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	post, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusCreated || post.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("cross-origin register status = %d allow-origin = %q",
			post.StatusCode, post.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestWebsocketOriginCheck(t *testing.T) {
	srv, _ := startTestServer(t)
	_, alice := register(t, srv.Client(), srv.URL, "alice")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+alice.Token,
		http.Header{"Origin": []string{"http://evil.example"}})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("disallowed origin: err = %v resp = %v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+alice.Token,
		http.Header{"Origin": []string{"http://localhost:3000"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, protocol.TypeOnlineUsers)
}

func TestRequestLoggerOmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(&buf))
	r.GET("/api/ws", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ws?token=secret-token", nil))

	out := buf.String()
	if strings.Contains(out, "secret-token") {
		t.Fatalf("access log leaked token: %q", out)
	}
	if !strings.Contains(out, "/api/ws") || !strings.Contains(out, "401") {
		t.Fatalf("access log = %q", out)
	}
}
