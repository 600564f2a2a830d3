package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/remote-relay/internal/app"
	"github.com/dkeye/remote-relay/internal/app/orch"
	"github.com/dkeye/remote-relay/internal/config"
	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>control</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("// app"), 0o600))
	return &config.Config{
		Mode:           "test",
		StaticPath:     static,
		ReadLimit:      64 * 1024,
		SendBuffer:     64,
		WriteWait:      time.Second,
		PongWait:       10 * time.Second,
		PingPeriod:     9 * time.Second,
		ICEServers:     []config.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		ConnRateWindow: time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	registry := app.NewRegistry()
	o := &orch.Orchestrator{
		Registry: registry,
		Rooms:    app.NewDirectory(registry),
		Policy:   app.SimplePolicy{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, o
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

type peer struct {
	t    *testing.T
	conn *websocket.Conn
	id   domain.ConnectionID
}

func dial(t *testing.T, srv *httptest.Server) *peer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &peer{t: t, conn: conn}
	var hello core.Connected
	require.NoError(t, json.Unmarshal(p.expect(core.KindConnected), &hello))
	require.NotEmpty(t, hello.ID)
	p.id = hello.ID
	return p
}

func (p *peer) send(event core.Kind, data any) {
	p.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteJSON(core.Envelope{Event: event, Data: raw}))
}

func (p *peer) expect(kind core.Kind) json.RawMessage {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env core.Envelope
	require.NoError(p.t, p.conn.ReadJSON(&env))
	require.Equal(p.t, kind, env.Event)
	return env.Data
}

func (p *peer) expectInto(kind core.Kind, v any) {
	p.t.Helper()
	require.NoError(p.t, json.Unmarshal(p.expect(kind), v))
}

type roomRef struct {
	RoomID string `json:"roomId"`
}

func TestSignaling_Host_And_Client_Session(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t, testConfig(t))
	a := dial(t, srv)
	b := dial(t, srv)
	req.NotEqual(a.id, b.id)

	// When A joins room abc
	a.send(core.KindJoinRoom, "abc")

	// Then A is alone
	var size int
	a.expectInto(core.KindRoomSize, &size)
	req.Equal(1, size)

	// When B joins
	b.send(core.KindJoinRoom, "abc")

	// Then B learns A is there, without a host yet
	var users core.ExistingUsers
	b.expectInto(core.KindExistingUsers, &users)
	req.Equal([]domain.ConnectionID{a.id}, users.Users)
	req.Equal(2, users.RoomSize)
	req.Nil(users.HostID)
	b.expectInto(core.KindRoomSize, &size)
	req.Equal(2, size)

	// And A learns B joined
	var joined core.UserJoined
	a.expectInto(core.KindUserJoined, &joined)
	req.Equal(core.UserJoined{UserID: b.id, RoomSize: 2}, joined)
	a.expectInto(core.KindRoomSize, &size)
	req.Equal(2, size)

	// When A declares itself host
	a.send(core.KindIAmHost, roomRef{RoomID: "abc"})

	// Then A gets the pre-existing client and B hears the host is ready
	var clients core.ExistingClients
	a.expectInto(core.KindExistingClients, &clients)
	req.Equal([]domain.ConnectionID{b.id}, clients.Clients)
	var ready core.HostReady
	b.expectInto(core.KindHostReady, &ready)
	req.Equal(a.id, ready.HostID)

	// When the host offers, the client receives it tagged with the sender
	a.send(core.KindOffer, map[string]any{"roomId": "abc", "offer": map[string]string{"type": "offer", "sdp": "v=0"}})
	var offer map[string]json.RawMessage
	b.expectInto(core.KindOffer, &offer)
	req.JSONEq(`{"type":"offer","sdp":"v=0"}`, string(offer["offer"]))
	req.JSONEq(`"`+string(a.id)+`"`, string(offer["senderId"]))

	// And the client's answer and candidate flow back
	b.send(core.KindAnswer, map[string]any{"roomId": "abc", "answer": map[string]string{"type": "answer", "sdp": "v=0"}})
	b.send(core.KindICECandidate, map[string]any{"roomId": "abc", "candidate": map[string]any{"candidate": "candidate:1", "sdpMid": "0"}})
	var answer, candidate map[string]json.RawMessage
	a.expectInto(core.KindAnswer, &answer)
	req.JSONEq(`"`+string(b.id)+`"`, string(answer["senderId"]))
	a.expectInto(core.KindICECandidate, &candidate)
	req.JSONEq(`{"candidate":"candidate:1","sdpMid":"0"}`, string(candidate["candidate"]))

	// When the client drives the host's pointer, the event arrives unchanged
	move := map[string]any{"roomId": "abc", "x": 0.25, "y": 0.75}
	b.send(core.KindMouseMove, move)
	b.send(core.KindKeyPress, map[string]any{"roomId": "abc", "key": "Enter"})
	raw := a.expect(core.KindRemoteMouseMove)
	req.JSONEq(`{"roomId":"abc","x":0.25,"y":0.75}`, string(raw))
	raw = a.expect(core.KindRemoteKeyPress)
	req.JSONEq(`{"roomId":"abc","key":"Enter"}`, string(raw))
}

func TestSignaling_Host_Declared_Before_Join(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t, testConfig(t))
	c1 := dial(t, srv)
	h := dial(t, srv)

	c1.send(core.KindJoinRoom, roomRef{RoomID: "line-3"})
	c1.expect(core.KindRoomSize)

	// When the host announces itself and then joins, as the control page does
	h.send(core.KindIAmHost, roomRef{RoomID: "line-3"})
	h.send(core.KindJoinRoom, "line-3")

	// Then the host sees the client first and then its own join results
	var clients core.ExistingClients
	h.expectInto(core.KindExistingClients, &clients)
	req.Equal([]domain.ConnectionID{c1.id}, clients.Clients)
	var users core.ExistingUsers
	h.expectInto(core.KindExistingUsers, &users)
	req.Equal([]domain.ConnectionID{c1.id}, users.Users)
	req.Nil(users.HostID)
	h.expect(core.KindRoomSize)

	c1.expect(core.KindHostReady)
	c1.expect(core.KindUserJoined)
	c1.expect(core.KindRoomSize)

	// When a late client joins, the host is named and asked to signal
	c2 := dial(t, srv)
	c2.send(core.KindJoinRoom, "line-3")
	c2.expectInto(core.KindExistingUsers, &users)
	req.NotNil(users.HostID)
	req.Equal(h.id, *users.HostID)

	h.expect(core.KindUserJoined)
	var clientJoined core.ClientJoined
	h.expectInto(core.KindClientJoined, &clientJoined)
	req.Equal(c2.id, clientJoined.ClientID)
}

func TestSignaling_Bad_Frames_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t, testConfig(t))
	a := dial(t, srv)

	req.NoError(a.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	a.send("reboot", nil)
	a.send(core.KindUserJoined, map[string]any{"userId": "spoofed", "roomSize": 9})
	a.send(core.KindOffer, map[string]any{"offer": "missing room"})

	a.send(core.KindJoinRoom, "abc")
	var size int
	a.expectInto(core.KindRoomSize, &size)
	req.Equal(1, size)
}

func TestSignaling_Disconnect_Removes_Participant(t *testing.T) {
	req := require.New(t)
	srv, o := newTestServer(t, testConfig(t))
	a := dial(t, srv)
	b := dial(t, srv)
	a.send(core.KindJoinRoom, "abc")
	a.expect(core.KindRoomSize)
	b.send(core.KindJoinRoom, "abc")
	b.expect(core.KindExistingUsers)
	b.expect(core.KindRoomSize)

	// When B's socket drops
	req.NoError(b.conn.Close())

	// Then the room shrinks by one
	req.Eventually(func() bool { return o.Rooms.Size("abc") == 1 }, 2*time.Second, 10*time.Millisecond)
	_, ok := o.Registry.Get(b.id)
	req.False(ok)

	// When A leaves too the room is gone
	req.NoError(a.conn.Close())
	req.Eventually(func() bool { return o.Rooms.State("abc") == domain.RoomEmpty }, 2*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool { return o.Registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSignaling_Connection_Rate_Limit(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t)
	cfg.ConnRateLimit = 1
	cfg.ConnRateWindow = time.Minute
	srv, _ := newTestServer(t, cfg)

	dial(t, srv)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusTooManyRequests, resp.StatusCode)
}

func TestSignaling_Origin_Allow_List(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t)
	cfg.AllowedOrigins = []string{"https://factory.example"}
	srv, _ := newTestServer(t, cfg)

	header := http.Header{"Origin": []string{"https://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://factory.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	req.NoError(err)
	_ = conn.Close()
}

func TestRouter_API(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t)
	srv, o := newTestServer(t, cfg)
	a := dial(t, srv)
	a.send(core.KindJoinRoom, "abc")
	a.expect(core.KindRoomSize)
	a.send(core.KindIAmHost, roomRef{RoomID: "abc"})
	req.Eventually(func() bool { return o.Registry.IsHost(a.id) }, 2*time.Second, 10*time.Millisecond)

	router := SetupRouter(context.Background(), cfg, o)
	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/healthz")
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"status":"ok","connections":1}`, w.Body.String())

	w = get("/api/rooms")
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"rooms":[{"id":"abc","member_count":1,"host_id":"`+string(a.id)+`"}]}`, w.Body.String())

	w = get("/api/ice-servers")
	req.Equal(http.StatusOK, w.Code)
	var ice struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &ice))
	req.Len(ice.ICEServers, 1)
	req.Equal([]string{"stun:stun.l.google.com:19302"}, ice.ICEServers[0].URLs)

	w = get("/")
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "control")

	w = get("/app.js")
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "// app")
}
