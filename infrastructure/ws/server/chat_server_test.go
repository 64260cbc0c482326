package server

import (
	"chat-lounge/auth"
	"chat-lounge/infrastructure/ws/wire"
	"chat-lounge/observability"
	"chat-lounge/projection"
	"chat-lounge/repositories"
	"chat-lounge/runtime"
	"chat-lounge/runtime/workers"
	"chat-lounge/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	reg := prometheus.NewRegistry()
	metrics := observability.NewChatMetrics(reg)
	registry := runtime.NewRegistry()
	messages := projection.NewMessageLog(nil)
	hub := workers.NewBroadcastHub(log, registry, time.Second, metrics)
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond),
		registry, hub, messages, metrics, true, '*')
	req.NoError(orchestrator.Prepare(context.Background()))

	authService := services.NewAuthService(log, repositories.NewUserRepository(db),
		auth.NewTokenIssuer("test-secret", time.Hour))
	chatServer := NewChatServer(log, services.NewChatService(orchestrator), authService,
		metrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), Settings{
			ConnectionBufferSize: 32,
			WriteTimeout:         time.Second,
			PongTimeout:          5 * time.Second,
			PingInterval:         time.Second,
			MaxContentLength:     100,
		})

	server := httptest.NewServer(chatServer.Router())
	t.Cleanup(func() {
		chatServer.Close()
		server.Close()
	})
	return server
}

func login(t *testing.T, server *httptest.Server, username, password string) (int, loginResponse) {
	t.Helper()
	body, _ := json.Marshal(auth.LoginRequest{Username: username, Password: password})
	resp, err := http.Post(server.URL+"/login", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var res loginResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	}
	return resp.StatusCode, res
}

func dial(t *testing.T, server *httptest.Server, query url.Values) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query.Encode()
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) wire.Outbound {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wire.Outbound
	require.NoError(t, ws.ReadJSON(&frame))
	return frame
}

func send(t *testing.T, ws *websocket.Conn, frame wire.Inbound) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(frame))
}

func TestChatServer_Login(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	// First login registers alice
	status, res := login(t, server, "alice", "secret")
	req.Equal(http.StatusOK, status)
	req.Equal("alice", res.Username)
	req.NotEmpty(res.Token)

	// Same credentials again
	status, _ = login(t, server, "alice", "secret")
	req.Equal(http.StatusOK, status)

	// Wrong password
	status, _ = login(t, server, "alice", "not-the-secret")
	req.Equal(http.StatusUnauthorized, status)

	// Missing username
	status, _ = login(t, server, "", "secret")
	req.Equal(http.StatusBadRequest, status)
}

func TestChatServer_Login_Form(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp, err := http.PostForm(server.URL+"/login", url.Values{"username": {"bob"}, "password": {"secret"}})
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestChatServer_Connect_Without_Identity(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	tests := []string{u, u + "?token=garbage"}
	for _, target := range tests {
		_, resp, err := websocket.DefaultDialer.Dial(target, nil)
		req.ErrorIs(err, websocket.ErrBadHandshake)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestChatServer_Alice_And_Bob(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	_, aliceLogin := login(t, server, "alice", "secret")

	// Given alice is connected with a token
	alice := dial(t, server, url.Values{"token": {aliceLogin.Token}})
	req.Equal(wire.HistoryEvent, read(t, alice).Event)
	req.Equal(wire.Outbound{Event: "status", Kind: "joined", Username: "alice", Text: "alice joined"}, read(t, alice))

	// When bob connects with inline credentials
	bob := dial(t, server, url.Values{"username": {"bob"}, "password": {"secret"}})

	// Then both see bob joining
	req.Equal(wire.Outbound{Event: "status", Kind: "joined", Username: "bob", Text: "bob joined"}, read(t, alice))
	req.Equal(wire.HistoryEvent, read(t, bob).Event)
	req.Equal("bob joined", read(t, bob).Text)

	// When bob types then talks
	send(t, bob, wire.Inbound{Event: "typing"})
	send(t, bob, wire.Inbound{Event: "chat_message", Text: "hello"})

	// Then alice sees him typing then his message, bob only his message
	req.Equal(wire.Outbound{Event: "typing", Username: "bob"}, read(t, alice))
	frame := read(t, alice)
	req.Equal("chat_message", frame.Event)
	req.Equal("bob", frame.User)
	req.Equal("hello", frame.Text)
	req.Regexp(`^\d{2}:\d{2}$`, frame.Time)
	req.Equal(frame, read(t, bob))

	// When bob leaves
	req.NoError(bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	// Then alice sees him leave
	req.Equal(wire.Outbound{Event: "status", Kind: "left", Username: "bob", Text: "bob left"}, read(t, alice))
}

func TestChatServer_Invalid_Frames_Are_Dropped(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := dial(t, server, url.Values{"username": {"alice"}, "password": {"secret"}})
	read(t, alice)
	read(t, alice)

	// When alice sends garbage
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, alice, wire.Inbound{Event: "rename", Text: "bob"})
	send(t, alice, wire.Inbound{Event: "chat_message", Text: "   "})
	send(t, alice, wire.Inbound{Event: "chat_message", Text: strings.Repeat("a", 101)})

	// Then the connection survives and the next valid message goes through
	send(t, alice, wire.Inbound{Event: "chat_message", Text: "still here"})
	req.Equal("still here", read(t, alice).Text)
}

func TestChatServer_History_And_Health(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := dial(t, server, url.Values{"username": {"alice"}, "password": {"secret"}})
	read(t, alice)
	read(t, alice)
	send(t, alice, wire.Inbound{Event: "chat_message", Text: "m1"})
	send(t, alice, wire.Inbound{Event: "chat_message", Text: "m2"})
	read(t, alice)
	read(t, alice)

	// History
	resp, err := http.Get(server.URL + "/history")
	req.NoError(err)
	defer resp.Body.Close()
	var history wire.History
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Len(history.Messages, 2)
	req.Equal("m1", history.Messages[0].Text)
	req.Equal("m2", history.Messages[1].Text)

	// Health
	resp, err = http.Get(server.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()
	var health healthResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&health))
	req.Equal("ok", health.Status)
	req.Equal(1, health.Online)

	// Metrics
	resp, err = http.Get(server.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestChatServer_Censors_Messages(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := dial(t, server, url.Values{"username": {"alice"}, "password": {"secret"}})
	read(t, alice)
	read(t, alice)

	send(t, alice, wire.Inbound{Event: "chat_message", Text: "what the fuck"})

	req.Equal("what the ****", read(t, alice).Text)
}
