package server

import (
	"chat-lounge/auth"
	"chat-lounge/domain"
	"chat-lounge/errors"
	"chat-lounge/infrastructure/ws/wire"
	"chat-lounge/observability"
	"chat-lounge/services"
	"chat-lounge/sink"
	"context"
	"encoding/json"
	errs "errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Settings struct {
	ConnectionBufferSize int
	WriteTimeout         time.Duration
	PongTimeout          time.Duration
	PingInterval         time.Duration
	MaxContentLength     int
}

// ChatServer exposes the room over HTTP and websocket.
//
//	POST /login    username + password, returns a token
//	GET  /ws       the chat socket, token or inline credentials
//	GET  /history  the message log
//	GET  /health   online count and process stats
//	GET  /metrics  prometheus
type ChatServer struct {
	log            *slog.Logger
	chatService    services.IChatService
	authService    services.IAuthService
	metrics        *observability.ChatMetrics
	metricsHandler http.Handler
	settings       Settings
	upgrader       websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, authService services.IAuthService,
	metrics *observability.ChatMetrics, metricsHandler http.Handler, settings Settings) *ChatServer {
	return &ChatServer{
		log:            log,
		chatService:    chatService,
		authService:    authService,
		metrics:        metrics,
		metricsHandler: metricsHandler,
		settings:       settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

func (s *ChatServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.connect).Methods(http.MethodGet)
	r.HandleFunc("/history", s.history).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}
	return r
}

// Close tells every open websocket to go away.
// Hijacked connections are not tracked by http.Server.Shutdown.
func (s *ChatServer) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type loginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// login accepts a JSON body or a classic form post.
func (s *ChatServer) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			s.writeError(w, errors.ErrInvalidRequest)
			return
		}
	} else {
		req = auth.LoginRequest{Username: r.FormValue("username"), Password: r.FormValue("password")}
	}

	identity, err := s.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{Username: identity.Username.String(), Token: identity.Token})
}

func (s *ChatServer) history(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, wire.History{
		Event:    wire.HistoryEvent,
		Messages: wire.ToChatMessages(s.chatService.History()),
	})
}

type healthResponse struct {
	Status  string                     `json:"status"`
	Online  int                        `json:"online"`
	Process observability.ProcessStats `json:"process"`
}

func (s *ChatServer) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Online:  s.chatService.Online(),
		Process: s.metrics.LatestProcess(),
	})
}

// connect authenticates before upgrading, a refused client gets a plain 401.
func (s *ChatServer) connect(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identify(r)
	if err != nil {
		s.log.Debug("Websocket refused", "remote", r.RemoteAddr, "error", err)
		s.writeError(w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	out := sink.NewConnectionSink(s.settings.ConnectionBufferSize)
	session := s.chatService.Connect(out)
	if err := session.Open(ctx, identity); err != nil {
		s.log.Warn("Session refused", "username", identity.Username, "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session refused"),
			time.Now().Add(s.settings.WriteTimeout))
		_ = ws.Close()
		return
	}

	c := &connection{
		log:      s.log.With("connection_id", session.ID(), "username", identity.Username),
		ws:       ws,
		session:  session,
		sink:     out,
		settings: s.settings,
		shutdown: s.done,
	}
	go c.writePump()
	c.readPump(ctx)
}

// identify resolves the caller from a token (query or bearer header)
// or from inline credentials.
func (s *ChatServer) identify(r *http.Request) (domain.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token != "" {
		return s.authService.Verify(token)
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		return domain.Identity{}, errors.ErrAuthFailure
	}
	return s.authService.Authenticate(username, r.URL.Query().Get("password"))
}

func (s *ChatServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.Is(err, errors.ErrAuthFailure), errs.Is(err, errors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errs.Is(err, errors.ErrInvalidRequest):
		status = http.StatusBadRequest
	default:
		s.log.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

func (s *ChatServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Debug("Response not written", "error", err)
	}
}
