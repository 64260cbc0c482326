package e2e

import (
	"bytes"
	"chat-lounge/infrastructure/ws/wire"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ChatAddr == "" {
		s.T().Skip("E2E_CHAT_ADDR is not set")
	}
}

func (s *BaseWsSuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Login posts the credentials and returns the issued token.
func (s *BaseWsSuite) Login(username, password string) string {
	s.header("Login " + username)
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	s.Require().NoError(err)

	start := time.Now()
	resp, err := http.Post("http://"+s.Config.ChatAddr+"/login", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.T().Logf("POST /login [%d] in %v", resp.StatusCode, time.Since(start))
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var res struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&res))
	return res.Token
}

// Dial opens the chat socket for a token, closed at the end of the test.
func (s *BaseWsSuite) Dial(name, token string) *websocket.Conn {
	s.header(name)
	u := url.URL{Scheme: "ws", Host: s.Config.ChatAddr, Path: "/ws", RawQuery: url.Values{"token": {token}}.Encode()}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.Config.ChatAddr)
	s.T().Cleanup(func() { _ = ws.Close() })
	return ws
}

func (s *BaseWsSuite) Send(ws *websocket.Conn, frame wire.Inbound) {
	if s.Config.DebugJSON {
		s.T().Logf("SEND: %+v", frame)
	}
	s.Require().NoError(ws.WriteJSON(frame))
}

// Read waits for the next frame, failing after a few seconds.
func (s *BaseWsSuite) Read(ws *websocket.Conn) wire.Outbound {
	s.Require().NoError(ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame wire.Outbound
	s.Require().NoError(ws.ReadJSON(&frame))
	if s.Config.DebugJSON {
		raw, _ := json.MarshalIndent(frame, "", "  ")
		s.T().Logf("RECEIVED:\n%s", raw)
	}
	return frame
}

// ReadUntil skips frames until one matches, useful on a shared server.
func (s *BaseWsSuite) ReadUntil(ws *websocket.Conn, match func(wire.Outbound) bool) wire.Outbound {
	for {
		if frame := s.Read(ws); match(frame) {
			return frame
		}
	}
}
