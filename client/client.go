package main

import (
	"bufio"
	"bytes"
	"chat-lounge/infrastructure/ws/wire"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:10000"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	Password      string `env:"CHAT_PASSWORD,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, opens the socket, prints every frame and sends each stdin line.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(ctx, config)
	if err != nil {
		return exitRuntime, err
	}

	u := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws", RawQuery: url.Values{"token": {token}}.Encode()}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = ws.Close()
	}()

	color.Greenf(">>> Connected to %s as %s (Ctrl+C to quit)\n", config.ServerAddress, config.Username)

	go send(ctx, ws)

	received := make(chan error, 1)
	go func() {
		for {
			var frame wire.Outbound
			if err := ws.ReadJSON(&frame); err != nil {
				received <- err
				return
			}
			display(frame)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case err := <-received:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			color.Yellowln("Server closed the connection")
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("stream error: %w", err)
	}
}

func login(ctx context.Context, config Config) (string, error) {
	body, err := json.Marshal(map[string]string{"username": config.Username, "password": config.Password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+config.ServerAddress+"/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login refused: %s", resp.Status)
	}

	var res struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("login response: %w", err)
	}
	return res.Token, nil
}

// send forwards stdin, one chat message per line.
// A "/typing" line only notifies the room.
func send(ctx context.Context, ws *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		frame := wire.Inbound{Event: wire.ChatMessageEvent, Text: line}
		switch {
		case line == "":
			continue
		case line == "/typing":
			frame = wire.Inbound{Event: wire.TypingEvent}
		}
		if err := ws.WriteJSON(frame); err != nil {
			color.Redf("send failed: %v\n", err)
			return
		}
	}
}

func display(frame wire.Outbound) {
	switch frame.Event {
	case wire.HistoryEvent:
		for _, m := range frame.Messages {
			color.Gray.Printf("[%s] %s: %s\n", m.Time, m.User, m.Text)
		}
	case wire.ChatMessageEvent:
		fmt.Printf("[%s] %s: %s\n", frame.Time, color.Cyan.Sprint(frame.User), frame.Text)
	case wire.StatusEvent:
		color.Yellowf("* %s\n", frame.Text)
	case wire.TypingEvent:
		color.Gray.Printf("%s is typing...\n", frame.Username)
	}
}
