package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HttpWorker serves the chat server under supervision.
// It returns nil once ctx is done and the listener has been shut down.
type HttpWorker struct {
	log             *slog.Logger
	server          *http.Server
	chatServer      *ChatServer
	shutdownTimeout time.Duration
}

func NewHttpWorker(log *slog.Logger, address string, chatServer *ChatServer, shutdownTimeout time.Duration) *HttpWorker {
	server := &http.Server{
		Addr:              address,
		Handler:           chatServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(chatServer.Close)
	return &HttpWorker{log: log, server: server, chatServer: chatServer, shutdownTimeout: shutdownTimeout}
}

func (w *HttpWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return err
	}
	w.log.Info("Starting chat server", "address", listener.Addr().String(), "at", time.Now().UTC())

	errChan := make(chan error, 1)
	go func() {
		if err := w.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Shutting down chat server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
