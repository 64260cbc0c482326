package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Registry
	ErrDuplicateConnection = fmt.Errorf("connection already registered")
	ErrNotFound            = fmt.Errorf("connection not found")
	ErrEmptyUsername       = fmt.Errorf("username is empty")

	// Delivery
	ErrSinkClosed    = fmt.Errorf("sink is closed")
	ErrSlowConsumer  = fmt.Errorf("outbound queue is full")
	ErrStorage       = fmt.Errorf("message storage failed")
	ErrInvalidFrame  = fmt.Errorf("invalid frame")
	ErrUnknownEvent  = fmt.Errorf("unknown event")
	ErrSessionClosed = fmt.Errorf("session is closed")

	// Authentication
	ErrAuthFailure        = fmt.Errorf("authentication failed")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidRequest     = fmt.Errorf("invalid request")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)
