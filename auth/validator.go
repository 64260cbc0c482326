package auth

import (
	"chat-lounge/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginRequest is the body of POST /login and the inline websocket credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

// ValidateLogin also refuses usernames surrounded by or made of spaces.
func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Username) != req.Username {
		return fmt.Errorf("%w: username has leading or trailing spaces", errors.ErrInvalidRequest)
	}
	return nil
}

// ValidateChatText rejects blank text and text longer than maxLength characters.
func ValidateChatText(text string, maxLength int) error {
	if err := validate.Var(strings.TrimSpace(text), "required"); err != nil {
		return fmt.Errorf("%w: empty text", errors.ErrInvalidFrame)
	}
	if err := validate.Var(text, fmt.Sprintf("max=%d", maxLength)); err != nil {
		return fmt.Errorf("%w: text longer than %d characters", errors.ErrInvalidFrame, maxLength)
	}
	return nil
}
