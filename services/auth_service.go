package services

import (
	"chat-lounge/auth"
	"chat-lounge/domain"
	"chat-lounge/errors"
	"chat-lounge/repositories"
	errs "errors"
	"fmt"
	"log/slog"
)

type IAuthService interface {
	Authenticate(username, password string) (domain.Identity, error)
	Verify(token string) (domain.Identity, error)
}

// AuthService binds a chat username to an account.
// An unknown username is registered on first login, a known one must
// present the same password again.
type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenIssuer) IAuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Authenticate(username, password string) (domain.Identity, error) {
	// 1. Cheap checks before any cryptographic work
	if err := auth.ValidateLogin(auth.LoginRequest{Username: username, Password: password}); err != nil {
		return domain.Identity{}, err
	}

	// 2. Known user or first login
	user, err := s.userRepository.GetUser(username)
	if errs.Is(err, errors.ErrUserNotFound) {
		created, err := s.register(username, password)
		if err == nil {
			return s.issue(created)
		}
		if !errs.Is(err, errors.ErrUserAlreadyExists) {
			return domain.Identity{}, err
		}
		// Registered concurrently, fall back to a regular login
		user, err = s.userRepository.GetUser(username)
		if err != nil {
			return domain.Identity{}, err
		}
	} else if err != nil {
		return domain.Identity{}, err
	}

	// 3. Same password as the first login
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		// Generic error to prevent user enumeration
		return domain.Identity{}, fmt.Errorf("%w: %w", errors.ErrAuthFailure, errors.ErrInvalidCredentials)
	}
	return s.issue(user)
}

// Verify turns a token issued by Authenticate back into an identity.
func (s *AuthService) Verify(token string) (domain.Identity, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthFailure, err)
	}
	return domain.Identity{Username: domain.Username(claims.Username), Token: token}, nil
}

func (s *AuthService) register(username, password string) (repositories.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return repositories.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return repositories.User{}, err
	}
	s.log.Info("User registered", "username", username)
	return user, nil
}

func (s *AuthService) issue(user repositories.User) (domain.Identity, error) {
	token, err := s.tokens.GenerateToken(user.ID, domain.Username(user.Username))
	if err != nil {
		return domain.Identity{}, errors.ErrTokenGeneration
	}
	return domain.Identity{Username: domain.Username(user.Username), Token: token}, nil
}
