package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/session"
)

// Authenticator lets session managers use the account service.
type Authenticator struct {
	service *Service
}

var _ session.Authenticator = (*Authenticator)(nil)

func NewAuthenticator(service *Service) *Authenticator {
	return &Authenticator{service: service}
}

func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (session.Identity, error) {
	if err := ctx.Err(); err != nil {
		return session.Identity{}, err
	}
	user, err := a.service.Authenticate(email, password)
	if err != nil {
		return session.Identity{}, translate(err)
	}
	return IdentityOf(user), nil
}

func (a *Authenticator) Register(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.service.Register(email, password)
	if err != nil {
		return translate(err)
	}
	return nil
}

// IdentityOf is the session identity of a stored user.
func IdentityOf(user *entities.User) session.Identity {
	return session.Identity{
		ID:    strconv.FormatUint(uint64(user.ID), 10),
		Email: user.Email,
	}
}

// translate keeps the original error in the chain next to the session sentinel.
func translate(err error) error {
	var kind error
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
		kind = session.ErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		kind = session.ErrAccountLocked
	case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordRequired):
		kind = session.ErrMissingFields
	case errors.Is(err, ErrUserExists):
		kind = session.ErrAlreadyRegistered
	case errors.Is(err, ErrEmailInvalid), errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		kind = session.ErrInvalidInput
	default:
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
