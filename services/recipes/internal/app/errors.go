package app

import (
	"errors"
	"fmt"

	"recipebook/pkg/domain"
)

var (
	// ErrInvalidCredentials is returned for a wrong password and for an
	// unknown email alike, so a caller cannot enumerate accounts.
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

	ErrStoreRequired    = errors.New("store required")
	ErrSessionsRequired = errors.New("session store required")
)
