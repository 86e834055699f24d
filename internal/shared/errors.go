package shared

import (
	"errors"

	"github.com/maderia/maderia/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found. It aliases the httpx
	// sentinel so handlers can pass repository errors straight to
	// httpx.RespondError.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
