// Package session stores offline platform sessions: the access tokens the
// job processors use to call the merchant platform long after the request
// that admitted the job has returned.
package session

import (
	"context"
	"errors"

	"storecopy-api/internal/model"
)

// ErrNotFound means no session is stored under the requested id.
var ErrNotFound = errors.New("session not found")

// Store persists offline platform sessions.
type Store interface {
	// Save stores a session under its id, replacing any previous value.
	Save(ctx context.Context, session *model.Session) error

	// Load returns the session stored under id, or ErrNotFound.
	Load(ctx context.Context, id string) (*model.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
