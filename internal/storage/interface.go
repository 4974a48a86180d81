// Package storage defines the persistence gateway for users and short links,
// and provides an in-memory implementation used for tests and DSN-less runs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned when a write violates the identifier uniqueness
// constraint.
var ErrConflict = errors.New("data conflict")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Storage is the persistence gateway. Identifier uniqueness is enforced by
// the implementation (InsertLink and UpdateLink return ErrConflict), which is
// the sole concurrency-correctness mechanism for colliding writes.
type Storage interface {
	CreateUser(ctx context.Context, u User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	// FindUserByKeyPrefix resolves the candidate user for a presented API key
	// by its stored lookup prefix.
	FindUserByKeyPrefix(ctx context.Context, prefix string) (*User, error)
	// SetUserKey stores a freshly derived key prefix and salt for the user.
	SetUserKey(ctx context.Context, id, prefix, salt string) error

	InsertLink(ctx context.Context, l ShortLink) error
	FindLinkByID(ctx context.Context, id string) (*ShortLink, error)
	FindLinksByUserID(ctx context.Context, userID string) ([]ShortLink, error)
	FindAnonymousLinks(ctx context.Context, limit int) ([]ShortLink, error)
	// LinkOwned reports whether a link exists with the given id and owner.
	LinkOwned(ctx context.Context, id, userID string) (bool, error)
	// UpdateLink applies upd to the row matching id and userID. Updating a
	// missing or non-owned row affects nothing and returns nil.
	UpdateLink(ctx context.Context, id, userID string, upd LinkUpdate) error
	DeleteLink(ctx context.Context, id, userID string) error

	// DeleteLinksByURLSubstring removes every link whose stored URL contains
	// substr. Used for blocklist purges.
	DeleteLinksByURLSubstring(ctx context.Context, substr string) error
	// DeleteAnonymousBefore removes anonymous links created before cutoff.
	DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) error
	// CountAnonymousByHost counts anonymous links whose URL contains host.
	CountAnonymousByHost(ctx context.Context, host string) (int, error)

	PingContext(ctx context.Context) error
}
