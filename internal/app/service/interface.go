package service

import (
	"context"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

// LinkServiceIface is the link CRUD surface handlers depend on.
type LinkServiceIface interface {
	Create(ctx context.Context, in CreateLinkInput, userID string) (*storage.ShortLink, error)
	List(ctx context.Context, userID string) ([]storage.ShortLink, error)
	Update(ctx context.Context, in UpdateLinkInput, userID string) error
	Delete(ctx context.Context, id, userID string) error
	PublicList(ctx context.Context) ([]storage.ShortLink, error)
	PublicCreate(ctx context.Context, rawURL string) (*storage.ShortLink, error)
	Resolve(ctx context.Context, id string) (*storage.ShortLink, error)
	PingContext(ctx context.Context) error
}

// KeyCodecIface is the API-key issuance and verification surface used by
// middleware and the key handler.
type KeyCodecIface interface {
	Issue(ctx context.Context, userID string, regenerate bool) (string, bool, error)
	Verify(ctx context.Context, presented string) (string, error)
}
