package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

// keyPrefixLen is the number of leading characters of an issued key that are
// persisted as the lookup prefix. The prefix identifies the candidate user;
// it is not sufficient to authenticate.
const keyPrefixLen = 32

// Internal verification failures. They are distinguished only for logging;
// every one of them surfaces to callers as ErrUnauthorized so the API leaks
// nothing about which step failed.
var (
	errKeyNoMatch   = errors.New("api key: no user for lookup prefix")
	errKeyDecrypt   = errors.New("api key: decryption failed")
	errKeyPlaintext = errors.New("api key: plaintext mismatch")
)

// KeyCodec derives and verifies opaque API keys.
//
// An issued key is the base64 encoding of AES-256-GCM output: the plaintext
// "<userID>.<salt>" sealed under a key built from the user's random salt,
// with the server-wide secret as nonce material. The nonce is therefore
// deterministic and reused across users — a known weakness of the scheme,
// preserved because changing the derivation would invalidate every issued
// key. Only the salt and the first 32 characters of the key are stored; the
// full key is shown to the issuing user exactly once.
type KeyCodec struct {
	storage storage.Storage
	secret  []byte
	logger  *zap.Logger
}

// NewKeyCodec returns a codec bound to the given storage and server secret.
func NewKeyCodec(s storage.Storage, secret string, logger *zap.Logger) (*KeyCodec, error) {
	if secret == "" {
		return nil, errors.New("api key: server secret must not be empty")
	}
	return &KeyCodec{
		storage: s,
		secret:  []byte(secret),
		logger:  logger,
	}, nil
}

// seal encrypts plaintext under the salt-derived key with the server secret
// as nonce.
func (c *KeyCodec) seal(salt, plaintext string) (string, error) {
	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, c.secret, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *KeyCodec) aead(salt string) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(salt))
	if err != nil {
		return nil, err
	}
	// The nonce length follows the secret, not the GCM default of 12 bytes.
	return cipher.NewGCMWithNonceSize(block, len(c.secret))
}

// Issue derives an API key for userID. When the user already holds a key and
// regenerate is false, Issue is a no-op returning created=false: the prior
// key cannot be re-displayed because only its lookup prefix is stored. With
// regenerate set, a fresh salt is drawn and any previously issued key stops
// verifying.
func (c *KeyCodec) Issue(ctx context.Context, userID string, regenerate bool) (key string, created bool, err error) {
	user, err := c.storage.FindUserByID(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("api key: loading user: %w", err)
	}

	if user.APIKey != nil && !regenerate {
		return "", false, nil
	}

	salt := GenerateID(SaltLength)
	issued, err := c.seal(salt, userID+"."+salt)
	if err != nil {
		return "", false, fmt.Errorf("api key: sealing: %w", err)
	}
	if len(issued) < keyPrefixLen {
		return "", false, errors.New("api key: issued key shorter than lookup prefix")
	}

	if err := c.storage.SetUserKey(ctx, userID, issued[:keyPrefixLen], salt); err != nil {
		return "", false, fmt.Errorf("api key: persisting: %w", err)
	}

	return issued, true, nil
}

// Verify resolves a presented key to a user id.
//
// Lookup uses the first 32 characters of the key; the remaining proof is a
// full decryption of the presented key and an exact match against the
// expected plaintext. Every failure mode returns ErrUnauthorized; the precise
// cause is logged at debug level only.
func (c *KeyCodec) Verify(ctx context.Context, presented string) (string, error) {
	userID, err := c.verify(ctx, presented)
	if err != nil {
		c.logger.Debug("api key rejected", zap.Error(err))
		return "", ErrUnauthorized
	}
	return userID, nil
}

func (c *KeyCodec) verify(ctx context.Context, presented string) (string, error) {
	if len(presented) < keyPrefixLen {
		return "", errKeyNoMatch
	}

	user, err := c.storage.FindUserByKeyPrefix(ctx, presented[:keyPrefixLen])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", errKeyNoMatch
		}
		return "", err
	}
	if user.APIKeySalt == nil {
		return "", errKeyNoMatch
	}
	salt := *user.APIKeySalt

	ciphertext, err := base64.StdEncoding.DecodeString(presented)
	if err != nil {
		return "", errKeyDecrypt
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", errKeyDecrypt
	}

	plaintext, err := gcm.Open(nil, c.secret, ciphertext, nil)
	if err != nil {
		return "", errKeyDecrypt
	}

	if string(plaintext) != user.ID+"."+salt {
		return "", errKeyPlaintext
	}

	return user.ID, nil
}
