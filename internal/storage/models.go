package storage

import "time"

// User is an account that can own short links. APIKey holds only the 32
// character lookup prefix of an issued key, never the key itself; APIKeySalt
// is the per-user secret the key was derived from. Both are nil until a key
// is issued, and always set together.
type User struct {
	ID         string
	APIKey     *string
	APIKeySalt *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ShortLink maps a short identifier to a destination URL plus metadata.
// UserID is nil for anonymous links, which are subject to expiry and
// per-host volume caps.
type ShortLink struct {
	ID         string
	UserID     *string
	URL        string
	Title      *string
	Enabled    bool
	ClickLimit *int
	Password   *string
	TimeOffset int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LinkUpdate carries the fields applied by Storage.UpdateLink. ID is the
// target identifier (same as the current one unless the link is being
// renamed); Title replaces the stored title, nil clears it.
type LinkUpdate struct {
	ID        string
	Title     *string
	URL       string
	UpdatedAt time.Time
}
