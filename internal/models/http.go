// Package models defines the request and response data structures used
// for communication between clients and the short-link service.
package models

// CreateRequest represents a request to create a short link.
type CreateRequest struct {
	// URL is the destination the short link redirects to. Required.
	URL string `json:"url"`

	// ID is an optional caller-chosen identifier. When empty a random
	// identifier is generated.
	ID string `json:"id,omitempty"`

	// Title is an optional display title.
	Title *string `json:"title,omitempty"`

	// Enabled toggles the link. Defaults to true.
	Enabled *bool `json:"enabled,omitempty"`

	// ClickLimit caps the number of redirects. Stored, not enforced here.
	ClickLimit *float64 `json:"clickLimit,omitempty"`

	// Password optionally protects the link.
	Password *string `json:"password,omitempty"`

	// TimeOffset is a caller-supplied value, opaque to the service.
	TimeOffset int `json:"timeOffset,omitempty"`
}

// UpdateRequest represents a request to rename or edit an existing short link.
type UpdateRequest struct {
	// NewID, when set, renames the link.
	NewID string `json:"newId,omitempty"`

	// Title replaces the stored title; omitting it clears the title.
	Title *string `json:"title,omitempty"`

	// URL replaces the stored destination.
	URL string `json:"url"`
}

// LinkResponse is the representation of a stored short link returned to
// authenticated callers.
type LinkResponse struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Title      *string `json:"title"`
	Enabled    bool    `json:"enabled"`
	ClickLimit *int    `json:"clickLimit"`
	TimeOffset int     `json:"timeOffset"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// PublicLinkResponse is the trimmed representation returned on the anonymous
// surface: identifier and destination only.
type PublicLinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PublicCreateRequest represents an anonymous link creation request.
type PublicCreateRequest struct {
	URL string `json:"url"`
}

// KeyRequest represents an API-key issuance request.
type KeyRequest struct {
	// Intent set to "new" forces regeneration, invalidating the prior key.
	Intent string `json:"intent,omitempty"`
}

// KeyResponse is returned on key issuance. Key is populated exactly once,
// when a key is newly derived; on repeat issuance only Issued is set, since
// the full key is not recoverable from the stored lookup prefix.
type KeyResponse struct {
	Key    string `json:"key,omitempty"`
	Issued bool   `json:"issued"`
}
