package service

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

const (
	// anonymousTTL is how long anonymous links live before they are purged.
	anonymousTTL = 24 * time.Hour

	// anonymousHostCap is the maximum number of live anonymous links per
	// destination host; the next create is rejected as spam.
	anonymousHostCap = 100

	// anonymousListLimit caps the public listing.
	anonymousListLimit = 100
)

// CreateLinkInput is the validated-by-the-service payload for Create.
type CreateLinkInput struct {
	ID         string
	URL        string
	Title      *string
	Enabled    *bool
	ClickLimit *float64
	Password   *string
	TimeOffset int
}

// UpdateLinkInput carries a rename/edit request for an owned link.
type UpdateLinkInput struct {
	ID    string
	NewID string
	Title *string
	URL   string
}

// LinkService implements the short-link CRUD core. It is parameterized by an
// already-resolved user identity, so it is agnostic to whether the caller
// authenticated with a session or an API key.
type LinkService struct {
	storage   storage.Storage
	logger    *zap.Logger
	blocklist []string
}

func NewLinkService(s storage.Storage, blocklist []string, logger *zap.Logger) *LinkService {
	return &LinkService{
		storage:   s,
		blocklist: blocklist,
		logger:    logger,
	}
}

// Create validates the payload and inserts a link owned by userID.
//
// When the destination host matches a blocklist entry, every stored link
// whose URL contains that entry is purged before the create is rejected.
// The purge is opportunistic housekeeping: its failure is logged and
// swallowed, never surfaced.
func (s *LinkService) Create(ctx context.Context, in CreateLinkInput, userID string) (*storage.ShortLink, error) {
	id := SanitizeID(in.ID)
	if id == "" {
		id = GenerateID(DefaultIDLength)
	}

	if len(id) < 4 {
		return nil, ErrIDTooShort
	}
	if strings.HasPrefix(id, "_") {
		return nil, ErrIDUnderscore
	}

	dest, err := parseAbsoluteURL(in.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	if blockedBy := s.matchBlocklist(dest.Host); blockedBy != "" {
		s.purgeBlocked(ctx, blockedBy)
		return nil, ErrBlocked
	}

	clickLimit, err := intClickLimit(in.ClickLimit)
	if err != nil {
		return nil, ErrClickLimit
	}

	password, err := hashPassword(in.Password)
	if err != nil {
		s.logger.Error("hashing link password", zap.Error(err))
		return nil, ErrInternal
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	now := time.Now()
	link := storage.ShortLink{
		ID:         id,
		UserID:     &userID,
		URL:        dest.String(),
		Title:      in.Title,
		Enabled:    enabled,
		ClickLimit: clickLimit,
		Password:   password,
		TimeOffset: in.TimeOffset,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.storage.InsertLink(ctx, link); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrLinkExists
		}
		s.logger.Error("inserting link", zap.Error(err))
		return nil, ErrInternal
	}

	return &link, nil
}

// List returns every link owned by userID.
func (s *LinkService) List(ctx context.Context, userID string) ([]storage.ShortLink, error) {
	links, err := s.storage.FindLinksByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("listing links", zap.Error(err))
		return nil, ErrInternal
	}
	return links, nil
}

// Update renames or edits the link matching in.ID and userID. Updating a
// missing or non-owned link affects nothing and reports success; the
// ambiguity is deliberate.
func (s *LinkService) Update(ctx context.Context, in UpdateLinkInput, userID string) error {
	xid := in.NewID
	if xid == "" {
		xid = in.ID
	}

	if strings.HasPrefix(xid, "_") {
		return ErrIDUnderscore
	}

	upd := storage.LinkUpdate{
		ID:        SanitizeID(xid),
		Title:     in.Title,
		URL:       in.URL,
		UpdatedAt: time.Now(),
	}

	if err := s.storage.UpdateLink(ctx, in.ID, userID, upd); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrLinkExists
		}
		s.logger.Error("updating link", zap.Error(err))
		return ErrInternal
	}
	return nil
}

// Delete removes the link matching id and userID. It checks existence first
// so a precise not-found can be reported.
func (s *LinkService) Delete(ctx context.Context, id, userID string) error {
	owned, err := s.storage.LinkOwned(ctx, id, userID)
	if err != nil {
		s.logger.Error("checking link ownership", zap.Error(err))
		return ErrInternal
	}
	if !owned {
		return ErrLinkNotFound
	}

	if err := s.storage.DeleteLink(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrLinkNotFound
		}
		s.logger.Error("deleting link", zap.Error(err))
		return ErrInternal
	}
	return nil
}

// PublicList returns up to 100 anonymous links.
func (s *LinkService) PublicList(ctx context.Context) ([]storage.ShortLink, error) {
	links, err := s.storage.FindAnonymousLinks(ctx, anonymousListLimit)
	if err != nil {
		s.logger.Error("listing anonymous links", zap.Error(err))
		return nil, ErrInternal
	}
	return links, nil
}

// PublicCreate inserts an anonymous link with a generated identifier. Before
// inserting it purges anonymous links older than 24 hours (best effort) and
// rejects the create as spam when the destination host already has more than
// the allowed number of live anonymous links.
func (s *LinkService) PublicCreate(ctx context.Context, rawURL string) (*storage.ShortLink, error) {
	dest, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	if blockedBy := s.matchBlocklist(dest.Host); blockedBy != "" {
		s.purgeBlocked(ctx, blockedBy)
		return nil, ErrBlocked
	}

	if err := s.storage.DeleteAnonymousBefore(ctx, time.Now().Add(-anonymousTTL)); err != nil {
		s.logger.Warn("purging expired anonymous links", zap.Error(err))
	}

	count, err := s.storage.CountAnonymousByHost(ctx, dest.Host)
	if err != nil {
		// Best effort: an unreadable count never blocks the create.
		s.logger.Warn("counting anonymous links", zap.Error(err))
		count = 0
	}
	if count > anonymousHostCap {
		return nil, ErrSpam
	}

	now := time.Now()
	link := storage.ShortLink{
		ID:        GenerateID(DefaultIDLength),
		URL:       dest.String(),
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.InsertLink(ctx, link); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrLinkExists
		}
		s.logger.Error("inserting anonymous link", zap.Error(err))
		return nil, ErrInternal
	}

	return &link, nil
}

// Resolve looks up the destination for a redirect. Disabled links resolve
// like missing ones.
func (s *LinkService) Resolve(ctx context.Context, id string) (*storage.ShortLink, error) {
	link, err := s.storage.FindLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		s.logger.Error("resolving link", zap.Error(err))
		return nil, ErrInternal
	}
	if !link.Enabled {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// PingContext reports storage health.
func (s *LinkService) PingContext(ctx context.Context) error {
	return s.storage.PingContext(ctx)
}

func (s *LinkService) matchBlocklist(host string) string {
	for _, blocked := range s.blocklist {
		if strings.Contains(host, blocked) {
			return blocked
		}
	}
	return ""
}

func (s *LinkService) purgeBlocked(ctx context.Context, blocked string) {
	if err := s.storage.DeleteLinksByURLSubstring(ctx, blocked); err != nil {
		s.logger.Warn("purging blocklisted links", zap.String("blocked", blocked), zap.Error(err))
	}
}

// parseAbsoluteURL normalizes the destination by parsing and re-stringifying
// it, rejecting anything without a scheme and host.
func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("url is not absolute")
	}
	return u, nil
}

// intClickLimit validates the caller-supplied click limit: present values
// must be finite whole numbers.
func intClickLimit(v *float64) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v != math.Trunc(*v) {
		return nil, errors.New("click limit is not a whole number")
	}
	n := int(*v)
	return &n, nil
}

func hashPassword(p *string) (*string, error) {
	if p == nil || *p == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*p), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	h := string(hash)
	return &h, nil
}
