package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

func newTestLinkService(t *testing.T, blocklist []string) (*LinkService, *storage.MemoryStorage) {
	t.Helper()

	s, err := storage.CreateMemoryStorage()
	require.NoError(t, err)

	return NewLinkService(s, blocklist, zap.NewNop()), s
}

func strPtr(s string) *string   { return &s }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestCreateGeneratesIDWhenOmitted(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	link, err := svc.Create(context.Background(), CreateLinkInput{URL: "https://example.com/page"}, "user-1")
	require.NoError(t, err)
	assert.Len(t, link.ID, DefaultIDLength)
	assert.Equal(t, "https://example.com/page", link.URL)
	assert.True(t, link.Enabled)
	require.NotNil(t, link.UserID)
	assert.Equal(t, "user-1", *link.UserID)
}

func TestCreateKeepsChosenID(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	link, err := svc.Create(context.Background(), CreateLinkInput{ID: "my-page", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "my-page", link.ID)

	stored, err := s.FindLinkByID(context.Background(), "my-page")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", stored.URL)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateLinkInput
		want error
	}{
		{
			name: "id too short",
			in:   CreateLinkInput{ID: "abc", URL: "https://example.com"},
			want: ErrIDTooShort,
		},
		{
			name: "id too short after sanitize",
			in:   CreateLinkInput{ID: "a/b?c", URL: "https://example.com"},
			want: ErrIDTooShort,
		},
		{
			name: "leading underscore",
			in:   CreateLinkInput{ID: "_test", URL: "https://example.com"},
			want: ErrIDUnderscore,
		},
		{
			name: "relative url",
			in:   CreateLinkInput{URL: "/just/a/path"},
			want: ErrInvalidURL,
		},
		{
			name: "no scheme",
			in:   CreateLinkInput{URL: "example.com/page"},
			want: ErrInvalidURL,
		},
		{
			name: "fractional click limit",
			in:   CreateLinkInput{URL: "https://example.com", ClickLimit: f64Ptr(10.5)},
			want: ErrClickLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestLinkService(t, nil)
			_, err := svc.Create(context.Background(), tt.in, "user-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateWholeClickLimit(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	link, err := svc.Create(context.Background(), CreateLinkInput{
		URL:        "https://example.com",
		ClickLimit: f64Ptr(42),
	}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, link.ClickLimit)
	assert.Equal(t, 42, *link.ClickLimit)
}

func TestCreateHashesPassword(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	link, err := svc.Create(context.Background(), CreateLinkInput{
		ID:       "gated",
		URL:      "https://example.com",
		Password: strPtr("hunter2"),
	}, "user-1")
	require.NoError(t, err)

	stored, err := s.FindLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Password)
	assert.NotEqual(t, "hunter2", *stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.Password), []byte("hunter2")))
}

func TestCreateConflict(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "taken", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateLinkInput{ID: "taken", URL: "https://other.example"}, "user-2")
	assert.ErrorIs(t, err, ErrLinkExists)
}

func TestCreateBlockedHostPurgesMatches(t *testing.T) {
	svc, s := newTestLinkService(t, []string{"evil.example"})

	// A previously stored link pointing at the blocked host.
	require.NoError(t, s.InsertLink(context.Background(), storage.ShortLink{
		ID:        "old-evil",
		URL:       "https://evil.example/phish",
		Enabled:   true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	_, err := svc.Create(context.Background(), CreateLinkInput{URL: "https://evil.example/new"}, "user-1")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = s.FindLinkByID(context.Background(), "old-evil")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListReturnsOnlyOwnLinks(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "mine", URL: "https://example.com/a"}, "user-1")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateLinkInput{ID: "theirs", URL: "https://example.com/b"}, "user-2")
	require.NoError(t, err)

	links, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "mine", links[0].ID)
}

func TestUpdateRename(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "before", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateLinkInput{
		ID:    "before",
		NewID: "after",
		Title: strPtr("renamed"),
		URL:   "https://example.com/v2",
	}, "user-1")
	require.NoError(t, err)

	_, err = s.FindLinkByID(context.Background(), "before")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	link, err := s.FindLinkByID(context.Background(), "after")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v2", link.URL)
	require.NotNil(t, link.Title)
	assert.Equal(t, "renamed", *link.Title)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "stays", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateLinkInput{ID: "stays", NewID: "_nope", URL: "https://example.com"}, "user-1")
	assert.ErrorIs(t, err, ErrIDUnderscore)
}

func TestUpdateRenameConflict(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "source", URL: "https://example.com/a"}, "user-1")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateLinkInput{ID: "target", URL: "https://example.com/b"}, "user-1")
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateLinkInput{ID: "source", NewID: "target", URL: "https://example.com/a"}, "user-1")
	assert.ErrorIs(t, err, ErrLinkExists)
}

func TestUpdateForeignLinkIsSilent(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "owned", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	err = svc.Update(context.Background(), UpdateLinkInput{ID: "owned", URL: "https://attacker.example"}, "user-2")
	require.NoError(t, err)

	link, err := s.FindLinkByID(context.Background(), "owned")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.URL)
}

func TestDelete(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "gone", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "gone", "user-1"))

	_, err = s.FindLinkByID(context.Background(), "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	err := svc.Delete(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestDeleteForeignLink(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "owned", URL: "https://example.com"}, "user-1")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "owned", "user-2")
	assert.ErrorIs(t, err, ErrLinkNotFound)

	_, err = s.FindLinkByID(context.Background(), "owned")
	assert.NoError(t, err)
}

func TestPublicCreate(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	link, err := svc.PublicCreate(context.Background(), "https://example.com/shared")
	require.NoError(t, err)
	assert.Len(t, link.ID, DefaultIDLength)
	assert.Nil(t, link.UserID)
	assert.True(t, link.Enabled)
}

func TestPublicCreateInvalidURL(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.PublicCreate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestPublicCreateBlockedHost(t *testing.T) {
	svc, _ := newTestLinkService(t, []string{"evil.example"})

	_, err := svc.PublicCreate(context.Background(), "https://evil.example/x")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestPublicCreateSpamCap(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	now := time.Now()
	for i := 0; i <= anonymousHostCap; i++ {
		require.NoError(t, s.InsertLink(context.Background(), storage.ShortLink{
			ID:        fmt.Sprintf("anon%d", i),
			URL:       fmt.Sprintf("https://busy.example/p/%d", i),
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	_, err := svc.PublicCreate(context.Background(), "https://busy.example/one-more")
	assert.ErrorIs(t, err, ErrSpam)
}

func TestPublicCreatePurgesExpired(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	stale := time.Now().Add(-25 * time.Hour)
	require.NoError(t, s.InsertLink(context.Background(), storage.ShortLink{
		ID:        "stale1",
		URL:       "https://example.com/old",
		Enabled:   true,
		CreatedAt: stale,
		UpdatedAt: stale,
	}))

	_, err := svc.PublicCreate(context.Background(), "https://example.com/new")
	require.NoError(t, err)

	_, err = s.FindLinkByID(context.Background(), "stale1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublicListCapped(t *testing.T) {
	svc, s := newTestLinkService(t, nil)

	now := time.Now()
	for i := 0; i < anonymousListLimit+20; i++ {
		require.NoError(t, s.InsertLink(context.Background(), storage.ShortLink{
			ID:        fmt.Sprintf("anon%03d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Enabled:   true,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now,
		}))
	}

	links, err := svc.PublicList(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, anonymousListLimit)
}

func TestPublicListExcludesOwned(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "private", URL: "https://example.com/a"}, "user-1")
	require.NoError(t, err)
	_, err = svc.PublicCreate(context.Background(), "https://example.com/b")
	require.NoError(t, err)

	links, err := svc.PublicList(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.NotEqual(t, "private", links[0].ID)
}

func TestResolve(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{ID: "dest", URL: "https://example.com/landing"}, "user-1")
	require.NoError(t, err)

	link, err := svc.Resolve(context.Background(), "dest")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/landing", link.URL)
}

func TestResolveMissing(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Resolve(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestResolveDisabled(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	_, err := svc.Create(context.Background(), CreateLinkInput{
		ID:      "dark",
		URL:     "https://example.com",
		Enabled: boolPtr(false),
	}, "user-1")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "dark")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestSanitizedCreateRoundTrip(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	link, err := svc.Create(context.Background(), CreateLinkInput{
		ID:  "my page!",
		URL: "https://example.com",
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "mypage", link.ID)

	stored, err := svc.Resolve(context.Background(), "mypage")
	require.NoError(t, err)
	assert.False(t, strings.ContainsAny(stored.ID, " !"))
}
