package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *MemoryStorage {
	t.Helper()
	m, err := CreateMemoryStorage()
	require.NoError(t, err)
	return m
}

func ownedLink(id, userID, url string, createdAt time.Time) ShortLink {
	return ShortLink{
		ID:        id,
		UserID:    &userID,
		URL:       url,
		Enabled:   true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func anonLink(id, url string, createdAt time.Time) ShortLink {
	return ShortLink{
		ID:        id,
		URL:       url,
		Enabled:   true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateUserConflict(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.CreateUser(ctx, User{ID: "u1"}))
	assert.ErrorIs(t, m.CreateUser(ctx, User{ID: "u1"}), ErrConflict)
}

func TestFindUserByID(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.CreateUser(ctx, User{ID: "u1"}))

	u, err := m.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = m.FindUserByID(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetUserKeyAndFindByPrefix(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.CreateUser(ctx, User{ID: "u1"}))
	require.NoError(t, m.SetUserKey(ctx, "u1", "prefix-1", "salt-1"))

	u, err := m.FindUserByKeyPrefix(ctx, "prefix-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NotNil(t, u.APIKeySalt)
	assert.Equal(t, "salt-1", *u.APIKeySalt)

	_, err = m.FindUserByKeyPrefix(ctx, "prefix-2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.SetUserKey(ctx, "missing", "p", "s"), ErrNotFound)
}

func TestInsertLinkConflict(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, anonLink("dup", "https://a.example", time.Now())))
	assert.ErrorIs(t, m.InsertLink(ctx, anonLink("dup", "https://b.example", time.Now())), ErrConflict)
}

func TestConcurrentInsertsOneWinner(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.InsertLink(ctx, anonLink("contested", "https://example.com", time.Now()))
		}()
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, won)
}

func TestFindLinksByUserIDSorted(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, m.InsertLink(ctx, ownedLink("older", "u1", "https://a.example", base.Add(-time.Hour))))
	require.NoError(t, m.InsertLink(ctx, ownedLink("newer", "u1", "https://b.example", base)))
	require.NoError(t, m.InsertLink(ctx, ownedLink("foreign", "u2", "https://c.example", base)))
	require.NoError(t, m.InsertLink(ctx, anonLink("anon", "https://d.example", base)))

	links, err := m.FindLinksByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "newer", links[0].ID)
	assert.Equal(t, "older", links[1].ID)
}

func TestFindAnonymousLinksLimit(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.InsertLink(ctx, anonLink(fmt.Sprintf("a%d", i), "https://example.com", base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, m.InsertLink(ctx, ownedLink("owned", "u1", "https://example.com", base)))

	links, err := m.FindAnonymousLinks(ctx, 3)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "a4", links[0].ID)
}

func TestLinkOwned(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, ownedLink("mine", "u1", "https://example.com", time.Now())))
	require.NoError(t, m.InsertLink(ctx, anonLink("nobodys", "https://example.com", time.Now())))

	owned, err := m.LinkOwned(ctx, "mine", "u1")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = m.LinkOwned(ctx, "mine", "u2")
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = m.LinkOwned(ctx, "nobodys", "u1")
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = m.LinkOwned(ctx, "missing", "u1")
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestUpdateLink(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, ownedLink("old-id", "u1", "https://example.com", time.Now())))

	title := "renamed"
	err := m.UpdateLink(ctx, "old-id", "u1", LinkUpdate{
		ID:        "new-id",
		Title:     &title,
		URL:       "https://example.com/v2",
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = m.FindLinkByID(ctx, "old-id")
	assert.ErrorIs(t, err, ErrNotFound)

	l, err := m.FindLinkByID(ctx, "new-id")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v2", l.URL)
}

func TestUpdateLinkRenameConflict(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, ownedLink("src", "u1", "https://a.example", time.Now())))
	require.NoError(t, m.InsertLink(ctx, ownedLink("dst", "u1", "https://b.example", time.Now())))

	err := m.UpdateLink(ctx, "src", "u1", LinkUpdate{ID: "dst", URL: "https://a.example", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateLinkMissingOrForeignIsNoOp(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, ownedLink("mine", "u1", "https://example.com", time.Now())))

	require.NoError(t, m.UpdateLink(ctx, "missing", "u1", LinkUpdate{ID: "missing", URL: "https://x.example", UpdatedAt: time.Now()}))
	require.NoError(t, m.UpdateLink(ctx, "mine", "u2", LinkUpdate{ID: "mine", URL: "https://x.example", UpdatedAt: time.Now()}))

	l, err := m.FindLinkByID(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", l.URL)
}

func TestDeleteLink(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, ownedLink("mine", "u1", "https://example.com", time.Now())))

	assert.ErrorIs(t, m.DeleteLink(ctx, "mine", "u2"), ErrNotFound)
	require.NoError(t, m.DeleteLink(ctx, "mine", "u1"))
	assert.ErrorIs(t, m.DeleteLink(ctx, "mine", "u1"), ErrNotFound)
}

func TestDeleteLinksByURLSubstring(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.InsertLink(ctx, anonLink("bad1", "https://evil.example/a", time.Now())))
	require.NoError(t, m.InsertLink(ctx, ownedLink("bad2", "u1", "https://evil.example/b", time.Now())))
	require.NoError(t, m.InsertLink(ctx, anonLink("good", "https://fine.example", time.Now())))

	require.NoError(t, m.DeleteLinksByURLSubstring(ctx, "evil.example"))

	_, err := m.FindLinkByID(ctx, "bad1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindLinkByID(ctx, "bad2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindLinkByID(ctx, "good")
	assert.NoError(t, err)
}

func TestDeleteAnonymousBefore(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.InsertLink(ctx, anonLink("stale", "https://example.com", now.Add(-2*time.Hour))))
	require.NoError(t, m.InsertLink(ctx, anonLink("fresh", "https://example.com", now)))
	require.NoError(t, m.InsertLink(ctx, ownedLink("owned-old", "u1", "https://example.com", now.Add(-2*time.Hour))))

	require.NoError(t, m.DeleteAnonymousBefore(ctx, now.Add(-time.Hour)))

	_, err := m.FindLinkByID(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindLinkByID(ctx, "fresh")
	assert.NoError(t, err)
	_, err = m.FindLinkByID(ctx, "owned-old")
	assert.NoError(t, err)
}

func TestCountAnonymousByHost(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.InsertLink(ctx, anonLink("a1", "https://busy.example/1", now)))
	require.NoError(t, m.InsertLink(ctx, anonLink("a2", "https://busy.example/2", now)))
	require.NoError(t, m.InsertLink(ctx, anonLink("a3", "https://quiet.example", now)))
	require.NoError(t, m.InsertLink(ctx, ownedLink("o1", "u1", "https://busy.example/3", now)))

	count, err := m.CountAnonymousByHost(ctx, "busy.example")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
