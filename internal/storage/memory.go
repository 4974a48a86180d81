package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStorage is a map-backed Storage used when no database DSN is
// configured and throughout the test suite. All operations are guarded by a
// single mutex, so concurrent inserts racing for one identifier resolve the
// same way the database does: one wins, the other observes ErrConflict.
type MemoryStorage struct {
	mu    sync.Mutex
	users map[string]User
	links map[string]ShortLink
}

func CreateMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		users: make(map[string]User),
		links: make(map[string]ShortLink),
	}, nil
}

func (m *MemoryStorage) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[u.ID]; exists {
		return ErrConflict
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStorage) FindUserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, exists := m.users[id]; exists {
		return &u, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) FindUserByKeyPrefix(ctx context.Context, prefix string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.APIKey != nil && *u.APIKey == prefix {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SetUserKey(ctx context.Context, id, prefix, salt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, exists := m.users[id]
	if !exists {
		return ErrNotFound
	}
	u.APIKey = &prefix
	u.APIKeySalt = &salt
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *MemoryStorage) InsertLink(ctx context.Context, l ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[l.ID]; exists {
		return ErrConflict
	}
	m.links[l.ID] = l
	return nil
}

func (m *MemoryStorage) FindLinkByID(ctx context.Context, id string) (*ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, exists := m.links[id]; exists {
		return &l, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) FindLinksByUserID(ctx context.Context, userID string) ([]ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ShortLink, 0)
	for _, l := range m.links {
		if l.UserID != nil && *l.UserID == userID {
			result = append(result, l)
		}
	}
	sortLinks(result)
	return result, nil
}

func (m *MemoryStorage) FindAnonymousLinks(ctx context.Context, limit int) ([]ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ShortLink, 0)
	for _, l := range m.links {
		if l.UserID == nil {
			result = append(result, l)
		}
	}
	sortLinks(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStorage) LinkOwned(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.links[id]
	return exists && l.UserID != nil && *l.UserID == userID, nil
}

func (m *MemoryStorage) UpdateLink(ctx context.Context, id, userID string, upd LinkUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.links[id]
	if !exists || l.UserID == nil || *l.UserID != userID {
		// Missing and non-owned rows are indistinguishable here.
		return nil
	}

	if upd.ID != id {
		if _, taken := m.links[upd.ID]; taken {
			return ErrConflict
		}
		delete(m.links, id)
	}

	l.ID = upd.ID
	l.Title = upd.Title
	l.URL = upd.URL
	l.UpdatedAt = upd.UpdatedAt
	m.links[upd.ID] = l
	return nil
}

func (m *MemoryStorage) DeleteLink(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.links[id]
	if !exists || l.UserID == nil || *l.UserID != userID {
		return ErrNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MemoryStorage) DeleteLinksByURLSubstring(ctx context.Context, substr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, l := range m.links {
		if strings.Contains(l.URL, substr) {
			delete(m.links, id)
		}
	}
	return nil
}

func (m *MemoryStorage) DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, l := range m.links {
		if l.UserID == nil && l.CreatedAt.Before(cutoff) {
			delete(m.links, id)
		}
	}
	return nil
}

func (m *MemoryStorage) CountAnonymousByHost(ctx context.Context, host string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, l := range m.links {
		if l.UserID == nil && strings.Contains(l.URL, host) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) PingContext(ctx context.Context) error {
	return nil
}

// sortLinks orders by creation time, newest first, for stable listings.
func sortLinks(ls []ShortLink) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].ID < ls[j].ID
		}
		return ls[i].CreatedAt.After(ls[j].CreatedAt)
	})
}
