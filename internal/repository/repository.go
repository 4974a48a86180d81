// Package repository implements the persistence gateway on top of
// PostgreSQL, using the pgx stdlib driver. Unique-constraint violations are
// translated to storage.ErrConflict so the service layer never inspects
// database error codes itself.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

// InitDB opens the database, verifies connectivity and bootstraps the schema.
func InitDB(dsn string, logger *zap.Logger) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(err)
	}

	createTables := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			api_key TEXT,
			api_key_salt TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS short_links (
			id TEXT PRIMARY KEY,
			user_id UUID REFERENCES users(id),
			url TEXT NOT NULL,
			title TEXT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			click_limit INTEGER,
			password TEXT,
			time_offset INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS short_links_user_id_idx ON short_links (user_id);
		CREATE INDEX IF NOT EXISTS users_api_key_idx ON users (api_key);`

	if _, err := db.Exec(createTables); err != nil {
		logger.Fatal("cannot bootstrap schema", zap.Error(err))
	}

	return db
}

// LinkRepository is the SQL-backed storage.Storage implementation.
type LinkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func CreateLinkRepository(db *sql.DB, logger *zap.Logger) *LinkRepository {
	return &LinkRepository{
		db:     db,
		logger: logger,
	}
}

// translateErr maps database errors onto the storage sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return storage.ErrConflict
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func (r *LinkRepository) CreateUser(ctx context.Context, u storage.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, api_key, api_key_salt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5);`,
		u.ID, u.APIKey, u.APIKeySalt, u.CreatedAt, u.UpdatedAt,
	)
	return translateErr(err)
}

func (r *LinkRepository) FindUserByID(ctx context.Context, id string) (*storage.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, api_key, api_key_salt, created_at, updated_at FROM users WHERE id = $1;`, id)
	return scanUser(row)
}

func (r *LinkRepository) FindUserByKeyPrefix(ctx context.Context, prefix string) (*storage.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, api_key, api_key_salt, created_at, updated_at FROM users WHERE api_key = $1;`, prefix)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*storage.User, error) {
	var u storage.User
	err := row.Scan(&u.ID, &u.APIKey, &u.APIKeySalt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

func (r *LinkRepository) SetUserKey(ctx context.Context, id, prefix, salt string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET api_key = $2, api_key_salt = $3, updated_at = NOW() WHERE id = $1;`,
		id, prefix, salt,
	)
	if err != nil {
		return translateErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *LinkRepository) InsertLink(ctx context.Context, l storage.ShortLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO short_links
		 (id, user_id, url, title, enabled, click_limit, password, time_offset, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		l.ID, l.UserID, l.URL, l.Title, l.Enabled, l.ClickLimit, l.Password, l.TimeOffset, l.CreatedAt, l.UpdatedAt,
	)
	return translateErr(err)
}

const linkColumns = `id, user_id, url, title, enabled, click_limit, password, time_offset, created_at, updated_at`

func (r *LinkRepository) FindLinkByID(ctx context.Context, id string) (*storage.ShortLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM short_links WHERE id = $1;`, id)

	var l storage.ShortLink
	err := row.Scan(&l.ID, &l.UserID, &l.URL, &l.Title, &l.Enabled, &l.ClickLimit, &l.Password, &l.TimeOffset, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &l, nil
}

func (r *LinkRepository) FindLinksByUserID(ctx context.Context, userID string) ([]storage.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM short_links WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func (r *LinkRepository) FindAnonymousLinks(ctx context.Context, limit int) ([]storage.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM short_links WHERE user_id IS NULL ORDER BY created_at DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func collectLinks(rows *sql.Rows) ([]storage.ShortLink, error) {
	defer rows.Close()

	links := make([]storage.ShortLink, 0)
	for rows.Next() {
		var l storage.ShortLink
		err := rows.Scan(&l.ID, &l.UserID, &l.URL, &l.Title, &l.Enabled, &l.ClickLimit, &l.Password, &l.TimeOffset, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func (r *LinkRepository) LinkOwned(ctx context.Context, id, userID string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM short_links WHERE id = $1 AND user_id = $2;`, id, userID)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *LinkRepository) UpdateLink(ctx context.Context, id, userID string, upd storage.LinkUpdate) error {
	// Zero rows affected means missing or non-owned; both are a no-op.
	_, err := r.db.ExecContext(ctx,
		`UPDATE short_links SET id = $3, title = $4, url = $5, updated_at = $6
		 WHERE id = $1 AND user_id = $2;`,
		id, userID, upd.ID, upd.Title, upd.URL, upd.UpdatedAt,
	)
	return translateErr(err)
}

func (r *LinkRepository) DeleteLink(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM short_links WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return translateErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *LinkRepository) DeleteLinksByURLSubstring(ctx context.Context, substr string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM short_links WHERE url LIKE '%' || $1 || '%';`, substr)
	return translateErr(err)
}

func (r *LinkRepository) DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM short_links WHERE user_id IS NULL AND created_at < $1;`, cutoff)
	return translateErr(err)
}

func (r *LinkRepository) CountAnonymousByHost(ctx context.Context, host string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM short_links WHERE user_id IS NULL AND url LIKE '%' || $1 || '%';`, host)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
