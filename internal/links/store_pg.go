package links

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marius4lui/toolbox-links/internal/errx"
)

// db abstracts the pgx pool surface the store needs.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS redirects (
	hash        text         PRIMARY KEY,
	target_url  text         NOT NULL,
	user_id     text,
	clicks      bigint       NOT NULL DEFAULT 0,
	is_active   boolean      NOT NULL DEFAULT true,
	created_at  timestamptz  NOT NULL DEFAULT now(),
	expires_at  timestamptz  NOT NULL
);

CREATE INDEX IF NOT EXISTS redirects_user_created_idx
	ON redirects (user_id, created_at DESC);
`

// Migrate applies the redirects schema. Safe to run at every startup.
func Migrate(ctx context.Context, d db) error {
	if _, err := d.Exec(ctx, schema); err != nil {
		return errx.E("links.Migrate", errx.Unavailable, err)
	}
	return nil
}

// pgStore implements Store on top of PostgreSQL.
type pgStore struct {
	db db
}

// NewStore creates a Store backed by the given database handle
// (typically a *pgxpool.Pool).
func NewStore(d db) Store {
	return &pgStore{db: d}
}

const linkColumns = `hash, target_url, user_id, clicks, is_active, created_at, expires_at`

func scanLink(row pgx.Row) (Link, error) {
	var l Link
	err := row.Scan(&l.Hash, &l.TargetURL, &l.UserID, &l.Clicks, &l.IsActive, &l.CreatedAt, &l.ExpiresAt)
	if err != nil {
		return Link{}, err
	}
	return l, nil
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isHashUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (s *pgStore) Create(ctx context.Context, link Link) (Link, error) {
	const op = "links.store.Create"

	row := s.db.QueryRow(ctx, `
		INSERT INTO redirects (hash, target_url, user_id, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+linkColumns,
		link.Hash, link.TargetURL, link.UserID, link.IsActive, link.CreatedAt, link.ExpiresAt,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return created, nil
}

func (s *pgStore) GetByHash(ctx context.Context, hash string) (Link, error) {
	const op = "links.store.GetByHash"

	row := s.db.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM redirects
		WHERE hash = $1`,
		hash,
	)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return link, nil
}

func (s *pgStore) ListByUser(ctx context.Context, userID string) ([]Link, error) {
	const op = "links.store.ListByUser"

	rows, err := s.db.Query(ctx, `
		SELECT `+linkColumns+`
		FROM redirects
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	var result []Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapStoreError(op, err)
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}

	return result, nil
}

func (s *pgStore) UpdateTarget(ctx context.Context, hash, targetURL string) (Link, error) {
	const op = "links.store.UpdateTarget"

	row := s.db.QueryRow(ctx, `
		UPDATE redirects
		SET target_url = $2
		WHERE hash = $1
		RETURNING `+linkColumns,
		hash, targetURL,
	)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return link, nil
}

func (s *pgStore) Restore(ctx context.Context, hash string, expiresAt time.Time) (Link, error) {
	const op = "links.store.Restore"

	row := s.db.QueryRow(ctx, `
		UPDATE redirects
		SET is_active = true, expires_at = $2
		WHERE hash = $1
		RETURNING `+linkColumns,
		hash, expiresAt,
	)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return link, nil
}

func (s *pgStore) Delete(ctx context.Context, hash string) error {
	const op = "links.store.Delete"

	tag, err := s.db.Exec(ctx, `DELETE FROM redirects WHERE hash = $1`, hash)
	if err != nil {
		return mapStoreError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, pgx.ErrNoRows)
	}
	return nil
}

func (s *pgStore) IncrementClicks(ctx context.Context, hash string) error {
	const op = "links.store.IncrementClicks"

	if _, err := s.db.Exec(ctx, `
		UPDATE redirects
		SET clicks = clicks + 1
		WHERE hash = $1`,
		hash,
	); err != nil {
		return mapStoreError(op, err)
	}
	return nil
}
