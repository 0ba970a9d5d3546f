package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS portal_sessions (
	id           TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT '',
	user_id      TEXT NOT NULL DEFAULT '',
	full_name    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS portal_sessions_expires_at_idx ON portal_sessions (expires_at);
`

// PgStore keeps sessions in the portal_sessions table. Expired rows are
// invisible to Load and removed by DeleteExpired.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist yet.
func (p *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, sessionSchema); err != nil {
		return fmt.Errorf("create session schema: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (mo.Option[Session], error) {
	fields := make(map[string]string, 4)
	var token, role, userID, fullName string

	err := row.Scan(&token, &role, &userID, &fullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[Session](), nil
		}
		return mo.None[Session](), err
	}

	fields[KeyAccessToken] = token
	fields[KeyRole] = role
	fields[KeyID] = userID
	fields[KeyFullName] = fullName

	s, err := FromFields(fields)
	if err != nil {
		return mo.None[Session](), err
	}
	return mo.Some(s), nil
}

func (p *PgStore) Load(ctx context.Context, id string) (mo.Option[Session], error) {
	row := p.pool.QueryRow(ctx, `
		SELECT access_token, role, user_id, full_name
		FROM portal_sessions
		WHERE id = $1
		  AND (expires_at IS NULL OR expires_at > now())
	`, id)

	s, err := scanSession(row)
	if err != nil {
		return mo.None[Session](), fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func (p *PgStore) Save(ctx context.Context, id string, s Session, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	userID := ""
	if s.UserID != 0 {
		userID = strconv.FormatInt(s.UserID, 10)
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO portal_sessions (id, access_token, role, user_id, full_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		ON CONFLICT (id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    role         = EXCLUDED.role,
		    user_id      = EXCLUDED.user_id,
		    full_name    = EXCLUDED.full_name,
		    expires_at   = EXCLUDED.expires_at
	`, id, s.Token, string(s.Role), userID, s.DisplayName, expiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PgStore) Clear(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (p *PgStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// DeleteExpired removes every session that expired before now and reports
// how many rows went.
func (p *PgStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM portal_sessions
		WHERE expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
