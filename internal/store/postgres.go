package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// formLockTTL is how long a form lock blocks other submits. A lock older
// than this was left behind by a crashed instance and may be taken over.
const formLockTTL = 2 * time.Minute

// PostgresStore implements IdentityStore, ResetStore and FormLockStore using
// PostgreSQL.
type PostgresStore struct {
	pool poolIface
}

// NewPostgresStore creates a store over pool. The schema is created by the
// embedded migrations.
func NewPostgresStore(pool poolIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// =============================================================================
// Identities
// =============================================================================

func (p *PostgresStore) Add(ctx context.Context, sessionID string, identity domain.Identity) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO session_identities (session_id, uid, name, email) VALUES ($1, $2, $3, $4)`,
		sessionID, identity.ID, identity.Name, identity.Email)
	if err != nil {
		return fmt.Errorf("add identity: %w", err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, sessionID string) ([]domain.Identity, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT uid, name, email FROM session_identities WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	list := []domain.Identity{}
	for rows.Next() {
		var i domain.Identity
		if err := rows.Scan(&i.ID, &i.Name, &i.Email); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		list = append(list, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return list, nil
}

func (p *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM session_identities WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear identities: %w", err)
	}
	return nil
}

// =============================================================================
// Reset sessions
// =============================================================================

func (p *PostgresStore) Create(ctx context.Context, s *domain.ResetSession) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO reset_sessions (token_hash, email, step, in_flight, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.TokenHash, s.Email, string(s.Step), s.InFlight, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create reset session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, tokenHash string) (*domain.ResetSession, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT token_hash, email, step, in_flight, created_at, expires_at
		 FROM reset_sessions WHERE token_hash = $1`,
		tokenHash)
	s, err := scanResetSession(row)
	if err != nil {
		return nil, fmt.Errorf("get reset session: %w", err)
	}
	return s, nil
}

// Acquire flips in_flight with a conditional update so concurrent requests
// for one session cannot both win.
func (p *PostgresStore) Acquire(ctx context.Context, tokenHash string) (*domain.ResetSession, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE reset_sessions SET in_flight = true
		 WHERE token_hash = $1 AND in_flight = false
		 RETURNING token_hash, email, step, in_flight, created_at, expires_at`,
		tokenHash)
	s, err := scanResetSession(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("acquire reset session: %w", err)
	}

	// No row updated: either it does not exist or someone else holds it.
	var exists bool
	if err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reset_sessions WHERE token_hash = $1)`,
		tokenHash).Scan(&exists); err != nil {
		return nil, fmt.Errorf("acquire reset session: %w", err)
	}
	if exists {
		return nil, ErrInFlight
	}
	return nil, ErrNotFound
}

func (p *PostgresStore) Release(ctx context.Context, tokenHash string, step domain.ResetStep) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE reset_sessions SET in_flight = false, step = $2 WHERE token_hash = $1`,
		tokenHash, string(step))
	if err != nil {
		return fmt.Errorf("release reset session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM reset_sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete reset session: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM reset_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired reset sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Form locks
// =============================================================================

// AcquireForm inserts the lock row, or takes over a stale one. No affected
// row means another request holds it.
func (p *PostgresStore) AcquireForm(ctx context.Context, sessionID, form string) error {
	now := time.Now()
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO form_locks (session_id, form, acquired_at) VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, form) DO UPDATE SET acquired_at = EXCLUDED.acquired_at
		 WHERE form_locks.acquired_at < $4`,
		sessionID, form, now, now.Add(-formLockTTL))
	if err != nil {
		return fmt.Errorf("acquire form lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInFlight
	}
	return nil
}

func (p *PostgresStore) ReleaseForm(ctx context.Context, sessionID, form string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM form_locks WHERE session_id = $1 AND form = $2`,
		sessionID, form); err != nil {
		return fmt.Errorf("release form lock: %w", err)
	}
	return nil
}

func scanResetSession(row pgx.Row) (*domain.ResetSession, error) {
	var s domain.ResetSession
	var step string
	err := row.Scan(&s.TokenHash, &s.Email, &step, &s.InFlight, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Step = domain.ResetStep(step)
	return &s, nil
}
