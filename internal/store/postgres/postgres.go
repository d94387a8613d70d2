// Package postgres stores users in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/store/postgres/migrations"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		cfg.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Store implements core.UserRepository.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.UserRepository = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, full_name, email, password_hash, phone, role, address,
	is_active, department_id, manager_id, notes, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var (
		u    core.User
		id   pgtype.UUID
		role string
	)
	err := row.Scan(&id, &u.FullName, &u.Email, &u.PasswordHash, &u.Phone, &role,
		&u.Address, &u.IsActive, &u.DepartmentID, &u.ManagerID, &u.Notes,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = uuid.UUID(id.Bytes).String()
	u.Role = core.Role(role)
	return &u, nil
}

// translate maps driver errors onto the core sentinels.
func translate(err error, email string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", core.ErrDuplicateEmail, email)
	}
	return err
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, translate(err, email)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, core.ErrUserNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
	if err != nil {
		return nil, translate(err, "")
	}
	return u, nil
}

// Insert assigns a new id when u has none and fills the timestamps from the database.
func (s *Store) Insert(ctx context.Context, u *core.User) error {
	id := uuid.New()
	if u.ID != "" {
		parsed, err := uuid.Parse(u.ID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", u.ID, err)
		}
		id = parsed
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, phone, role, address,
			is_active, department_id, manager_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		id, u.FullName, u.Email, u.PasswordHash, u.Phone, string(u.Role), u.Address,
		u.IsActive, u.DepartmentID, u.ManagerID, u.Notes,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate(err, u.Email)
	}
	u.ID = id.String()
	return nil
}

// ReplaceByEmail overwrites every mutable field of the user holding email.
func (s *Store) ReplaceByEmail(ctx context.Context, email string, u *core.User) error {
	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET full_name = $2, email = $3, password_hash = $4, phone = $5,
			role = $6, address = $7, is_active = $8, department_id = $9,
			manager_id = $10, notes = $11, updated_at = NOW()
		WHERE email = $1
		RETURNING id, created_at, updated_at`,
		email, u.FullName, u.Email, u.PasswordHash, u.Phone, string(u.Role), u.Address,
		u.IsActive, u.DepartmentID, u.ManagerID, u.Notes,
	).Scan(&id, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate(err, u.Email)
	}
	u.ID = uuid.UUID(id.Bytes).String()
	return nil
}

func (s *Store) Update(ctx context.Context, u *core.User) error {
	uid, err := uuid.Parse(u.ID)
	if err != nil {
		return core.ErrUserNotFound
	}
	err = s.pool.QueryRow(ctx, `
		UPDATE users SET full_name = $2, email = $3, password_hash = $4, phone = $5,
			role = $6, address = $7, is_active = $8, department_id = $9,
			manager_id = $10, notes = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		uid, u.FullName, u.Email, u.PasswordHash, u.Phone, string(u.Role), u.Address,
		u.IsActive, u.DepartmentID, u.ManagerID, u.Notes,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate(err, u.Email)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// Find returns matching users sorted by full name, then email.
func (s *Store) Find(ctx context.Context, filter core.UserFilter) ([]core.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		where = append(where, "role = $"+strconv.Itoa(len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY full_name ASC, email ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) CountByRole(ctx context.Context) (map[core.Role]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Role]int64)
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		counts[core.Role(role)] = n
	}
	return counts, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
