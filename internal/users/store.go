package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/jmoiron/sqlx"
)

// Store defines database operations for accounts.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByNickName(ctx context.Context, nickName string) (User, error)
	Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (User, error)
	UpdateRole(ctx context.Context, id int64, role ability.Role) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetFailedAttempts(ctx context.Context, id int64, n int) error
	Delete(ctx context.Context, id int64) error

	SaveCode(ctx context.Context, code VerificationCode) error
	GetCode(ctx context.Context, userID int64) (VerificationCode, error)
	DeleteCode(ctx context.Context, userID int64) error
}

const userColumns = `id, first_name, middle_name, last_name, nick_name, email, phone, password_hash,
	role, status, failed_login_attempts, created_at, updated_at`

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new Postgres-backed account store.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Create(ctx context.Context, u User) (User, error) {
	var out User
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (first_name, middle_name, last_name, nick_name, email, phone, password_hash, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+userColumns,
		u.FirstName, u.MiddleName, u.LastName, u.NickName, u.Email, u.Phone, u.PasswordHash, u.Role, u.Status,
	).StructScan(&out)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return out, nil
}

func (s *sqlStore) List(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

func (s *sqlStore) GetByID(ctx context.Context, id int64) (User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *sqlStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *sqlStore) GetByNickName(ctx context.Context, nickName string) (User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE nick_name = $1`, nickName)
}

func (s *sqlStore) getOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *sqlStore) Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	return s.updateOne(ctx,
		`UPDATE users SET
			first_name = COALESCE($2, first_name),
			middle_name = COALESCE($3, middle_name),
			last_name = COALESCE($4, last_name),
			nick_name = COALESCE($5, nick_name),
			email = COALESCE($6, email),
			phone = COALESCE($7, phone),
			updated_at = NOW()
		 WHERE id = $1 RETURNING `+userColumns,
		id, req.FirstName, req.MiddleName, req.LastName, req.NickName, req.Email, req.Phone)
}

func (s *sqlStore) UpdateStatus(ctx context.Context, id int64, status Status) (User, error) {
	return s.updateOne(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, status)
}

func (s *sqlStore) UpdateRole(ctx context.Context, id int64, role ability.Role) (User, error) {
	return s.updateOne(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, role)
}

func (s *sqlStore) updateOne(ctx context.Context, query string, args ...any) (User, error) {
	var u User
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&u); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return User{}, ErrNotFound
		case database.IsUniqueViolation(err):
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *sqlStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return s.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (s *sqlStore) SetFailedAttempts(ctx context.Context, id int64, n int) error {
	return s.exec(ctx, `UPDATE users SET failed_login_attempts = $2 WHERE id = $1`, id, n)
}

func (s *sqlStore) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) SaveCode(ctx context.Context, code VerificationCode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_codes (user_id, code, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`,
		code.UserID, code.Code, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}
	return nil
}

func (s *sqlStore) GetCode(ctx context.Context, userID int64) (VerificationCode, error) {
	var code VerificationCode
	err := s.db.GetContext(ctx, &code,
		`SELECT user_id, code, expires_at FROM verification_codes WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VerificationCode{}, ErrCodeNotFound
		}
		return VerificationCode{}, fmt.Errorf("failed to get verification code: %w", err)
	}
	return code, nil
}

func (s *sqlStore) DeleteCode(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}

// SnapshotLoader exposes the fields of an account that user rules look at.
func SnapshotLoader(store Store) guard.SnapshotLoader {
	return guard.SnapshotLoaderFunc(func(ctx context.Context, raw string) (ability.Snapshot, error) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, guard.ErrEntityNotFound
		}
		u, err := store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, guard.ErrEntityNotFound
			}
			return nil, err
		}
		return ability.Snapshot{"id": u.ID, "status": string(u.Status), "role": string(u.Role)}, nil
	})
}

