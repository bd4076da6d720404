package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/auth"
	"github.com/dhawalhost/storefront/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the account operations.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (User, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
	ResendVerificationCode(ctx context.Context, email string) error
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByNickName(ctx context.Context, nickName string) (User, error)
	Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (User, error)
	UpdateRole(ctx context.Context, id int64, role ability.Role) (User, error)
	ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error
	Delete(ctx context.Context, id int64) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

// Options tune the account lifecycle.
type Options struct {
	CodeTTL         time.Duration
	MaxFailedLogins int
}

type service struct {
	store    Store
	tokens   TokenIssuer
	notifier notify.Notifier
	opts     Options
	now      func() time.Time
}

// NewService creates a new account service.
func NewService(store Store, tokens TokenIssuer, notifier notify.Notifier, opts Options) Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 15 * time.Minute
	}
	if opts.MaxFailedLogins <= 0 {
		opts.MaxFailedLogins = 3
	}
	return &service{store: store, tokens: tokens, notifier: notifier, opts: opts, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (User, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.store.Create(ctx, User{
		FirstName:    strings.TrimSpace(req.FirstName),
		MiddleName:   strings.TrimSpace(req.MiddleName),
		LastName:     strings.TrimSpace(req.LastName),
		NickName:     strings.TrimSpace(req.NickName),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		Role:         ability.RoleUser,
		Status:       StatusNotVerified,
	})
	if err != nil {
		return User{}, err
	}

	if err := s.sendCode(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *service) sendCode(ctx context.Context, u User) error {
	code, err := newVerificationCode()
	if err != nil {
		return err
	}
	if err := s.store.SaveCode(ctx, VerificationCode{
		UserID:    u.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.opts.CodeTTL).UTC(),
	}); err != nil {
		return err
	}
	if err := s.notifier.SendVerificationCode(ctx, u.Email, u.NickName, code); err != nil {
		return fmt.Errorf("failed to deliver verification code: %w", err)
	}
	return nil
}

// newVerificationCode returns a uniformly random six digit code.
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func (s *service) checkCode(ctx context.Context, userID int64, code string) error {
	stored, err := s.store.GetCode(ctx, userID)
	if err != nil {
		return err
	}
	if stored.Code != code {
		return ErrInvalidCode
	}
	if s.now().After(stored.ExpiresAt) {
		return ErrCodeExpired
	}
	return nil
}

// codeEligible rejects accounts an administrator has closed. Only
// not_verified and active accounts may receive or redeem codes.
func codeEligible(u User) error {
	switch u.Status {
	case StatusNotVerified, StatusActive:
		return nil
	case StatusBanned:
		return ErrBanned
	default:
		return ErrInactive
	}
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if err := codeEligible(u); err != nil {
		return err
	}
	if err := s.checkCode(ctx, u.ID, req.Code); err != nil {
		return err
	}
	if u.Status == StatusNotVerified {
		if _, err := s.store.UpdateStatus(ctx, u.ID, StatusActive); err != nil {
			return err
		}
	}
	if err := s.store.SetFailedAttempts(ctx, u.ID, 0); err != nil {
		return err
	}
	return s.store.DeleteCode(ctx, u.ID)
}

func (s *service) ResendVerificationCode(ctx context.Context, email string) error {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if err := codeEligible(u); err != nil {
		return err
	}
	return s.sendCode(ctx, u)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return LoginResponse{}, err
	}

	switch u.Status {
	case StatusActive:
	case StatusNotVerified:
		return LoginResponse{}, ErrNotVerified
	case StatusBanned:
		return LoginResponse{}, ErrBanned
	default:
		return LoginResponse{}, ErrInactive
	}

	if u.FailedLoginAttempts >= s.opts.MaxFailedLogins {
		if _, err := s.store.UpdateStatus(ctx, u.ID, StatusNotVerified); err != nil {
			return LoginResponse{}, err
		}
		return LoginResponse{}, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if err := s.store.SetFailedAttempts(ctx, u.ID, u.FailedLoginAttempts+1); err != nil {
			return LoginResponse{}, err
		}
		return LoginResponse{}, ErrInvalidCredentials
	}

	if u.FailedLoginAttempts > 0 {
		if err := s.store.SetFailedAttempts(ctx, u.ID, 0); err != nil {
			return LoginResponse{}, err
		}
	}

	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     u.Role,
		NickName: u.NickName,
	})
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		Message:   "Login successful",
		UserID:    strconv.FormatInt(u.ID, 10),
		Email:     u.Email,
		Role:      u.Role,
		NickName:  u.NickName,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.store.GetByEmail(ctx, normalizeEmail(email))
}

func (s *service) GetByNickName(ctx context.Context, nickName string) (User, error) {
	return s.store.GetByNickName(ctx, strings.TrimSpace(nickName))
}

func (s *service) Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if req == (UpdateUserRequest{}) {
		return User{}, validationError("no fields to update")
	}
	return s.store.Update(ctx, id, req)
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status Status) (User, error) {
	return s.store.UpdateStatus(ctx, id, status)
}

func (s *service) UpdateRole(ctx context.Context, id int64, role ability.Role) (User, error) {
	if !role.Valid() {
		return User{}, validationError("role must be one of the following: user, editor, admin")
	}
	return s.store.UpdateRole(ctx, id, role)
}

func (s *service) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error {
	if err := s.checkCode(ctx, id, req.Code); err != nil {
		return err
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Status != StatusActive {
		return ErrInactive
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	return s.store.DeleteCode(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
