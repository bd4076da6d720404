package users

import (
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
)

// Status is the lifecycle state of an account.
type Status string

// Account statuses.
const (
	StatusNotVerified Status = "not_verified"
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusBanned      Status = "banned"
)

// User is an account as stored. Credentials never leave the service.
type User struct {
	ID                  int64        `db:"id" json:"id"`
	FirstName           string       `db:"first_name" json:"first_name"`
	MiddleName          string       `db:"middle_name" json:"middle_name,omitempty"`
	LastName            string       `db:"last_name" json:"last_name"`
	NickName            string       `db:"nick_name" json:"nick_name"`
	Email               string       `db:"email" json:"email"`
	Phone               string       `db:"phone" json:"phone,omitempty"`
	PasswordHash        string       `db:"password_hash" json:"-"`
	Role                ability.Role `db:"role" json:"role"`
	Status              Status       `db:"status" json:"status"`
	FailedLoginAttempts int          `db:"failed_login_attempts" json:"-"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// VerificationCode is the pending code of a user.
type VerificationCode struct {
	UserID    int64     `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
}

// SignupRequest registers a new account.
type SignupRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name" validate:"required"`
	NickName   string `json:"nick_name" validate:"required,min=3,max=32"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"omitempty,min=3"`
	Password   string `json:"password" validate:"required,min=6"`
}

// VerifyEmailRequest confirms an account with the code sent on signup.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendCodeRequest asks for a fresh verification code.
type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message   string       `json:"message"`
	UserID    string       `json:"userId"`
	Email     string       `json:"email"`
	Role      ability.Role `json:"role"`
	NickName  string       `json:"nick_name"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// UpdateUserRequest changes profile fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1"`
	NickName   *string `json:"nick_name" validate:"omitempty,min=3,max=32"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,min=3"`
}

// UpdateStatusRequest sets the account status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=not_verified active inactive banned"`
}

// UpdateRoleRequest sets the account role.
type UpdateRoleRequest struct {
	Role ability.Role `json:"role" validate:"required,oneof=admin editor user"`
}

// ChangePasswordRequest replaces the password using a verification code.
type ChangePasswordRequest struct {
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
