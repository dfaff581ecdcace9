package centralhub

import (
	"context"
	"time"
)

// Role is the account role carried in token payloads. The numeric values
// are part of the wire format and must stay stable.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleModerator
	RoleWarehouseStaff
	RoleCustomer
)

// Status is the account activation state.
type Status uint8

const (
	StatusActive Status = iota
	StatusInactive
)

// VerifyStatus is the email verification state.
type VerifyStatus uint8

const (
	VerifyStatusVerified VerifyStatus = iota
	VerifyStatusUnverified
)

// User is a directory account. PasswordDigest and the two pending
// challenge tokens never leave the engine; results returned to callers
// have them cleared.
type User struct {
	ID                 string
	Email              string
	PasswordDigest     string
	FullName           string
	Role               Role
	Status             Status
	Verify             VerifyStatus
	EmailVerifyToken   string
	PasswordResetToken string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TokenPair is the access/refresh pair handed to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is the outcome of validating an access token.
type AuthResult struct {
	UserID    string
	Role      Role
	Status    Status
	Verify    VerifyStatus
	TokenID   string
	ExpiresAt time.Time
}

// Directory is the user persistence contract the [Engine] depends on.
// Implementations return [ErrUserNotFound] for missing accounts,
// [ErrEmailTaken] for unique-email violations, and wrap transport
// failures with [ErrDirectoryUnavailable].
type Directory interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByCredentials matches an account by email and password digest
	// in one lookup; a wrong password is indistinguishable from a
	// missing account.
	FindByCredentials(ctx context.Context, email, passwordDigest string) (*User, error)
	SetEmailVerifyToken(ctx context.Context, id, token string) error
	// MarkVerified flips the account to verified and clears the pending
	// email verification token.
	MarkVerified(ctx context.Context, id string) error
	SetPasswordResetToken(ctx context.Context, id, token string) error
	// UpdatePassword swaps the password digest and clears the pending
	// password reset token.
	UpdatePassword(ctx context.Context, id, passwordDigest string) error
}
