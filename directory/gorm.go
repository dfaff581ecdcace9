// Package directory provides the GORM-backed user directory used by the
// engine. SQLite (pure Go) and Postgres drivers are supported.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	centralhub "github.com/haitrieu1811/central-hub-server"
)

type userRow struct {
	ID                 string `gorm:"primaryKey;size:36"`
	Email              string `gorm:"uniqueIndex;size:255;not null"`
	PasswordDigest     string `gorm:"size:128;not null"`
	FullName           string `gorm:"size:255"`
	Role               uint8
	Status             uint8
	Verify             uint8
	EmailVerifyToken   string `gorm:"size:2048"`
	PasswordResetToken string `gorm:"size:2048"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (userRow) TableName() string { return "users" }

// Store implements [centralhub.Directory] on a GORM handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by driver ("sqlite" or "postgres")
// and dsn, runs migrations, and returns a ready [Store].
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported directory driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Driver duplicate-key errors must surface as gorm.ErrDuplicatedKey
		// for the ErrEmailTaken mapping in Create.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", centralhub.ErrDirectoryUnavailable, err)
	}

	return New(db)
}

// New migrates the schema on an existing GORM handle and returns a
// ready [Store].
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil gorm handle")
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("%w: %v", centralhub.ErrDirectoryUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new account. A unique-email violation maps to
// [centralhub.ErrEmailTaken].
func (s *Store) Create(ctx context.Context, user *centralhub.User) error {
	row := rowFromUser(user)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return centralhub.ErrEmailTaken
		}
		return fmt.Errorf("%w: %v", centralhub.ErrDirectoryUnavailable, err)
	}
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

// FindByID looks an account up by primary key.
func (s *Store) FindByID(ctx context.Context, id string) (*centralhub.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindByEmail looks an account up by email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*centralhub.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

// FindByCredentials matches an account by email and password digest in
// one query, so a wrong password and a missing account are
// indistinguishable to the caller.
func (s *Store) FindByCredentials(ctx context.Context, email, passwordDigest string) (*centralhub.User, error) {
	return s.findOne(ctx, "email = ? AND password_digest = ?", email, passwordDigest)
}

// SetEmailVerifyToken stores a pending email verification token on the
// user row, replacing any earlier one.
func (s *Store) SetEmailVerifyToken(ctx context.Context, id, token string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"email_verify_token": token,
	})
}

// MarkVerified flips the account to verified and clears the pending
// verification token.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"verify":             uint8(centralhub.VerifyStatusVerified),
		"email_verify_token": "",
	})
}

// SetPasswordResetToken stores a pending password reset token on the
// user row, replacing any earlier one.
func (s *Store) SetPasswordResetToken(ctx context.Context, id, token string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"password_reset_token": token,
	})
}

// UpdatePassword installs a new password digest and clears the pending
// reset token in the same statement.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordDigest string) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"password_digest":      passwordDigest,
		"password_reset_token": "",
	})
}

func (s *Store) findOne(ctx context.Context, query string, args ...interface{}) (*centralhub.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, centralhub.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", centralhub.ErrDirectoryUnavailable, err)
	}
	return userFromRow(&row), nil
}

func (s *Store) updateByID(ctx context.Context, id string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", centralhub.ErrDirectoryUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return centralhub.ErrUserNotFound
	}
	return nil
}

func rowFromUser(u *centralhub.User) *userRow {
	return &userRow{
		ID:                 u.ID,
		Email:              u.Email,
		PasswordDigest:     u.PasswordDigest,
		FullName:           u.FullName,
		Role:               uint8(u.Role),
		Status:             uint8(u.Status),
		Verify:             uint8(u.Verify),
		EmailVerifyToken:   u.EmailVerifyToken,
		PasswordResetToken: u.PasswordResetToken,
	}
}

func userFromRow(r *userRow) *centralhub.User {
	return &centralhub.User{
		ID:                 r.ID,
		Email:              r.Email,
		PasswordDigest:     r.PasswordDigest,
		FullName:           r.FullName,
		Role:               centralhub.Role(r.Role),
		Status:             centralhub.Status(r.Status),
		Verify:             centralhub.VerifyStatus(r.Verify),
		EmailVerifyToken:   r.EmailVerifyToken,
		PasswordResetToken: r.PasswordResetToken,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
