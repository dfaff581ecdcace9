package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subject snapshot baked into every issued token.
type Identity struct {
	UserID string
	Role   uint8
	Status uint8
	Verify uint8
}

// TTLConfig holds the per-kind token lifetimes.
type TTLConfig struct {
	Access        time.Duration
	Refresh       time.Duration
	EmailVerify   time.Duration
	PasswordReset time.Duration
}

// Pair is the result of a paired issuance. The refresh timestamps are
// returned so callers can build a store record without re-parsing the
// token they just minted.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshIssuedAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer mints tokens through a [Codec] using configured per-kind TTLs.
type Issuer struct {
	codec *Codec
	ttl   TTLConfig
}

// NewIssuer validates the TTL set and returns a ready [Issuer].
func NewIssuer(codec *Codec, ttl TTLConfig) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("codec required")
	}
	if ttl.Access <= 0 || ttl.Refresh <= 0 || ttl.EmailVerify <= 0 || ttl.PasswordReset <= 0 {
		return nil, errors.New("all token TTLs must be > 0")
	}
	return &Issuer{codec: codec, ttl: ttl}, nil
}

// IssueAccess mints a short-lived access token.
func (i *Issuer) IssueAccess(id Identity) (string, error) {
	token, _, err := i.codec.Sign(claimsFor(id), KindAccess, i.ttl.Access)
	return token, err
}

// IssueRefresh mints a refresh token. A non-zero expiresAt pins the
// token's expiry instead of starting a fresh TTL window; rotation uses
// this to keep the overall session lifetime bounded.
func (i *Issuer) IssueRefresh(id Identity, expiresAt time.Time) (string, *Claims, error) {
	claims := claimsFor(id)
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	return i.codec.Sign(claims, KindRefresh, i.ttl.Refresh)
}

// IssuePair mints an access/refresh pair for the identity. The two signs
// have no data dependency and use disjoint secrets, so they run
// concurrently.
func (i *Issuer) IssuePair(id Identity, inheritedExpiry time.Time) (*Pair, error) {
	type signResult struct {
		token string
		err   error
	}

	accessCh := make(chan signResult, 1)
	go func() {
		token, err := i.IssueAccess(id)
		accessCh <- signResult{token: token, err: err}
	}()

	refreshToken, refreshClaims, refreshErr := i.IssueRefresh(id, inheritedExpiry)
	access := <-accessCh

	if refreshErr != nil {
		return nil, refreshErr
	}
	if access.err != nil {
		return nil, access.err
	}

	return &Pair{
		AccessToken:      access.token,
		RefreshToken:     refreshToken,
		RefreshIssuedAt:  refreshClaims.IssuedAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// IssueEmailVerify mints an email verification challenge token.
func (i *Issuer) IssueEmailVerify(id Identity) (string, error) {
	token, _, err := i.codec.Sign(claimsFor(id), KindEmailVerify, i.ttl.EmailVerify)
	return token, err
}

// IssuePasswordReset mints a password reset challenge token.
func (i *Issuer) IssuePasswordReset(id Identity) (string, error) {
	token, _, err := i.codec.Sign(claimsFor(id), KindPasswordReset, i.ttl.PasswordReset)
	return token, err
}

func claimsFor(id Identity) Claims {
	return Claims{
		UserID: id.UserID,
		Role:   id.Role,
		Status: id.Status,
		Verify: id.Verify,
	}
}
