package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind identifies which lifecycle context a token belongs to. The numeric
// values are embedded in the token payload and must stay stable.
type Kind uint8

const (
	// KindAccess is a short-lived bearer credential.
	KindAccess Kind = iota
	// KindRefresh is a long-lived credential used only to mint new pairs.
	KindRefresh
	// KindEmailVerify is a single-use email verification challenge.
	KindEmailVerify
	// KindPasswordReset is a single-use password reset challenge.
	KindPasswordReset

	kindCount
)

// ErrMalformedToken is returned when a token cannot be decoded at all.
var ErrMalformedToken = errors.New("malformed token")

// ErrInvalidSignature is returned when a token decodes but its signature
// does not verify under the secret for the expected kind.
var ErrInvalidSignature = errors.New("invalid token signature")

// ErrExpiredToken is returned when a well-formed, correctly signed token
// is past its expiry.
var ErrExpiredToken = errors.New("token expired")

const minSecretLength = 32

// Claims is the payload carried by every central-hub token.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      uint8  `json:"role"`
	Status    uint8  `json:"status"`
	Verify    uint8  `json:"verify"`
	TokenType uint8  `json:"token_type"`
	jwt.RegisteredClaims
}

// Config configures a [Codec]. Secrets must contain one independent
// secret per token kind.
type Config struct {
	Secrets map[Kind][]byte
	Now     func() time.Time
}

// Codec signs and verifies tokens with kind-specific HS256 secrets.
type Codec struct {
	secrets map[Kind][]byte
	now     func() time.Time
}

// NewCodec validates the secret set and returns a ready [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	secrets := make(map[Kind][]byte, int(kindCount))
	for kind := Kind(0); kind < kindCount; kind++ {
		secret, ok := cfg.Secrets[kind]
		if !ok || len(secret) == 0 {
			return nil, fmt.Errorf("missing secret for token kind %d", kind)
		}
		if len(secret) < minSecretLength {
			return nil, fmt.Errorf("secret for token kind %d is shorter than %d bytes", kind, minSecretLength)
		}
		secrets[kind] = append([]byte(nil), secret...)
	}

	// Sharing a secret across kinds would collapse the kind isolation
	// guarantee into a payload check.
	for a := Kind(0); a < kindCount; a++ {
		for b := a + 1; b < kindCount; b++ {
			if string(secrets[a]) == string(secrets[b]) {
				return nil, fmt.Errorf("token kinds %d and %d share a secret", a, b)
			}
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{secrets: secrets, now: now}, nil
}

// Sign finalizes claims and returns the signed token string. The token
// type, issued-at, and token ID are always set here, never taken from the
// caller. When the claims already carry an expiry it is encoded literally,
// which is how rotation hands the original expiry down to a successor
// token; otherwise the expiry is now+lifetime.
func (c *Codec) Sign(claims Claims, kind Kind, lifetime time.Duration) (string, *Claims, error) {
	if claims.UserID == "" {
		return "", nil, errors.New("user id required")
	}
	secret, ok := c.secrets[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown token kind %d", kind)
	}

	now := c.now()
	claims.TokenType = uint8(kind)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ID = uuid.NewString()
	if claims.ExpiresAt == nil {
		if lifetime <= 0 {
			return "", nil, errors.New("token lifetime must be > 0")
		}
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}

	return signed, &claims, nil
}

// Verify decodes tokenStr under the secret for the expected kind and
// returns its claims. All expiry checks use a single instant captured at
// entry. Verification failures map onto the sentinel taxonomy:
// [ErrMalformedToken], [ErrInvalidSignature], [ErrExpiredToken].
func (c *Codec) Verify(tokenStr string, kind Kind) (*Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("unknown token kind %d", kind)
	}

	now := c.now()
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	// A mismatched kind claim only survives signature verification when
	// two kinds were misconfigured with the same secret upstream.
	if claims.TokenType != uint8(kind) {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
