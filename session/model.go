package session

// Record is the persisted state of one refresh token. The token string
// itself is the lookup key and is not duplicated in the value; IssuedAt
// and ExpiresAt are unix seconds mirroring the token's own claims.
type Record struct {
	UserID    string
	IssuedAt  int64
	ExpiresAt int64
}
