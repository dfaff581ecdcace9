// Package session persists refresh tokens in Redis. Store membership is
// the revocation authority for refresh tokens: a token that verifies
// cryptographically but is absent from the store is dead. Rotation is an
// atomic compare-and-delete-then-insert so concurrent refreshes of the
// same token produce exactly one winner.
package session
