// Package jwt implements the token codec and issuer for the central-hub
// token lifecycle. Every token kind (access, refresh, email verification,
// password reset) is signed with its own HS256 secret, so a token minted
// for one context can never verify in another.
package jwt
