package auth

import "errors"

// ErrInvalidToken indicates a missing, unknown or revoked bearer token.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenHashSize is the length in bytes of a stored token hash.
const TokenHashSize = 32
