// Package token builds the session token handed back after validation.
// The token is a reversible encoding of the submitted fields, not a secret.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformedToken is returned by Decode for input that is not valid base64.
var ErrMalformedToken = errors.New("malformed session token")

// Literal returns the plain form of a token before encoding.
func Literal(passthrough, identifier, secret string) string {
	return "_token=" + passthrough + "&growId=" + identifier + "&password=" + secret
}

// Encode returns the session token for the given fields.
func Encode(passthrough, identifier, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(Literal(passthrough, identifier, secret)))
}

// Decode reverses Encode, returning the literal the token was built from.
func Decode(tok string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return string(raw), nil
}
