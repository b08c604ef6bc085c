package shapes

import "errors"

// Shape names how a login body carries its record text.
type Shape string

const (
	// RawText bodies are the record text itself.
	RawText Shape = "raw"
	// JSONWrapped bodies carry the record text inside a JSON value.
	JSONWrapped Shape = "json"
	// Empty is used when no decoder claims the body, or the claim is ambiguous.
	Empty Shape = "empty"
)

var (
	// ErrMalformedWrapper means the outer structure of the body could not be decoded at all.
	ErrMalformedWrapper = errors.New("malformed body wrapper")
	// ErrAmbiguous means the body decoded but does not say where the record text is.
	ErrAmbiguous = errors.New("ambiguous body shape")
)
