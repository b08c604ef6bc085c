package shapes

// Decoder pulls record text out of one body shape.
// Each shape package implements and registers a Decoder in init().
type Decoder interface {
	Shape() Shape
	// Accepts reports whether the decoder handles the given media type
	// (lower-case, parameters stripped; empty when the client sent none).
	Accepts(mediaType string) bool
	// Extract returns the record text. It returns ErrAmbiguous or
	// ErrMalformedWrapper (possibly wrapped) when it cannot.
	Extract(body []byte) (string, error)
}
