package shapes

import (
	"errors"
	"mime"
	"strings"
	"sync"
)

// GlobalRegistry is where shape packages register their decoders.
var GlobalRegistry = NewRegistry()

// Registry holds body-shape decoders in registration order.
type Registry struct {
	mu       sync.RWMutex
	decoders []Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a decoder. A decoder for an already registered shape replaces it.
func (r *Registry) Register(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.decoders {
		if existing.Shape() == d.Shape() {
			r.decoders[i] = d
			return
		}
	}
	r.decoders = append(r.decoders, d)
}

// ListRegistered returns the registered shapes.
func (r *Registry) ListRegistered() []Shape {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Shape, 0, len(r.decoders))
	for _, d := range r.decoders {
		out = append(out, d.Shape())
	}
	return out
}

// Detect returns the decoder for a Content-Type header value, or nil when
// the header cannot be parsed or no decoder accepts it.
func (r *Registry) Detect(contentType string) Decoder {
	mediaType := ""
	if strings.TrimSpace(contentType) != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil
		}
		mediaType = strings.ToLower(mt)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.decoders {
		if d.Accepts(mediaType) {
			return d
		}
	}
	return nil
}

// Extract detects the body shape and returns its record text.
// Ambiguous bodies come back as the Empty shape with no text and no error;
// only ErrMalformedWrapper is returned to the caller.
func (r *Registry) Extract(contentType string, body []byte) (Shape, string, error) {
	d := r.Detect(contentType)
	if d == nil {
		return Empty, "", nil
	}
	text, err := d.Extract(body)
	switch {
	case err == nil:
		return d.Shape(), text, nil
	case errors.Is(err, ErrMalformedWrapper):
		return d.Shape(), "", err
	default:
		return Empty, "", nil
	}
}
