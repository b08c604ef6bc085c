package rawtext

import (
	"strings"

	"github.com/growlogin/growlogin/internal/infrastructure/shapes"
)

func init() {
	shapes.GlobalRegistry.Register(&Decoder{})
}

// Decoder handles bodies that are the record text itself. Game clients post
// these as form-encoded or plain text, often with no content type at all.
type Decoder struct{}

func (d *Decoder) Shape() shapes.Shape {
	return shapes.RawText
}

func (d *Decoder) Accepts(mediaType string) bool {
	return mediaType == "" ||
		mediaType == "application/x-www-form-urlencoded" ||
		strings.HasPrefix(mediaType, "text/")
}

func (d *Decoder) Extract(body []byte) (string, error) {
	return string(body), nil
}
