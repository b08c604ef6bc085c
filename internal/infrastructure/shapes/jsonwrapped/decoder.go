package jsonwrapped

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/growlogin/growlogin/internal/infrastructure/shapes"
)

// wrapperField is the member preferred when an object has several.
const wrapperField = "data"

func init() {
	shapes.GlobalRegistry.Register(&Decoder{})
}

// Decoder handles JSON bodies carrying the record text either as a bare
// JSON string or as the string member of a wrapper object.
type Decoder struct{}

func (d *Decoder) Shape() shapes.Shape {
	return shapes.JSONWrapped
}

func (d *Decoder) Accepts(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (d *Decoder) Extract(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "", fmt.Errorf("%w: %v", shapes.ErrMalformedWrapper, err)
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]any:
		return unwrap(t)
	default:
		return "", fmt.Errorf("%w: top-level %T", shapes.ErrAmbiguous, v)
	}
}

func unwrap(obj map[string]any) (string, error) {
	if s, ok := obj[wrapperField].(string); ok {
		return s, nil
	}
	if len(obj) == 1 {
		for _, v := range obj {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no single string member among %d", shapes.ErrAmbiguous, len(obj))
}
