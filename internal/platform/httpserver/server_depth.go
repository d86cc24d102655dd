package httpserver

import (
	"bytes"
	"encoding/json"
	"io"

	orderbrokererrors "orderbridge/contexts/order-broker/domain/errors"
)

// checkJSONDepth walks the token stream of a JSON document and rejects
// anything nested deeper than maxDepth, guarding against stack exhaustion
// from a deeply nested body before it ever reaches json.Unmarshal.
func checkJSONDepth(body []byte, maxDepth int) error {
	if maxDepth <= 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// malformed JSON is reported by the caller's subsequent json.Unmarshal, not here.
			return nil
		}
		switch tok.(type) {
		case json.Delim:
			d := tok.(json.Delim)
			switch d {
			case '{', '[':
				depth++
				if depth > maxDepth {
					return orderbrokererrors.ErrDepthExceeded
				}
			case '}', ']':
				depth--
			}
		}
	}
}
