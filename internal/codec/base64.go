// Package codec turns binary media into text that can be embedded in JSON.
package codec

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Base64Reader streams r through the encoder so the raw payload is never
// buffered alongside its encoded form.
func Base64Reader(r io.Reader) (string, error) {
	var out strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &out)
	if _, err := io.Copy(enc, r); err != nil {
		return "", fmt.Errorf("codec: read payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("codec: flush encoder: %w", err)
	}
	return out.String(), nil
}
