package audio

import (
	"encoding/base64"
	"fmt"
)

// DecodeBase64 decodes a standard, padded base64 string into raw bytes.
//
// Decoding is strict: characters outside the alphabet (spaces included), a
// truncated final quantum or non-zero padding bits fail with ErrDecode.
// Line breaks are skipped, as encoding/base64 always does.
func DecodeBase64(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return raw, nil
}
