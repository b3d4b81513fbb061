package exhibitions

import (
	"bytes"
	"fmt"

	"github.com/expo-directory/backend/pkg/apperr"
)

// MaxImageBytes is the default upload limit for exhibition images.
const MaxImageBytes = 5 * 1024 * 1024

var imageSignatures = []struct {
	magic       []byte
	contentType string
}{
	{[]byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
}

// DetectImageType infers the content type from the leading signature bytes. Stored
// metadata is never consulted.
func DetectImageType(data []byte) (string, bool) {
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.contentType, true
		}
	}
	return "", false
}

// CheckImage enforces the upload policy: non-empty, at most maxBytes, PNG/JPEG/GIF.
func CheckImage(data []byte, maxBytes int) error {
	const op = "exhibitions.CheckImage"
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	switch {
	case len(data) == 0:
		return apperr.Validation(op, map[string]string{"image": "is required"})
	case len(data) > maxBytes:
		return apperr.Validation(op, map[string]string{"image": fmt.Sprintf("must be at most %d bytes", maxBytes)})
	}
	if _, ok := DetectImageType(data); !ok {
		return apperr.Validation(op, map[string]string{"image": "must be a PNG, JPEG or GIF image"})
	}
	return nil
}
