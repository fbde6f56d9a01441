package reviews

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const (
	maxPhotoDimension = 800
	photoJPEGQuality  = 85
)

// normalizePhoto bounds the image to maxPhotoDimension on its longer side,
// preserving aspect ratio without upscaling, and re-encodes it as JPEG. It
// reports ok=false when the bytes are not a decodable image or re-encoding
// fails; the review write then proceeds without an attachment.
func normalizePhoto(raw []byte) ([]byte, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	decoded, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}

	bounds := decoded.Bounds()
	if bounds.Dx() > maxPhotoDimension || bounds.Dy() > maxPhotoDimension {
		decoded = imaging.Fit(decoded, maxPhotoDimension, maxPhotoDimension, imaging.Lanczos)
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, decoded, imaging.JPEG, imaging.JPEGQuality(photoJPEGQuality)); err != nil {
		return nil, false
	}

	return encoded.Bytes(), true
}
