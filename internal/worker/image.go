package worker

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeDimensions returns the pixel size of an encoded image without
// decoding the full bitmap.
func DecodeDimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Rotate re-encodes an image rotated clockwise by deg, which must be a
// multiple of 90. deg 0 returns the input untouched.
func Rotate(data []byte, deg int) ([]byte, error) {
	deg = ((deg % 360) + 360) % 360
	if deg == 0 {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("worker: rotate decode: %w", err)
	}

	// imaging rotates counter-clockwise; invert for clockwise degrees.
	switch deg {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	default:
		return nil, fmt.Errorf("worker: rotation %d not a multiple of 90", deg)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("worker: rotate encode: %w", err)
	}
	return buf.Bytes(), nil
}
