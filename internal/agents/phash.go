package agents

import (
	"bytes"
	"fmt"
	"image"
	"math/bits"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
)

// perceptualHash decodes an image and returns its 64-bit perceptual hash
// encoded as a fixed-width hex string, the form stored in report attrs.
func perceptualHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("computing perceptual hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

// hammingDistance compares two hex-encoded 64-bit hashes by bit count.
func hammingDistance(a, b string) (int, error) {
	av, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing hash %q: %w", a, err)
	}
	bv, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing hash %q: %w", b, err)
	}
	return bits.OnesCount64(av ^ bv), nil
}
