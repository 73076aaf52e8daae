package mediainfo

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo holds the actual pixel dimensions of an image file, used by the
// indexer as a fallback when the embedded generation metadata carries no size.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // "png" / "jpeg" / "webp" / ...
}

// ParseImageInfo reads image dimensions from the header without decoding
// pixel data. Supported formats: png, jpeg, gif, bmp, tiff, webp.
func ParseImageInfo(data []byte) (*ImageInfo, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &ImageInfo{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}
