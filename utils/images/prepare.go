package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Prepared is an embeddable picture: always PNG, with known pixel dimensions
// for extent calculation.
type Prepared struct {
	Data   []byte
	Width  int
	Height int
}

// Prepare normalizes an arbitrary picture payload for embedding. SVG is
// rasterized locally, every raster format is decoded and re-encoded to PNG so
// both backends deal with a single format. When maxWidth is positive wider
// pictures are downscaled to it keeping aspect ratio.
func Prepare(data []byte, maxWidth int) (*Prepared, error) {
	var (
		img image.Image
		err error
	)
	if isSVG(data) {
		img, err = RasterizeSVGToImage(data, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize svg: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unable to decode image: %w", err)
		}
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode image: %w", err)
	}
	return &Prepared{Data: buf.Bytes(), Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, nil
}

// isSVG recognizes vector payloads. SVG is text and has no magic bytes, so
// filetype sniffing is tried first and the document prolog second.
func isSVG(data []byte) bool {
	if t, err := filetype.Match(data); err == nil && t != filetype.Unknown {
		return false
	}
	head := bytes.TrimSpace(data)
	if bytes.HasPrefix(head, []byte("<?xml")) {
		return bytes.Contains(head, []byte("<svg"))
	}
	return bytes.HasPrefix(head, []byte("<svg"))
}
