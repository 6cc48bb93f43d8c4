// Package imageproc crops raster inputs around a point set before inference
// and maps the returned mask back onto the original image extent.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"aiaa/internal/common/fsutil"
	"aiaa/pkg/types"
)

var rasterExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsRaster reports whether path names an image format this package can crop.
func IsRaster(path string) bool {
	return rasterExts[strings.ToLower(filepath.Ext(path))]
}

// Crop records how an input was cut and resized so the result can be restored.
type Crop struct {
	// Source is the original image bounds.
	Source image.Rectangle
	// Box is the cropped region in source coordinates.
	Box image.Rectangle
	// Size is the crop size after resizing to the ROI.
	Size image.Point
}

// Open decodes an image file.
func Open(path string) (image.Image, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// Decode reads an image in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r)
}

// EncodePNG encodes img losslessly for upload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes img in the format implied by the path extension.
// Masks are label maps, so lossy formats are written at maximum quality.
func Save(img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	var format imaging.Format
	if ext != ".webp" {
		var err error
		if format, err = imaging.FormatFromFilename(path); err != nil {
			return err
		}
	}
	f, err := fsutil.CreateFile(path)
	if err != nil {
		return err
	}
	if ext == ".webp" {
		err = webp.Encode(f, img, &webp.Options{Lossless: true})
	} else {
		err = imaging.Encode(f, img, format, imaging.JPEGQuality(100))
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PreProcess crops img to the x/y bounding box of points grown by pad pixels,
// resizes the crop to roi x/y and remaps the points into the resized crop.
// The z component of each point is left unchanged.
func PreProcess(img image.Image, points types.PointSet, pad float64, roi types.ROI) (image.Image, types.PointSet, Crop, error) {
	if points.Empty() {
		return nil, types.PointSet{}, Crop{}, fmt.Errorf("empty point set")
	}
	src := img.Bounds()
	lo, hi := points.Bounds()
	p := int(math.Ceil(pad))
	box := image.Rect(lo[0]-p, lo[1]-p, hi[0]+p+1, hi[1]+p+1).Intersect(src)
	if box.Empty() {
		return nil, types.PointSet{}, Crop{}, fmt.Errorf("points %s fall outside image bounds %v", points.JSON(), src)
	}
	w, h := roi[0], roi[1]
	if w <= 0 {
		w = box.Dx()
	}
	if h <= 0 {
		h = box.Dy()
	}
	cropped := imaging.Resize(imaging.Crop(img, box), w, h, imaging.Lanczos)

	out := types.PointSet{Points: make([]types.Point, 0, points.Len())}
	for _, pt := range points.Points {
		x := (pt[0] - box.Min.X) * w / box.Dx()
		y := (pt[1] - box.Min.Y) * h / box.Dy()
		out.Points = append(out.Points, types.Point{clampInt(x, 0, w-1), clampInt(y, 0, h-1), pt[2]})
	}
	return cropped, out, Crop{Source: src, Box: box, Size: image.Pt(w, h)}, nil
}

// PostProcess scales mask back to the crop box with nearest-neighbour sampling
// and pastes it into a black image of the original size.
func PostProcess(mask image.Image, c Crop) image.Image {
	back := image.NewNRGBA(image.Rect(0, 0, c.Box.Dx(), c.Box.Dy()))
	xdraw.NearestNeighbor.Scale(back, back.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	canvas := imaging.New(c.Source.Dx(), c.Source.Dy(), color.Black)
	return imaging.Paste(canvas, back, c.Box.Min.Sub(c.Source.Min))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
