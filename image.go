package facs

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edvanssen/facs/utils"
	"golang.org/x/image/bmp"
)

// Overlay colors used when rendering annotated frames.
var (
	landmarkColor = color.NRGBA{R: 0x2e, G: 0xf7, B: 0x32, A: 0xff}
	faceBoxColor  = color.NRGBA{R: 0xf7, G: 0x49, B: 0x2e, A: 0xff}
)

// DecodeFrame decodes a single video frame from an image file.
func DecodeFrame(src string) (image.Image, error) {
	file, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("could not open the frame file: %v", err)
	}
	defer file.Close()

	ctype, err := utils.DetectContentType(file.Name())
	if err != nil {
		return nil, err
	}

	if !strings.Contains(ctype, "image") {
		return nil, fmt.Errorf("the frame should be an image file")
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("could not decode the frame file: %v", err)
	}

	return img, nil
}

// EncodeFrame encodes an annotated frame to a destination of type
// io.Writer, choosing the format from the file extension when the
// destination is a file. Any other writer receives JPEG.
func EncodeFrame(w io.Writer, img image.Image) error {
	switch w := w.(type) {
	case *os.File:
		ext := filepath.Ext(w.Name())
		switch ext {
		case "", ".jpg", ".jpeg":
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
		case ".png":
			return png.Encode(w, img)
		case ".bmp":
			return bmp.Encode(w, img)
		default:
			return errors.New("unsupported image format")
		}
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	}
}

// DrawLandmarks renders the tracked points and the face rectangle over
// a copy of the frame. The input frame is left untouched.
func DrawLandmarks(img image.Image, lm *LandmarkSet, rect image.Rectangle) *image.NRGBA {
	dst := cloneToNRGBA(img)
	if !rect.Empty() {
		drawRectOutline(dst, rect, faceBoxColor)
	}
	if lm != nil {
		for _, p := range lm {
			drawDot(dst, int(p.X+0.5), int(p.Y+0.5), landmarkColor)
		}
	}
	return dst
}

// drawDot paints a 3x3 marker centered on (x, y), clipped to the image.
func drawDot(dst *image.NRGBA, x, y int, c color.NRGBA) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pt := image.Pt(x+dx, y+dy)
			if pt.In(dst.Bounds()) {
				dst.SetNRGBA(pt.X, pt.Y, c)
			}
		}
	}
}

// drawRectOutline paints a one pixel rectangle outline, clipped to the
// image.
func drawRectOutline(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.SetNRGBA(x, r.Min.Y, c)
		dst.SetNRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.SetNRGBA(r.Min.X, y, c)
		dst.SetNRGBA(r.Max.X-1, y, c)
	}
}

// cloneToNRGBA copies any image type into a zero based *image.NRGBA.
func cloneToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := dstW * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}
