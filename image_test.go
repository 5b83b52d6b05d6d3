package facs

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"os"
	"path/filepath"
	"testing"
)

func TestImage_CloneToNRGBA(t *testing.T) {
	rect := image.Rect(-2, -2, 14, 14)
	colors := palette.Plan9

	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeTestNRGBA(rect, colors),
		},
		{
			name: "RGBA",
			img:  makeTestRGBA(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeTestYCbCr(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-422",
			img:  makeTestYCbCr(rect, colors, image.YCbCrSubsampleRatio422),
		},
		{
			name: "YCbCr-420",
			img:  makeTestYCbCr(rect, colors, image.YCbCrSubsampleRatio420),
		},
		{
			name: "YCbCr-440",
			img:  makeTestYCbCr(rect, colors, image.YCbCrSubsampleRatio440),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := cloneToNRGBA(tc.img)

			wantBounds := rect.Sub(rect.Min)
			if dst.Bounds() != wantBounds {
				t.Fatalf("clone bounds: got %v want %v", dst.Bounds(), wantBounds)
			}

			src := tc.img.Bounds()
			for y := src.Min.Y; y < src.Max.Y; y++ {
				for x := src.Min.X; x < src.Max.X; x++ {
					want := color.NRGBAModel.Convert(tc.img.At(x, y)).(color.NRGBA)
					got := dst.NRGBAAt(x-src.Min.X, y-src.Min.Y)
					if got != want {
						t.Fatalf("pixel (%d,%d): got %v want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestImage_DrawLandmarksLeavesSourceIntact(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 640, 480))
	bg := color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = bg.R
		src.Pix[i+1] = bg.G
		src.Pix[i+2] = bg.B
		src.Pix[i+3] = bg.A
	}
	snapshot := make([]uint8, len(src.Pix))
	copy(snapshot, src.Pix)

	lm := mustLandmarks(t, neutralPoints())
	rect := image.Rect(100, 80, 540, 400)
	dst := DrawLandmarks(src, lm, rect)

	if !bytes.Equal(src.Pix, snapshot) {
		t.Errorf("the source frame should stay untouched")
	}
	if dst.NRGBAAt(100, 80) != faceBoxColor {
		t.Errorf("the face rectangle corner should carry the box color, got %v", dst.NRGBAAt(100, 80))
	}
	// The nose tip sits at (320, 275) in the fixture face.
	if dst.NRGBAAt(320, 275) != landmarkColor {
		t.Errorf("the nose tip marker should carry the landmark color, got %v", dst.NRGBAAt(320, 275))
	}
}

func TestImage_DrawLandmarksWithoutOverlay(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	dst := DrawLandmarks(src, nil, image.Rectangle{})

	if !bytes.Equal(dst.Pix, src.Pix) {
		t.Errorf("without landmarks and rectangle the frame should be a plain copy")
	}
}

func TestImage_EncodeDecodeRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = uint8(i)
		src.Pix[i+1] = uint8(i / 2)
		src.Pix[i+2] = uint8(i / 3)
		src.Pix[i+3] = 0xff
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("could not create the frame file: %v", err)
	}
	if err := EncodeFrame(out, src); err != nil {
		t.Fatalf("could not encode the frame: %v", err)
	}
	out.Close()

	img, err := DecodeFrame(path)
	if err != nil {
		t.Fatalf("could not decode the frame: %v", err)
	}
	if img.Bounds() != src.Bounds() {
		t.Fatalf("decoded bounds: got %v want %v", img.Bounds(), src.Bounds())
	}
	for _, pt := range []image.Point{{0, 0}, {7, 3}, {15, 15}} {
		want := src.NRGBAAt(pt.X, pt.Y)
		got := color.NRGBAModel.Convert(img.At(pt.X, pt.Y)).(color.NRGBA)
		if got != want {
			t.Errorf("pixel %v: got %v want %v", pt, got, want)
		}
	}
}

func TestImage_EncodeRejectsUnknownExtension(t *testing.T) {
	out, err := os.OpenFile(filepath.Join(t.TempDir(), "frame.tiff"), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("could not create the frame file: %v", err)
	}
	defer out.Close()

	if err := EncodeFrame(out, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Errorf("an unsupported image format should have been reported")
	}
}

func TestImage_EncodeToPlainWriterFallsBackToJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("could not encode the frame: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Errorf("a plain writer should receive a JPEG stream")
	}
}

func TestImage_DecodeRejectsNonImageFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(`{"frame": 1}`+"\n"), 0644); err != nil {
		t.Fatalf("could not write the sample file: %v", err)
	}

	if _, err := DecodeFrame(path); err == nil {
		t.Errorf("a non image file should have been rejected")
	}
	if _, err := DecodeFrame(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Errorf("a missing file should have been reported")
	}
}

func makeTestNRGBA(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := color.NRGBAModel.Convert(colors[i]).(color.NRGBA)
			c.A = uint8(255 - i%256)
			img.SetNRGBA(x, y, c)
			i++
		}
	}
	return img
}

func makeTestRGBA(rect image.Rectangle, colors []color.Color) *image.RGBA {
	img := image.NewRGBA(rect)
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colors[i])
			i++
		}
	}
	return img
}

func makeTestYCbCr(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[i]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			i++
		}
	}
	return img
}
