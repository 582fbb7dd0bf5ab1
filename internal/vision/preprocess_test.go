package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestImageToCHWDimensions(t *testing.T) {
	img := solidImage(100, 80, color.RGBA{R: 255, A: 255})

	data := imageToCHW(img, 640, 640, [3]float32{127.5, 127.5, 127.5}, [3]float32{128, 128, 128})

	if len(data) != 3*640*640 {
		t.Fatalf("got %d values, want %d", len(data), 3*640*640)
	}

	// Pure red: R channel ~ (255-127.5)/128, G and B ~ (0-127.5)/128.
	wantR := float32(255-127.5) / 128
	wantG := float32(0-127.5) / 128
	if math.Abs(float64(data[0]-wantR)) > 1e-4 {
		t.Errorf("R channel = %v, want %v", data[0], wantR)
	}
	if math.Abs(float64(data[640*640]-wantG)) > 1e-4 {
		t.Errorf("G channel = %v, want %v", data[640*640], wantG)
	}
}

func TestResizeImage(t *testing.T) {
	img := solidImage(200, 100, color.RGBA{G: 128, A: 255})

	resized := resizeImage(img, 50, 50)

	bounds := resized.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Fatalf("resized to %dx%d, want 50x50", bounds.Dx(), bounds.Dy())
	}
}

func TestCropFace(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{B: 200, A: 255})

	crop := cropFace(img, [4]float32{20, 20, 60, 60})
	if crop == nil {
		t.Fatal("cropFace returned nil for valid bbox")
	}

	// 40px box plus 10% padding on each side.
	bounds := crop.Bounds()
	if bounds.Dx() != 48 || bounds.Dy() != 48 {
		t.Errorf("crop is %dx%d, want 48x48", bounds.Dx(), bounds.Dy())
	}
}

func TestCropFaceDegenerate(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{A: 255})

	if crop := cropFace(img, [4]float32{50, 50, 50, 50}); crop != nil {
		t.Error("cropFace returned crop for zero-area bbox")
	}
	if crop := cropFace(img, [4]float32{60, 60, 40, 40}); crop != nil {
		t.Error("cropFace returned crop for inverted bbox")
	}
}

func TestCropFaceClampsToBounds(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{A: 255})

	crop := cropFace(img, [4]float32{-10, -10, 45, 45})
	if crop == nil {
		t.Fatal("cropFace returned nil for partially out-of-bounds bbox")
	}
	bounds := crop.Bounds()
	if bounds.Dx() > 50 || bounds.Dy() > 50 {
		t.Errorf("crop %dx%d exceeds source image", bounds.Dx(), bounds.Dy())
	}
}

func TestDecodeImageJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(32, 32, color.RGBA{R: 50, A: 255}), nil); err != nil {
		t.Fatal(err)
	}

	img, err := decodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeImage: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("decoded width %d, want 32", img.Bounds().Dx())
	}
}

func TestDecodeImageGarbage(t *testing.T) {
	if _, err := decodeImage([]byte("not an image")); err == nil {
		t.Error("decodeImage accepted garbage input")
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("normalized vector has squared norm %v, want 1", sum)
	}

	zero := []float32{0, 0, 0}
	normalize(zero)
	for _, x := range zero {
		if x != 0 {
			t.Error("normalize modified zero vector")
		}
	}
}
