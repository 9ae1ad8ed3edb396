package inkpost

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pngDeclaring returns a tiny PNG whose header claims w x h pixels.
func pngDeclaring(t *testing.T, w, h uint32) []byte {
	t.Helper()
	b := pngOf(t, 1, 1)
	// IHDR data starts after the 8-byte signature, length and type.
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestPrepareImageRejectsHugeDimensions(t *testing.T) {
	body := pngDeclaring(t, 1300, 60000)
	if len(body) > 1024 {
		t.Fatalf("test image is %d bytes, want a tiny file", len(body))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(body))
	if err != nil || cfg.Width != 1300 || cfg.Height != 60000 {
		t.Fatalf("header not patched: %+v %v", cfg, err)
	}

	_, err = prepareImage(upload{Filename: "tall.png", ContentType: "image/png", Body: body}, 1200)
	if !errors.Is(err, errImageTooLarge) {
		t.Fatalf("expected errImageTooLarge, got %v", err)
	}

	// Narrow but tall images are refused too, even though no resize is needed.
	_, err = prepareImage(upload{Filename: "strip.png", Body: pngDeclaring(t, 100, 500000)}, 1200)
	if !errors.Is(err, errImageTooLarge) {
		t.Fatalf("expected errImageTooLarge for narrow image, got %v", err)
	}
}

func TestPrepareImageDownscalesWideImages(t *testing.T) {
	in := upload{Filename: "wide.png", ContentType: "image/png", Body: pngOf(t, 2000, 500)}

	out, err := prepareImage(in, 800)
	if err != nil {
		t.Fatalf("prepareImage failed: %v", err)
	}
	if out.Filename != "wide.jpg" || out.ContentType != "image/jpeg" {
		t.Errorf("got %q %q, want wide.jpg image/jpeg", out.Filename, out.ContentType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Body))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 200 {
		t.Errorf("size = %dx%d, want 800x200", cfg.Width, cfg.Height)
	}
}

func TestPrepareImageLeavesOthersAlone(t *testing.T) {
	small := upload{Filename: "small.png", ContentType: "image/png", Body: pngOf(t, 100, 50)}
	text := upload{Filename: "notes.txt", ContentType: "text/plain", Body: []byte("hello")}
	wide := upload{Filename: "wide.png", ContentType: "image/png", Body: pngOf(t, 2000, 10)}

	tests := []struct {
		name     string
		in       upload
		maxWidth int
	}{
		{"narrow image", small, 800},
		{"not an image", text, 800},
		{"disabled", wide, -1},
	}
	for _, tt := range tests {
		out, err := prepareImage(tt.in, tt.maxWidth)
		if err != nil {
			t.Fatalf("%s: prepareImage failed: %v", tt.name, err)
		}
		if out.Filename != tt.in.Filename || out.ContentType != tt.in.ContentType || !bytes.Equal(out.Body, tt.in.Body) {
			t.Errorf("%s: upload was modified", tt.name)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		expected string
	}{
		{"http://localhost:3000", nil, "http://localhost:3000"},
		{"http://localhost:3000", []string{"post", "abc"}, "http://localhost:3000/post/abc/"},
		{"https://example.com/blog/", []string{"uploads"}, "https://example.com/blog/uploads/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segments...); got != tt.expected {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segments, got, tt.expected)
		}
	}
}

func TestFilterEmpty(t *testing.T) {
	got := FilterEmpty([]string{" a ", "", "  ", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("FilterEmpty = %v, want [a b]", got)
	}
}
