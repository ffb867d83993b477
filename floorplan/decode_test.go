package floorplan

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeImage_PNG(t *testing.T) {
	data := encodePNG(t, twoRoomPlan())
	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 1000 || b.Dy() != 800 {
		t.Errorf("bounds = %dx%d, want 1000x800", b.Dx(), b.Dy())
	}
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, err := DecodeImage([]byte("this is not an image"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("error type = %T, want *DecodeError", err)
	}
}

func TestDecodeImageFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.png")
	_, err := DecodeImageFile(path)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if !strings.Contains(decodeErr.Error(), "missing.png") {
		t.Errorf("error %q does not name the source file", decodeErr.Error())
	}
}
