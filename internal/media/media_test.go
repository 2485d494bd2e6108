package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSniffImageKeepsStream(t *testing.T) {
	raw := pngBytes(t)
	r, mt, err := SniffImage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("SniffImage: %v", err)
	}
	if mt != "image/png" {
		t.Errorf("type = %s", mt)
	}
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, raw) {
		t.Fatal("stream changed after sniffing")
	}
}

func TestSniffImageRejectsText(t *testing.T) {
	_, mt, err := SniffImage(strings.NewReader("hello, not an image"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v (type %s), want ErrUnsupportedImage", err, mt)
	}
}

func TestNewWithoutCredentialsIsDisabled(t *testing.T) {
	u, err := New("", "", "", "hotels")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := u.UploadImage(context.Background(), "hotels", "x", strings.NewReader("")); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
