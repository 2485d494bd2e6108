// Package media uploads hotel and room images to Cloudinary.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 5 << 20

var (
	ErrDisabled         = errors.New("image uploads are not configured")
	ErrUnsupportedImage = errors.New("only jpeg, png and webp images are accepted")
)

var allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Uploader stores an image under folder/publicID and returns its public
// HTTPS URL.
type Uploader interface {
	UploadImage(ctx context.Context, folder, publicID string, r io.Reader) (string, error)
}

// New returns a Cloudinary uploader rooted at baseFolder, or an uploader
// that always fails with ErrDisabled when credentials are missing.
func New(cloudName, apiKey, apiSecret, baseFolder string) (Uploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return disabled{}, nil
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld, base: baseFolder}, nil
}

type Cloudinary struct {
	cld  *cloudinary.Cloudinary
	base string
}

func (c *Cloudinary) UploadImage(ctx context.Context, folder, publicID string, r io.Reader) (string, error) {
	if c.base != "" {
		folder = c.base + "/" + folder
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

type disabled struct{}

func (disabled) UploadImage(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrDisabled
}

// SniffImage detects the content type from the first bytes of r and
// rejects anything but the accepted image formats.  The returned reader
// yields the complete original stream.
func SniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !allowed[mt.String()] {
		return nil, mt.String(), ErrUnsupportedImage
	}
	return io.MultiReader(bytes.NewReader(head), r), mt.String(), nil
}
