package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageBytes caps uploaded images.
const MaxImageBytes = 10 << 20

// Image is an uploaded picture of a question.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewImage validates an upload. The MIME type is sniffed when missing or
// generic.
func NewImage(data []byte, mimeType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidInput, MaxImageBytes)
	}
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, mimeType)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

// DataURL encodes the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
