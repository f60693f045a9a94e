package domain

import (
	"errors"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNewImage_SniffsType(t *testing.T) {
	img, err := NewImage(pngHeader, "application/octet-stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", img.MIMEType)
	}
}

func TestNewImage_KeepsDeclaredType(t *testing.T) {
	img, err := NewImage(pngHeader, "image/jpeg; charset=binary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", img.MIMEType)
	}
}

func TestNewImage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"empty", nil, "image/png"},
		{"not an image", []byte("hello world"), ""},
		{"too large", make([]byte, MaxImageBytes+1), "image/png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewImage(tc.data, tc.mime); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestImage_DataURL(t *testing.T) {
	img := Image{Data: []byte{1, 2, 3}, MIMEType: "image/png"}
	if got := img.DataURL(); got != "data:image/png;base64,AQID" {
		t.Errorf("got %q", got)
	}
}
