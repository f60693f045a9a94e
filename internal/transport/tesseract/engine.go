// Package tesseract implements domain.Recognizer with a local Tesseract
// installation through gosseract. Requires cgo and libtesseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/webp"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const service = "tesseract"

// Compile-time check.
var _ domain.Recognizer = (*Engine)(nil)

// Config holds engine settings.
type Config struct {
	Languages []string
	// Variables are passed to Tesseract as-is (e.g. tessedit_char_whitelist).
	Variables map[string]string
}

// Engine runs one gosseract client per call; clients are not goroutine-safe.
type Engine struct {
	languages []string
	variables map[string]string
	newClient func() *gosseract.Client
}

// New creates an engine. Languages default to English.
func New(cfg Config) *Engine {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{languages: langs, variables: cfg.Variables, newClient: gosseract.NewClient}
}

// Recognize returns the plain text found in the image.
func (e *Engine) Recognize(ctx context.Context, img domain.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	start := time.Now()
	text, err := e.recognize(img)
	metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "engine").Inc()
		return "", fmt.Errorf("tesseract: %w: %w", domain.ErrUpstream, err)
	}
	if text == "" {
		return match.NoTextFound, nil
	}
	return text, nil
}

func (e *Engine) recognize(img domain.Image) (string, error) {
	data, err := normalize(img)
	if err != nil {
		return "", err
	}

	c := e.newClient()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	for k, v := range e.variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// HealthCheck reports the linked Tesseract version is loadable.
func (e *Engine) HealthCheck(context.Context) error {
	if gosseract.Version() == "" {
		return fmt.Errorf("tesseract: %w", domain.ErrNotConfigured)
	}
	return nil
}

// normalize re-encodes formats Leptonica cannot read as PNG.
func normalize(img domain.Image) ([]byte, error) {
	if img.MIMEType != "image/webp" {
		return img.Data, nil
	}
	decoded, err := webp.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode webp: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
