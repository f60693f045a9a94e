package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// DefaultFormspreeURL is the Formspree form submission base.
const DefaultFormspreeURL = "https://formspree.io/f/"

// FormspreeConfig identifies a Formspree form.
type FormspreeConfig struct {
	BaseURL string
	FormID  string
}

// Formspree records signup emails in a Formspree form.
type Formspree struct {
	url  string
	http *http.Client
}

// NewFormspree creates a signup relay. An empty form id leaves it unconfigured.
func NewFormspree(cfg FormspreeConfig) *Formspree {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultFormspreeURL
	}
	var endpoint string
	if cfg.FormID != "" {
		endpoint = strings.TrimRight(base, "/") + "/" + url.PathEscape(cfg.FormID)
	}
	return &Formspree{url: endpoint, http: &http.Client{Timeout: defaultTimeout}}
}

// Subscribe submits one email address.
func (f *Formspree) Subscribe(ctx context.Context, email string) error {
	if f.url == "" {
		return fmt.Errorf("formspree: %w", domain.ErrNotConfigured)
	}
	return postJSON(ctx, f.http, "formspree", f.url, map[string]string{"email": email})
}
