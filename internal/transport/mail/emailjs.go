package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// DefaultEmailJSURL is the EmailJS REST send endpoint.
const DefaultEmailJSURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig holds the EmailJS account settings.
type EmailJSConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	// ToEmail is passed to the template as to_email.
	ToEmail string
}

// EmailJS sends feedback through an EmailJS template.
type EmailJS struct {
	cfg  EmailJSConfig
	http *http.Client
}

// NewEmailJS creates an EmailJS relay.
func NewEmailJS(cfg EmailJSConfig) *EmailJS {
	if cfg.URL == "" {
		cfg.URL = DefaultEmailJSURL
	}
	return &EmailJS{cfg: cfg, http: &http.Client{Timeout: defaultTimeout}}
}

// Configured reports whether the account settings are present.
func (e *EmailJS) Configured() bool {
	return strings.TrimSpace(e.cfg.PublicKey) != "" &&
		e.cfg.ServiceID != "" && e.cfg.TemplateID != ""
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendFeedback delivers one feedback message.
func (e *EmailJS) SendFeedback(ctx context.Context, from, message string) error {
	if !e.Configured() {
		return fmt.Errorf("emailjs: %w", domain.ErrNotConfigured)
	}
	params := map[string]string{
		"from_email": from,
		"message":    message,
	}
	if e.cfg.ToEmail != "" {
		params["to_email"] = e.cfg.ToEmail
	}
	return postJSON(ctx, e.http, "emailjs", e.cfg.URL, emailJSRequest{
		ServiceID:      e.cfg.ServiceID,
		TemplateID:     e.cfg.TemplateID,
		UserID:         e.cfg.PublicKey,
		AccessToken:    e.cfg.PrivateKey,
		TemplateParams: params,
	})
}
