package health

import "context"

// StorePinger checks session store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external provider (OCR, chat).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
