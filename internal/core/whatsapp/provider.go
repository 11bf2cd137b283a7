package whatsapp

import (
	"context"
	"fmt"
)

// Provider abstracts one WhatsApp integration backend.
type Provider interface {
	// Connect initializes the connection, pairing via QR when the
	// device store is empty.
	Connect() error

	// Disconnect tears the connection down.
	Disconnect()

	// SendText delivers a plain text message to a phone number.
	SendText(ctx context.Context, phoneNumber, message string) error

	// OnEvent registers the raw event handler.
	OnEvent(handler func(evt interface{})) error

	// GenerateQR returns a pairing QR code as PNG bytes.
	GenerateQR() ([]byte, error)

	// IsConnected reports whether the session is live.
	IsConnected() bool

	// PairedNumber returns the logged-in device's own phone number,
	// or "" when no device is paired yet.
	PairedNumber() string

	// StartKeepAlive maintains the session until ctx is done.
	StartKeepAlive(ctx context.Context)

	// StartTyping / StopTyping control the typing indicator shown to
	// the customer while a reply is being generated.
	StartTyping(phoneNumber string) error
	StopTyping(phoneNumber string) error

	Name() string
}

// ProviderConfig carries provider settings.
type ProviderConfig struct {
	// StoreURL is the Postgres DSN for the session store. Empty means
	// a local SQLite file, which is fine for development.
	StoreURL string
}

// NewProvider builds the configured provider.
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("whatsapp provider config is nil")
	}
	return NewWhatsmeowProvider(cfg.StoreURL), nil
}
