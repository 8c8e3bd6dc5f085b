package normalizer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pricewatch/internal/models"
)

// Reference validation errors.
var (
	ErrEmptyReference     = errors.New("item reference is empty")
	ErrMalformedReference = errors.New("item reference is not a valid URL")
	ErrUnsupportedScheme  = errors.New("item reference scheme must be http or https")
	ErrUnexpectedHost     = errors.New("item reference host is not allowed")
)

// Validator checks item references before any network call is made.
type Validator struct {
	allowedHost string
}

// NewValidator creates a validator accepting allowedHost and its subdomains.
func NewValidator(allowedHost string) *Validator {
	return &Validator{allowedHost: strings.ToLower(strings.TrimSpace(allowedHost))}
}

// Validate reports why ref is not well-formed, or nil.
func (v *Validator) Validate(ref models.ItemReference) error {
	raw := strings.TrimSpace(string(ref))
	if raw == "" {
		return ErrEmptyReference
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedReference, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedReference)
	}

	if host != v.allowedHost && !strings.HasSuffix(host, "."+v.allowedHost) {
		return fmt.Errorf("%w: %s", ErrUnexpectedHost, host)
	}

	return nil
}
