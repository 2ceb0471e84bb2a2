package company

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"tender-server/internal/utils/idgen"
)

// ValidationConfig holds company validation rules
type ValidationConfig struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxFieldLength       int
}

// DefaultValidationConfig returns default company validation rules
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxNameLength:        120,
		MaxDescriptionLength: 4000,
		MaxFieldLength:       255,
	}
}

// Validator checks company profiles before they are persisted.
type Validator struct {
	config             *ValidationConfig
	invalidCharPattern *regexp.Regexp
}

// NewValidator creates a validator for companies
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Validator{
		config:             config,
		invalidCharPattern: regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`),
	}
}

// ValidateCompany performs full company validation
func (v *Validator) ValidateCompany(c *Company) error {
	if c == nil {
		return fmt.Errorf("company cannot be nil")
	}
	if c.ID != "" && !idgen.IsValid(idgen.PrefixCompany, c.ID) {
		return fmt.Errorf("invalid company ID format")
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > v.config.MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", v.config.MaxNameLength)
	}
	if v.invalidCharPattern.MatchString(c.Name) {
		return fmt.Errorf("name contains invalid control characters")
	}
	if utf8.RuneCountInString(c.Description) > v.config.MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", v.config.MaxDescriptionLength)
	}

	for field, value := range map[string]string{
		"industry": c.Industry,
		"phone":    c.Phone,
		"address":  c.Address,
		"website":  c.Website,
		"logo_url": c.LogoURL,
		"email":    c.Email,
	} {
		if utf8.RuneCountInString(value) > v.config.MaxFieldLength {
			return fmt.Errorf("%s exceeds %d characters", field, v.config.MaxFieldLength)
		}
	}

	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("invalid email: %w", err)
		}
	}
	for field, raw := range map[string]string{"website": c.Website, "logo_url": c.LogoURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", field)
		}
	}
	return nil
}

// ValidateCompanyID validates the public id format.
func (v *Validator) ValidateCompanyID(id string) error {
	if !idgen.IsValid(idgen.PrefixCompany, id) {
		return fmt.Errorf("invalid company ID format: %q", id)
	}
	return nil
}
