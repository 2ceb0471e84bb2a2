package tender

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Validator checks tenders and bids.
type Validator struct {
	maxTitleLength       int
	maxDescriptionLength int
	maxAttachments       int
	currencyPattern      *regexp.Regexp
}

// NewValidator creates a validator with default limits.
func NewValidator() *Validator {
	return &Validator{
		maxTitleLength:       200,
		maxDescriptionLength: 20000,
		maxAttachments:       10,
		currencyPattern:      regexp.MustCompile(`^[A-Z]{3}$`),
	}
}

// ValidateTender validates a tender about to be stored. now is used for the deadline check.
func (v *Validator) ValidateTender(t *Tender, now time.Time) error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > v.maxTitleLength {
		return fmt.Errorf("title exceeds %d characters", v.maxTitleLength)
	}
	if utf8.RuneCountInString(t.Description) > v.maxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", v.maxDescriptionLength)
	}
	if t.Budget.IsNegative() {
		return fmt.Errorf("budget must not be negative")
	}
	if !v.currencyPattern.MatchString(t.Currency) {
		return fmt.Errorf("currency must be a 3 letter ISO code")
	}
	if !t.Deadline.After(now) {
		return fmt.Errorf("deadline must be in the future")
	}
	if len(t.AttachmentURLs) > v.maxAttachments {
		return fmt.Errorf("at most %d attachments are allowed", v.maxAttachments)
	}
	for _, raw := range t.AttachmentURLs {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("invalid attachment url: %w", err)
		}
	}
	return nil
}

// ValidateRequest validates a bid.
func (v *Validator) ValidateRequest(r *Request) error {
	if strings.TrimSpace(r.Proposal) == "" {
		return fmt.Errorf("proposal is required")
	}
	if utf8.RuneCountInString(r.Proposal) > v.maxDescriptionLength {
		return fmt.Errorf("proposal exceeds %d characters", v.maxDescriptionLength)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}
	if r.AttachmentURL != "" {
		if err := validateURL(r.AttachmentURL); err != nil {
			return fmt.Errorf("invalid attachment url: %w", err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
