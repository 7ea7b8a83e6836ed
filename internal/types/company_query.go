// Package types provides type definitions for structured data used throughout the company-brief system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidQuery is returned when a CompanyQuery fails validation.
var ErrInvalidQuery = errors.New("invalid company query")

// CompanyQuery is the immutable input of a pipeline run.
type CompanyQuery struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	HomepageURL string `json:"homepage_url,omitempty" validate:"omitempty,url,startswith=http"`
}

// NewCompanyQuery trims the inputs, normalizes a scheme-less homepage and validates the result.
func NewCompanyQuery(name, homepageURL string) (CompanyQuery, error) {
	q := CompanyQuery{
		Name:        strings.TrimSpace(name),
		HomepageURL: normalizeHomepage(homepageURL),
	}
	if err := q.Validate(); err != nil {
		return CompanyQuery{}, err
	}
	return q, nil
}

// HasHomepage reports whether a homepage URL was supplied.
func (q CompanyQuery) HasHomepage() bool {
	return q.HomepageURL != ""
}

// Validate validates the CompanyQuery using the validator.
func (q *CompanyQuery) Validate() error {
	validate := validator.New()
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return nil
}

// normalizeHomepage adds an https scheme to bare hostnames such as "example.co.kr".
func normalizeHomepage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.String()
	}
	return raw
}
