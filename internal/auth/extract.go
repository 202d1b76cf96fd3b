package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const bearerPrefix = "Bearer "

// identify is the single extraction path behind Require and Optional.
func (s *Service) identify(header string) (int64, error) {
	switch {
	case header == "":
		return 0, fmt.Errorf("%w: missing authorization header", ErrUnauthorized)
	case !utf8.ValidString(header):
		return 0, fmt.Errorf("%w: authorization header is not valid text", ErrUnauthorized)
	case !strings.HasPrefix(header, bearerPrefix):
		return 0, fmt.Errorf("%w: expected bearer scheme", ErrUnauthorized)
	}
	id, err := s.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return id, nil
}

// Require returns the user id named by an Authorization header value.
// Every failure wraps ErrUnauthorized.
func (s *Service) Require(header string) (int64, error) {
	return s.identify(header)
}

// Optional is Require with failures collapsed to nil. A bad header reads
// the same as no header.
func (s *Service) Optional(header string) *int64 {
	id, err := s.identify(header)
	if err != nil {
		return nil
	}
	return &id
}
