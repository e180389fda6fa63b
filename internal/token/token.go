// Package token validates project API token syntax and hosts the drop gate
// used to silently discard traffic from abusive tokens.
package token

import (
	"errors"
	"strings"
)

const maxTokenLength = 64

var (
	ErrTokenEmpty          = errors.New("token is empty")
	ErrTokenTooLong        = errors.New("token exceeds maximum length")
	ErrTokenInvalidChars   = errors.New("token contains invalid characters")
	ErrTokenPersonalAPIKey = errors.New("personal API keys are not valid project tokens")
)

// Validate checks token syntax only; whether the token belongs to a live
// project is decided later in the pipeline.
func Validate(token string) error {
	if token == "" {
		return ErrTokenEmpty
	}
	if len(token) > maxTokenLength {
		return ErrTokenTooLong
	}
	if strings.HasPrefix(token, "phx_") {
		return ErrTokenPersonalAPIKey
	}
	for _, c := range token {
		if !isTokenChar(c) {
			return ErrTokenInvalidChars
		}
	}
	return nil
}

func isTokenChar(c rune) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}

// Dropper decides whether traffic for a token (optionally scoped to one
// distinct id) should be accepted and discarded. It is read-only after
// construction and safe for concurrent use.
type Dropper struct {
	dropped map[string][]string
}

// NewDropper parses a comma-separated drop list. Each entry is either a bare
// token (drop everything for it) or "token:distinct_id" (drop only that id).
func NewDropper(spec string) *Dropper {
	dropped := map[string][]string{}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, distinctID, scoped := strings.Cut(entry, ":")
		if scoped && distinctID != "" {
			dropped[token] = append(dropped[token], distinctID)
		} else if _, exists := dropped[token]; !exists {
			dropped[token] = nil
		}
	}
	return &Dropper{dropped: dropped}
}

// ShouldDrop reports whether events for this token/distinct id pair must be
// silently discarded. A token listed with no distinct ids drops everything.
func (d *Dropper) ShouldDrop(token, distinctID string) bool {
	ids, found := d.dropped[token]
	if !found {
		return false
	}
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == distinctID {
			return true
		}
	}
	return false
}
