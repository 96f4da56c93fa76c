package subsonic

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/mmcdole/sonicache/internal/domain"
)

const (
	apiVersion = "1.16.1"
	clientName = "sonicache"
)

// Error codes defined by the Subsonic API
const (
	codeWrongCredentials     = 40
	codeTokenAuthUnsupported = 41
	codeNotAuthorized        = 50
	codeNotFound             = 70
)

// newSalt returns a random hex salt for token authentication
func newSalt() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// token computes md5(password + salt) as required by API version 1.13+
func token(password, salt string) string {
	sum := md5.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// authParams returns the query parameters every request carries. Each call
// uses a fresh salt so the token is never reused.
func (c *Client) authParams() url.Values {
	salt := newSalt()
	params := url.Values{}
	params.Set("u", c.username)
	params.Set("t", token(c.password, salt))
	params.Set("s", salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")
	return params
}

// mapError converts an error object of a failed response
func mapError(e *ErrorDTO) error {
	if e == nil {
		return &domain.APIError{Message: "request failed without error details"}
	}
	switch e.Code {
	case codeWrongCredentials, codeTokenAuthUnsupported, codeNotAuthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthFailed, e.Message)
	case codeNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, e.Message)
	default:
		return &domain.APIError{Code: e.Code, Message: e.Message}
	}
}
