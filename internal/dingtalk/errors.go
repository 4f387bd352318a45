package dingtalk

import (
	"errors"
	"fmt"
)

// ErrAuthExpired is returned when no valid access token can be obtained or the
// API rejects the token in use.
var ErrAuthExpired = errors.New("dingtalk: access token expired or invalid")

// Error codes that mean the access token must be refreshed.
const (
	codeInvalidCredential = 40001
	codeInvalidToken      = 40014
	codeTokenExpired      = 42001
)

// APIError is a non-zero errcode returned by the API.
type APIError struct {
	Code    int
	Message string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dingtalk %s: errcode %d: %s", e.Path, e.Code, e.Message)
}

// Is reports token errors as ErrAuthExpired.
func (e *APIError) Is(target error) bool {
	return target == ErrAuthExpired && e.authExpired()
}

func (e *APIError) authExpired() bool {
	switch e.Code {
	case codeInvalidCredential, codeInvalidToken, codeTokenExpired:
		return true
	default:
		return false
	}
}
