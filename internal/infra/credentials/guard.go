package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mediagen/internal/domain"
)

// ErrMissing indicates that none of the candidate variables held a value.
var ErrMissing = errors.New("credential is not set")

// LookupFunc mirrors os.LookupEnv so tests can inject their own environment.
type LookupFunc func(key string) (string, bool)

// APIKey holds the upstream credential. It is read once at startup and never
// mutated afterwards.
type APIKey string

// String redacts the key so it cannot leak through logs or %v formatting.
func (k APIKey) String() string {
	if k == "" {
		return ""
	}
	return "[redacted]"
}

// Value returns the raw key for use in outbound requests.
func (k APIKey) Value() string {
	return string(k)
}

// Guard returns the first non-empty value among keys. A missing credential is
// a configuration error and must stop the process before it serves traffic.
func Guard(lookup LookupFunc, keys ...string) (APIKey, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range keys {
		if v, ok := lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return APIKey(v), nil
			}
		}
	}
	return "", &domain.Error{
		Kind: domain.KindConfiguration,
		Code: domain.CodeMissingCredential,
		Err:  fmt.Errorf("%w: %s", ErrMissing, strings.Join(keys, " or ")),
	}
}
