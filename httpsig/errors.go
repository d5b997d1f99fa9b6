package httpsig

import (
	"errors"
	"fmt"
)

// KeyLoadError is returned when private key material could not be decoded or
// parsed into a usable signing key.
type KeyLoadError struct {
	what string
	err  error
}

func (k *KeyLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", k.what, k.err)
}

func (k *KeyLoadError) Unwrap() error {
	return k.err
}

// IsKeyLoadError returns a boolean indicating whether the given error is a
// 'KeyLoadError'.
func IsKeyLoadError(err error) bool {
	var keyLoadError *KeyLoadError
	return errors.As(err, &keyLoadError)
}

// AgentUnavailableError is returned when the ssh agent could not be reached,
// or holds no key matching the requested fingerprint.
type AgentUnavailableError struct {
	address string
	err     error
}

func (a *AgentUnavailableError) Error() string {
	return fmt.Sprintf("agent at %q unavailable: %s", a.address, a.err)
}

func (a *AgentUnavailableError) Unwrap() error {
	return a.err
}

// IsAgentUnavailableError returns a boolean indicating whether the given error
// is an 'AgentUnavailableError'.
func IsAgentUnavailableError(err error) bool {
	var agentUnavailableError *AgentUnavailableError
	return errors.As(err, &agentUnavailableError)
}
