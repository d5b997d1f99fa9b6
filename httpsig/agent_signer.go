package httpsig

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AgentSignerOptions encapsulates the options available when creating a new
// agent signer.
type AgentSignerOptions struct {
	// Account is the account the signing key belongs to.
	Account string

	// KeyFingerprint is the legacy MD5 fingerprint of the agent key to sign
	// with; may be omitted when the agent holds exactly one key.
	KeyFingerprint string

	// AgentAddress is the path of the agents unix domain socket.
	AgentAddress string
}

// AgentSigner delegates signing to a local ssh agent, the private key never
// leaves the agent process.
type AgentSigner struct {
	account     string
	fingerprint string
	address     string
	key         *agent.Key
}

var _ Signer = (*AgentSigner)(nil)

// NewAgentSigner creates a new signer delegating to the ssh agent at the given
// address, validating up-front that the agent is reachable and holds a
// matching key.
func NewAgentSigner(options AgentSignerOptions) (*AgentSigner, error) {
	signer := &AgentSigner{
		account: options.Account,
		address: options.AgentAddress,
	}

	err := signer.resolveKey(options.KeyFingerprint)
	if err != nil {
		return nil, err
	}

	return signer, nil
}

// resolveKey locates the agent key to sign with, matching the given
// fingerprint when one was supplied.
func (a *AgentSigner) resolveKey(fingerprint string) error {
	conn, err := net.Dial("unix", a.address)
	if err != nil {
		return &AgentUnavailableError{address: a.address, err: err}
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return &AgentUnavailableError{address: a.address, err: fmt.Errorf("failed to list keys: %w", err)}
	}

	if fingerprint == "" && len(keys) == 1 {
		a.key, a.fingerprint = keys[0], ssh.FingerprintLegacyMD5(keys[0])
		return nil
	}

	for _, key := range keys {
		if ssh.FingerprintLegacyMD5(key) != fingerprint {
			continue
		}

		a.key, a.fingerprint = key, fingerprint

		return nil
	}

	return &AgentUnavailableError{address: a.address, err: errors.New("no matching key held by agent")}
}

func (a *AgentSigner) Sign(data []byte) (*Signature, error) {
	conn, err := net.Dial("unix", a.address)
	if err != nil {
		return nil, &AgentUnavailableError{address: a.address, err: err}
	}
	defer conn.Close()

	client := agent.NewClient(conn)

	var sig *ssh.Signature

	// Older agents sign RSA keys with SHA-1 by default, request a SHA-256
	// signature explicitly.
	if a.key.Type() == ssh.KeyAlgoRSA {
		sig, err = client.SignWithFlags(a.key, data, agent.SignatureFlagRsaSha256)
	} else {
		sig, err = client.Sign(a.key, data)
	}

	if err != nil {
		return nil, &AgentUnavailableError{address: a.address, err: fmt.Errorf("failed to sign payload: %w", err)}
	}

	return convertAgentSignature(sig)
}

func (a *AgentSigner) KeyID() string {
	return a.fingerprint
}

func (a *AgentSigner) Account() string {
	return a.account
}

// convertAgentSignature converts an ssh wire format signature into the form
// expected by the remote service.
func convertAgentSignature(sig *ssh.Signature) (*Signature, error) {
	switch sig.Format {
	case ssh.KeyAlgoRSASHA256:
		return &Signature{Algorithm: AlgorithmRSASHA256, Value: sig.Blob}, nil
	case ssh.KeyAlgoRSASHA512:
		return &Signature{Algorithm: AlgorithmRSASHA512, Value: sig.Blob}, nil
	case ssh.KeyAlgoED25519:
		return &Signature{Algorithm: AlgorithmED25519, Value: sig.Blob}, nil
	case ssh.KeyAlgoECDSA256, ssh.KeyAlgoECDSA384, ssh.KeyAlgoECDSA521:
		return convertAgentECDSASignature(sig)
	}

	return nil, fmt.Errorf("unsupported signature format %q", sig.Format)
}

// convertAgentECDSASignature re-encodes an ssh wire format ECDSA signature
// into its ASN.1 form.
func convertAgentECDSASignature(sig *ssh.Signature) (*Signature, error) {
	var algorithm string

	switch sig.Format {
	case ssh.KeyAlgoECDSA256:
		algorithm = AlgorithmECDSASHA256
	case ssh.KeyAlgoECDSA384:
		algorithm = AlgorithmECDSASHA384
	case ssh.KeyAlgoECDSA521:
		algorithm = AlgorithmECDSASHA512
	}

	var parts struct {
		R, S *big.Int
	}

	err := ssh.Unmarshal(sig.Blob, &parts)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal signature: %w", err)
	}

	value, err := asn1.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signature: %w", err)
	}

	return &Signature{Algorithm: algorithm, Value: value}, nil
}
