// Package httpsig implements 'http-signature' style request signing, where a
// signature over the outbound requests 'Date' header is attached via the
// 'Authorization' header. Keys may be loaded from PEM encoded key material, or
// signing may be delegated to a local ssh agent.
package httpsig

import (
	"encoding/base64"
	"fmt"
)

// Algorithm names understood by the remote service, these follow the
// 'http-signature' draft naming scheme.
const (
	AlgorithmRSASHA256   = "rsa-sha256"
	AlgorithmRSASHA512   = "rsa-sha512"
	AlgorithmECDSASHA256 = "ecdsa-sha256"
	AlgorithmECDSASHA384 = "ecdsa-sha384"
	AlgorithmECDSASHA512 = "ecdsa-sha512"
	AlgorithmED25519     = "ed25519"
)

// Signature is the result of signing a payload, the algorithm name is included
// so the caller may render a self-describing authorization header.
type Signature struct {
	Algorithm string
	Value     []byte
}

// Signer produces signatures over arbitrary payloads using a single account
// key; implementations are safe for concurrent use.
type Signer interface {
	// Sign signs the given payload, returning the signature and the name of
	// the algorithm used.
	Sign(data []byte) (*Signature, error)

	// KeyID returns the fingerprint of the signing key, in the legacy MD5
	// colon separated form.
	KeyID() string

	// Account returns the account the signing key belongs to.
	Account() string
}

// AuthorizationHeader renders the value of the 'Authorization' header for the
// given signature.
func AuthorizationHeader(account, keyID string, sig *Signature) string {
	return fmt.Sprintf(
		`Signature keyId="/%s/keys/%s",algorithm="%s",signature="%s"`,
		account,
		keyID,
		sig.Algorithm,
		base64.StdEncoding.EncodeToString(sig.Value),
	)
}
