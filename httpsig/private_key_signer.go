package httpsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

// PrivateKeySignerOptions encapsulates the options available when creating a
// new private key signer.
type PrivateKeySignerOptions struct {
	// Account is the account the signing key belongs to.
	Account string

	// PrivateKey is the PEM encoded private key material; mutually exclusive
	// with 'KeyFile'.
	PrivateKey []byte

	// KeyFile is the path to a PEM encoded private key; mutually exclusive
	// with 'PrivateKey'.
	KeyFile string

	// Passphrase decrypts the key material when it's an encrypted PKCS#8 key.
	Passphrase []byte
}

// PrivateKeySigner signs payloads using a locally held private key. Supports
// unencrypted PKCS#1, PKCS#8 and EC keys, and passphrase protected PKCS#8
// keys.
type PrivateKeySigner struct {
	account     string
	fingerprint string
	key         crypto.Signer
	algorithm   string
}

var _ Signer = (*PrivateKeySigner)(nil)

// NewPrivateKeySigner creates a new signer using the key material from the
// given options, deriving the key fingerprint from the matching public key.
func NewPrivateKeySigner(options PrivateKeySignerOptions) (*PrivateKeySigner, error) {
	data := options.PrivateKey

	if data == nil {
		var err error
		if data, err = os.ReadFile(options.KeyFile); err != nil {
			return nil, &KeyLoadError{what: "private key file", err: err}
		}
	}

	key, err := parsePrivateKey(data, options.Passphrase)
	if err != nil {
		return nil, err
	}

	algorithm, err := signingAlgorithm(key)
	if err != nil {
		return nil, err
	}

	public, err := ssh.NewPublicKey(key.Public())
	if err != nil {
		return nil, &KeyLoadError{what: "public key", err: err}
	}

	signer := &PrivateKeySigner{
		account:     options.Account,
		fingerprint: ssh.FingerprintLegacyMD5(public),
		key:         key,
		algorithm:   algorithm,
	}

	return signer, nil
}

func (p *PrivateKeySigner) Sign(data []byte) (*Signature, error) {
	var (
		value []byte
		err   error
	)

	switch key := p.key.(type) {
	case *rsa.PrivateKey:
		digest := sha256.Sum256(data)
		value, err = rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	case *ecdsa.PrivateKey:
		digest := sha256.Sum256(data)
		value, err = ecdsa.SignASN1(rand.Reader, key, digest[:])
	case ed25519.PrivateKey:
		value = ed25519.Sign(key, data)
	default:
		return nil, fmt.Errorf("unsupported private key type %T", p.key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &Signature{Algorithm: p.algorithm, Value: value}, nil
}

func (p *PrivateKeySigner) KeyID() string {
	return p.fingerprint
}

func (p *PrivateKeySigner) Account() string {
	return p.account
}

// parsePrivateKey decodes and parses the given PEM encoded private key,
// decrypting it with the given passphrase when required.
func parsePrivateKey(data, passphrase []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil || !strings.Contains(block.Type, "PRIVATE KEY") {
		return nil, &KeyLoadError{what: "private key", err: errors.New("no PEM encoded private key found")}
	}

	if len(passphrase) != 0 {
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, &KeyLoadError{what: "encrypted private key", err: err}
		}

		return asCryptoSigner(key)
	}

	if key := parseUnencryptedPrivateKey(block.Bytes); key != nil {
		return asCryptoSigner(key)
	}

	return nil, &KeyLoadError{what: "private key", err: errors.New("unsupported key format")}
}

// parseUnencryptedPrivateKey parses and returns the given private key, the key is expected to be unencrypted in either
// PKCS#1, PKCS#8 or EC format.
func parseUnencryptedPrivateKey(data []byte) any {
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key
	}

	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		return key
	}

	if key, err := x509.ParseECPrivateKey(data); err == nil {
		return key
	}

	return nil
}

func asCryptoSigner(key any) (crypto.Signer, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, &KeyLoadError{what: "private key", err: fmt.Errorf("unsupported key type %T", key)}
	}

	return signer, nil
}

// signingAlgorithm returns the algorithm name the given key signs with.
func signingAlgorithm(key crypto.Signer) (string, error) {
	switch key.(type) {
	case *rsa.PrivateKey:
		return AlgorithmRSASHA256, nil
	case *ecdsa.PrivateKey:
		return AlgorithmECDSASHA256, nil
	case ed25519.PrivateKey:
		return AlgorithmED25519, nil
	}

	return "", &KeyLoadError{what: "private key", err: fmt.Errorf("unsupported key type %T", key)}
}
