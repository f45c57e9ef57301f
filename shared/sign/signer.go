// Package sign wraps CAP documents in an enveloped XML digital signature.
// Signing is opportunistic: with no key/certificate configured the signer
// passes documents through untouched.
package sign

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// Signature algorithm names accepted in configuration.
const (
	AlgorithmRSASHA256 = "rsa-sha256"
	AlgorithmRSASHA1   = "rsa-sha1"
)

// SigningError marks bad key material or a failed signature computation.
// Fatal for distribution unless the unsigned fallback is configured.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xml signing failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("xml signing failed: %s", e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Config locates the key material. Empty paths disable signing.
type Config struct {
	KeyPath   string
	CertPath  string
	Algorithm string
}

type keyStore struct {
	key  *rsa.PrivateKey
	cert []byte
}

func (ks *keyStore) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	return ks.key, ks.cert, nil
}

// Signer applies enveloped signatures with a fixed key pair.
type Signer struct {
	enabled bool
	store   *keyStore
	hash    crypto.Hash
}

// New loads the key pair. When either path is empty the returned signer is
// a no-op; actually broken key material is an error so misconfiguration is
// distinguishable from the intentionally-unsigned setup.
func New(cfg Config) (*Signer, error) {
	if cfg.KeyPath == "" || cfg.CertPath == "" {
		return &Signer{enabled: false}, nil
	}

	hash := crypto.SHA256
	switch cfg.Algorithm {
	case "", AlgorithmRSASHA256:
	case AlgorithmRSASHA1:
		hash = crypto.SHA1
	default:
		return nil, &SigningError{Reason: fmt.Sprintf("unsupported signature algorithm %q", cfg.Algorithm)}
	}

	key, err := loadPrivateKey(cfg.KeyPath)
	if err != nil {
		return nil, &SigningError{Reason: "loading private key", Err: err}
	}
	cert, err := loadCertificate(cfg.CertPath)
	if err != nil {
		return nil, &SigningError{Reason: "loading certificate", Err: err}
	}

	return &Signer{
		enabled: true,
		store:   &keyStore{key: key, cert: cert},
		hash:    hash,
	}, nil
}

// Enabled reports whether a key pair is configured.
func (s *Signer) Enabled() bool { return s.enabled }

// Sign returns the document with an enveloped ds:Signature over the root
// element. Identity when signing is disabled.
func (s *Signer) Sign(doc []byte) ([]byte, error) {
	if !s.enabled {
		return doc, nil
	}

	edoc := etree.NewDocument()
	if err := edoc.ReadFromBytes(doc); err != nil {
		return nil, &SigningError{Reason: "parsing document", Err: err}
	}
	root := edoc.Root()
	if root == nil {
		return nil, &SigningError{Reason: "document has no root element"}
	}

	sctx := dsig.NewDefaultSigningContext(s.store)
	sctx.Hash = s.hash

	signed, err := sctx.SignEnveloped(root)
	if err != nil {
		return nil, &SigningError{Reason: "computing signature", Err: err}
	}

	edoc.SetRoot(signed)
	out, err := edoc.WriteToBytes()
	if err != nil {
		return nil, &SigningError{Reason: "serializing signed document", Err: err}
	}
	return out, nil
}

// Verify checks the enveloped signature against the certificate at
// certPath. Operational helper for spot-checking delivered documents.
func Verify(doc []byte, certPath string) error {
	certDER, err := loadCertificate(certPath)
	if err != nil {
		return fmt.Errorf("loading certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return fmt.Errorf("parsing certificate: %w", err)
	}

	edoc := etree.NewDocument()
	if err := edoc.ReadFromBytes(doc); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	root := edoc.Root()
	if root == nil {
		return fmt.Errorf("document has no root element")
	}

	vctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	})
	if _, err := vctx.Validate(root); err != nil {
		return fmt.Errorf("signature validation: %w", err)
	}
	return nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, need RSA", parsed)
	}
	return key, nil
}

func loadCertificate(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE PEM block in %s", path)
	}
	return block.Bytes, nil
}
