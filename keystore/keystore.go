// Package keystore loads signer/recipient key material and certificate
// chains from PEM files, with optional passphrase prompting for encrypted
// private keys.
package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Sentinel errors.
var (
	ErrNoPEMBlock       = errors.New("keystore: no PEM block found")
	ErrUnknownKeyType   = errors.New("keystore: unrecognized private key PEM type")
	ErrNotACertificate  = errors.New("keystore: PEM block is not a CERTIFICATE")
	ErrUnsupportedKey   = errors.New("keystore: parsed key is neither RSA nor ECDSA")
	ErrPassphraseNeeded = errors.New("keystore: private key is encrypted and no passphrase was supplied")
)

// KeyPair bundles a parsed private key with its leaf certificate, the
// shape every session.Session signer/recipient setter wants.
type KeyPair struct {
	PrivateKey  crypto.Signer
	Certificate *x509.Certificate
	CertRaw     []byte
	Chain       []*x509.Certificate
}

// LoadKeyPair reads a PEM-encoded private key and its leaf certificate
// from disk. If the key's PEM block carries the legacy
// "Proc-Type: 4,ENCRYPTED" header and passphrase is empty, it is prompted
// for interactively via term.ReadPassword when stdin is a terminal,
// mirroring the teacher's container-PIN prompt in cryptopro_extract.
func LoadKeyPair(keyPath, certPath, passphrase string) (*KeyPair, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrap(err, "keystore: read private key file")
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Wrap(err, "keystore: read certificate file")
	}

	signer, err := ParsePrivateKey(keyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		PrivateKey:  signer,
		Certificate: cert,
		CertRaw:     cert.Raw,
	}, nil
}

// ParsePrivateKey decodes a PEM-encoded PKCS#1, PKCS#8, or SEC1 EC private
// key, prompting for a passphrase on the terminal if the block is
// encrypted and none was supplied.
func ParsePrivateKey(keyPEM []byte, passphrase string) (crypto.Signer, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	der := block.Bytes
	//nolint:staticcheck // x509.IsEncryptedPEMBlock/DecryptPEMBlock are deprecated
	// but remain the only stdlib path for legacy PEM encryption headers;
	// modern tooling issues PKCS#8 EncryptedPrivateKeyInfo instead, which
	// this function does not attempt to decrypt.
	if x509.IsEncryptedPEMBlock(block) {
		if passphrase == "" {
			var err error
			passphrase, err = promptPassphrase()
			if err != nil {
				return nil, err
			}
		}
		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, errors.Wrap(err, "keystore: decrypt PEM block")
		}
		der = decrypted
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, errors.Wrap(err, "keystore: parse PKCS#1 private key")
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, errors.Wrap(err, "keystore: parse SEC1 EC private key")
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, errors.Wrap(err, "keystore: parse PKCS#8 private key")
		}
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, errors.Wrapf(ErrUnsupportedKey, "got %T", key)
		}
	}
	return nil, errors.Wrapf(ErrUnknownKeyType, "PEM type %q", block.Type)
}

// ParseCertificate decodes a single PEM-encoded X.509 certificate.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	if block.Type != "CERTIFICATE" {
		return nil, errors.Wrapf(ErrNotACertificate, "PEM type %q", block.Type)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "keystore: parse certificate")
	}
	return cert, nil
}

// ParseCertificateChain decodes every CERTIFICATE block in a concatenated
// PEM bundle, in file order.
func ParseCertificateChain(bundlePEM []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := bundlePEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "keystore: parse certificate chain")
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, ErrNotACertificate
	}
	return chain, nil
}

// promptPassphrase reads a passphrase from the controlling terminal,
// following the teacher's cryptopro_extract term.ReadPassword idiom.
func promptPassphrase() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", ErrPassphraseNeeded
	}
	fmt.Fprint(os.Stderr, "Enter private key passphrase: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "keystore: read passphrase")
	}
	return string(pwBytes), nil
}
