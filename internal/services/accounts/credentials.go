package accounts

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
)

// PEM block types written by the keypair tool.
const (
	PublicKeyPEMType  = "PUBLIC KEY"
	PrivateKeyPEMType = "PRIVATE KEY"
)

var oaepLabel = []byte("ocfweb-account-password")

// PasswordEncrypter seals passwords for transport to the worker.
type PasswordEncrypter struct {
	key *rsa.PublicKey
}

// NewPasswordEncrypter wraps an RSA public key.
func NewPasswordEncrypter(key *rsa.PublicKey) (*PasswordEncrypter, error) {
	if key == nil {
		return nil, fmt.Errorf("public key is required")
	}
	return &PasswordEncrypter{key: key}, nil
}

// Encrypt seals password with RSA-OAEP (SHA-256).
func (e *PasswordEncrypter) Encrypt(password string) ([]byte, error) {
	sealed, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.key, []byte(password), oaepLabel)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCredentialInvalid, "encrypt password", err)
	}
	return sealed, nil
}

// PasswordDecrypter opens passwords sealed by PasswordEncrypter.
type PasswordDecrypter struct {
	key *rsa.PrivateKey
}

// NewPasswordDecrypter wraps an RSA private key.
func NewPasswordDecrypter(key *rsa.PrivateKey) (*PasswordDecrypter, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	return &PasswordDecrypter{key: key}, nil
}

// Decrypt opens a sealed password.
func (d *PasswordDecrypter) Decrypt(sealed []byte) (string, error) {
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, d.key, sealed, oaepLabel)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeCredentialInvalid, "decrypt password", err)
	}
	return string(plain), nil
}

// LoadPublicKey reads a PKIX RSA public key PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParsePublicKeyPEM(data)
}

// ParsePublicKeyPEM decodes a PKIX RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != PublicKeyPEMType {
		return nil, fmt.Errorf("expected %s PEM block", PublicKeyPEMType)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want RSA", parsed)
	}
	return key, nil
}

// LoadPrivateKey reads a PKCS#8 RSA private key PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM decodes a PKCS#8 RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != PrivateKeyPEMType {
		return nil, fmt.Errorf("expected %s PEM block", PrivateKeyPEMType)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", parsed)
	}
	return key, nil
}

// EncodeKeyPair renders key as PKCS#8 private and PKIX public PEM blocks.
func EncodeKeyPair(key *rsa.PrivateKey) (privatePEM, publicPEM []byte, err error) {
	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: PrivateKeyPEMType, Bytes: privateDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: PublicKeyPEMType, Bytes: publicDER})
	return privatePEM, publicPEM, nil
}
