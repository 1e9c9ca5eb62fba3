// Package keys loads the RSA key pair used to sign and verify identity tokens
// and describes the public half for relying parties.
package keys

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrKeyMaterialMissing = errors.New("key material missing")
	ErrKeyMaterialInvalid = errors.New("key material invalid")
)

// KeyPair is loaded once at startup and never mutated. Private is nil for
// services that only verify.
type KeyPair struct {
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	PublicPEM []byte
}

// ReadFirst returns the contents of the first readable file in paths along
// with the path it came from.
func ReadFirst(paths []string) ([]byte, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err == nil {
			return b, p, nil
		}
	}
	return nil, "", fmt.Errorf("%w: none of %v is readable", ErrKeyMaterialMissing, paths)
}

func LoadPrivateKey(paths []string) (*rsa.PrivateKey, string, error) {
	b, path, err := ReadFirst(paths)
	if err != nil {
		return nil, "", err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, path, fmt.Errorf("%w: private key at %s: %v", ErrKeyMaterialInvalid, path, err)
	}
	return key, path, nil
}

func LoadPublicKey(paths []string) (*rsa.PublicKey, []byte, string, error) {
	b, path, err := ReadFirst(paths)
	if err != nil {
		return nil, nil, "", err
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, nil, path, fmt.Errorf("%w: public key at %s: %v", ErrKeyMaterialInvalid, path, err)
	}
	return key, b, path, nil
}

// LoadKeyPair loads both halves for the issuing service and checks that the
// public key belongs to the private key.
func LoadKeyPair(privatePaths, publicPaths []string) (*KeyPair, error) {
	priv, _, err := LoadPrivateKey(privatePaths)
	if err != nil {
		return nil, err
	}
	pub, pemBytes, path, err := LoadPublicKey(publicPaths)
	if err != nil {
		return nil, err
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, fmt.Errorf("%w: public key at %s does not match the private key", ErrKeyMaterialInvalid, path)
	}
	return &KeyPair{Private: priv, Public: pub, PublicPEM: pemBytes}, nil
}

// LoadVerificationKey loads only the public half, for relying parties.
func LoadVerificationKey(publicPaths []string) (*KeyPair, error) {
	pub, pemBytes, _, err := LoadPublicKey(publicPaths)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pub, PublicPEM: pemBytes}, nil
}
