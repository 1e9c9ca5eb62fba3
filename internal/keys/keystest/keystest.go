// Package keystest generates throwaway RSA key material for tests.
package keystest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeharbor/auth-go/internal/keys"
)

func GenerateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return k
}

func PrivatePEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func PublicPEM(t testing.TB, pub *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// WritePair writes jwt-private.pem and jwt-public.pem into dir and returns
// their paths.
func WritePair(t testing.TB, dir string, k *rsa.PrivateKey) (string, string) {
	t.Helper()
	privPath := filepath.Join(dir, "jwt-private.pem")
	pubPath := filepath.Join(dir, "jwt-public.pem")
	if err := os.WriteFile(privPath, PrivatePEM(t, k), 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(pubPath, PublicPEM(t, &k.PublicKey), 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return privPath, pubPath
}

// KeyPair builds an in-memory pair without touching the filesystem.
func KeyPair(t testing.TB) *keys.KeyPair {
	t.Helper()
	k := GenerateKey(t)
	return &keys.KeyPair{Private: k, Public: &k.PublicKey, PublicPEM: PublicPEM(t, &k.PublicKey)}
}
