package keys

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

const (
	KeyTypeRSA   = "RSA"
	UseSignature = "sig"
	AlgRS256     = string(jose.RS256)
)

// JWK describes one verification key. PEM carries the same key in the
// encoding the key files use.
type JWK struct {
	Kty string `json:"kty" example:"RSA"`
	Use string `json:"use" example:"sig"`
	Alg string `json:"alg" example:"RS256"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e" example:"AQAB"`
	PEM string `json:"pem"`
}

type KeySet struct {
	Keys []JWK `json:"keys"`
}

// Publisher serves the public key descriptor. The descriptor is computed once.
type Publisher struct {
	set *KeySet
	err error
}

func NewPublisher(kp *KeyPair) *Publisher {
	if kp == nil || kp.Public == nil {
		return &Publisher{err: ErrKeyMaterialMissing}
	}
	k, err := describe(kp)
	if err != nil {
		return &Publisher{err: err}
	}
	return &Publisher{set: &KeySet{Keys: []JWK{k}}}
}

// Publish returns a copy of the key set.
func (p *Publisher) Publish() (KeySet, error) {
	if p.set == nil {
		if p.err != nil {
			return KeySet{}, p.err
		}
		return KeySet{}, ErrKeyMaterialMissing
	}
	out := KeySet{Keys: make([]JWK, len(p.set.Keys))}
	copy(out.Keys, p.set.Keys)
	return out, nil
}

func describe(kp *KeyPair) (JWK, error) {
	kid, err := thumbprint(kp.Public)
	if err != nil {
		return JWK{}, err
	}
	raw, err := json.Marshal(jose.JSONWebKey{
		Key:       kp.Public,
		KeyID:     kid,
		Algorithm: AlgRS256,
		Use:       UseSignature,
	})
	if err != nil {
		return JWK{}, fmt.Errorf("%w: encode jwk: %v", ErrKeyMaterialInvalid, err)
	}

	var k JWK
	if err := json.Unmarshal(raw, &k); err != nil {
		return JWK{}, fmt.Errorf("%w: decode jwk: %v", ErrKeyMaterialInvalid, err)
	}
	k.PEM = string(kp.PublicPEM)
	return k, nil
}

// Thumbprint is the RFC 7638 SHA-256 thumbprint of an RSA public key, used
// as the key id. It is empty for a key that cannot be encoded.
func Thumbprint(pub *rsa.PublicKey) string {
	kid, err := thumbprint(pub)
	if err != nil {
		return ""
	}
	return kid
}

func thumbprint(pub *rsa.PublicKey) (string, error) {
	sum, err := (&jose.JSONWebKey{Key: pub}).Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("%w: thumbprint: %v", ErrKeyMaterialInvalid, err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}
