package solana

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair holds the wallet's ed25519 signing key. The key material is
// read-only after construction and safe to share across goroutines.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 parses a base58-encoded 64-byte secret key
// (seed || public key), the standard Solana wallet export format.
func KeypairFromBase58(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key is %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}

	kp := &Keypair{priv: ed25519.PrivateKey(raw)}
	if !IsOnCurve(kp.priv.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("public key is not on the ed25519 curve")
	}
	return kp, nil
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// Sign signs the given message bytes.
func (k *Keypair) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}

// IsOnCurve reports whether a 32-byte point is a valid ed25519 curve point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
